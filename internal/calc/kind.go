package calc

// Kind identifies one of the calculators.
type Kind string

const (
	KindBreakEven Kind = "break-even"
	KindROI       Kind = "roi"
	KindProfit    Kind = "profit"
	KindUnitCost  Kind = "unit-cost"
)

// Kinds lists every calculator in display order.
func Kinds() []Kind {
	return []Kind{KindBreakEven, KindROI, KindUnitCost, KindProfit}
}

// ParseKind maps a URL or storage value onto a Kind.
func ParseKind(raw string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == raw {
			return k, true
		}
	}
	return "", false
}
