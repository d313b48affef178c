package calc

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	// DefaultLocale is used when FormatCurrency gets an empty or unknown
	// locale.
	DefaultLocale = "es-MX"

	DefaultPercentageDecimals = 1

	maxCurrencyFractionDigits = 2
)

var currencySymbols = map[currency.Unit]string{
	currency.USD: "$",
	currency.MXN: "$",
	currency.MustParseISO("COP"): "$",
	currency.MustParseISO("ARS"): "$",
	currency.MustParseISO("CLP"): "$",
	currency.CAD: "$",
	currency.EUR: "€",
	currency.GBP: "£",
	currency.JPY: "¥",
	currency.BRL: "R$",
}

// FormatCurrency renders amount in the currency of locale's region using the
// locale's digit grouping, with up to two fraction digits and no trailing
// zeros.
func FormatCurrency(amount float64, locale string) string {
	if !isFinite(amount) {
		return strconv.FormatFloat(amount, 'f', -1, 64)
	}

	tag := parseLocale(locale)
	unit, _ := currency.FromTag(tag)

	rounded := decimal.NewFromFloat(math.Abs(amount)).Round(maxCurrencyFractionDigits).InexactFloat64()
	digits := message.NewPrinter(tag).Sprintf("%v", number.Decimal(rounded, number.MaxFractionDigits(maxCurrencyFractionDigits)))

	sign := ""
	if amount < 0 && rounded != 0 {
		sign = "-"
	}
	return sign + symbolFor(unit) + digits
}

// FormatPercentage renders value with a fixed number of decimals and a
// trailing "%". Halves round away from zero.
func FormatPercentage(value float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	if !isFinite(value) {
		return strconv.FormatFloat(value, 'f', decimals, 64) + "%"
	}
	return decimal.NewFromFloat(value).StringFixed(int32(decimals)) + "%"
}

func parseLocale(locale string) language.Tag {
	if locale != "" {
		if tag, err := language.Parse(locale); err == nil {
			return tag
		}
	}
	return language.MustParse(DefaultLocale)
}

func symbolFor(unit currency.Unit) string {
	if s, ok := currencySymbols[unit]; ok {
		return s
	}
	return unit.String() + " "
}
