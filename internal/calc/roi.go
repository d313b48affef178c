package calc

import "math"

// ROIInput describes an investment observed over Timeframe months.
type ROIInput struct {
	InitialInvestment float64 `json:"initial_investment"`
	NetProfit         float64 `json:"net_profit"`
	Timeframe         float64 `json:"timeframe"`
}

// ROIResult values are percentages except PaybackPeriod, which is in months.
type ROIResult struct {
	ROI           float64 `json:"roi"`
	AnnualizedROI float64 `json:"annualized_roi"`
	PaybackPeriod float64 `json:"payback_period"`
}

// ROI computes return on investment, its compound 12-month equivalent and the
// payback period. PaybackPeriod is zero when the investment is not profitable.
func ROI(in ROIInput) (ROIResult, error) {
	if err := requireFinite(
		[]string{"initial_investment", "net_profit", "timeframe"},
		in.InitialInvestment, in.NetProfit, in.Timeframe,
	); err != nil {
		return ROIResult{}, err
	}

	if in.InitialInvestment <= 0 {
		return ROIResult{}, invalid("initial_investment", "initial investment must be greater than zero")
	}
	if in.Timeframe <= 0 {
		return ROIResult{}, invalid("timeframe", "timeframe must be greater than zero")
	}

	roi := (in.NetProfit / in.InitialInvestment) * 100

	// A negative base has no real fractional power; a base of exactly zero is
	// a total loss and annualizes to -100%.
	base := 1 + roi/100
	if base < 0 {
		return ROIResult{}, invalid("net_profit", "net loss cannot exceed the initial investment")
	}
	annualized := (math.Pow(base, 12/in.Timeframe) - 1) * 100
	if !isFinite(roi) || !isFinite(annualized) {
		return ROIResult{}, invalid("timeframe", "annualized roi is out of range")
	}

	payback := 0.0
	if in.NetProfit > 0 {
		payback = (in.InitialInvestment / in.NetProfit) * in.Timeframe
		if !isFinite(payback) {
			return ROIResult{}, invalid("net_profit", "payback period is out of range")
		}
	}

	return ROIResult{
		ROI:           roi,
		AnnualizedROI: annualized,
		PaybackPeriod: payback,
	}, nil
}

// Rating is a coarse verdict on an annualized ROI.
type Rating string

const (
	RatingLosing      Rating = "losing"
	RatingImprovable  Rating = "improvable"
	RatingGood        Rating = "good"
	RatingExcellent   Rating = "excellent"
	RatingOutstanding Rating = "outstanding"
)

// RateROI buckets an annualized ROI percentage.
func RateROI(annualized float64) Rating {
	switch {
	case annualized < 0:
		return RatingLosing
	case annualized < 10:
		return RatingImprovable
	case annualized < 20:
		return RatingGood
	case annualized < 50:
		return RatingExcellent
	default:
		return RatingOutstanding
	}
}
