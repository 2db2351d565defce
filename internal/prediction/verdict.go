package prediction

import "math"

// Verdict values.
const (
	VerdictHold        = "HOLD"
	VerdictSellNow     = "SELL NOW"
	VerdictSellAtMSP   = "SELL AT MSP"
	VerdictSellInMandi = "SELL IN MANDI"
	VerdictMonitor     = "MONITOR"
)

// volatileThresholdPct applies to crops without a minimum support price.
const volatileThresholdPct = 8.0

// Verdict is a sell/hold recommendation. ReasonKey and ReasonArgs render
// the explanation through the message catalog.
type Verdict struct {
	Verdict    string
	ReasonKey  string
	ReasonArgs []interface{}
	Color      string
}

// Decide computes a verdict from current and predicted prices, the minimum
// support price (nil when the crop has none), trend and change.
func Decide(current, predicted float64, msp *float64, trend Trend, changePct float64) Verdict {
	if msp == nil {
		switch {
		case changePct > volatileThresholdPct:
			return Verdict{VerdictHold, "reason.volatile_rise", []interface{}{changePct}, "green"}
		case changePct < -volatileThresholdPct:
			return Verdict{VerdictSellNow, "reason.volatile_drop", []interface{}{math.Abs(changePct)}, "red"}
		}
		return Verdict{VerdictMonitor, "reason.volatile_stable", []interface{}{changePct}, "amber"}
	}

	m := *msp
	ratio := 1.0
	if m > 0 {
		ratio = current / m
	}
	switch {
	case trend == TrendRising && changePct > 5:
		return Verdict{VerdictHold, "reason.msp_rising", []interface{}{changePct}, "green"}
	case trend == TrendFalling && changePct < -5:
		if ratio < 1.05 {
			return Verdict{VerdictSellAtMSP, "reason.msp_falling_at_msp", []interface{}{m}, "blue"}
		}
		return Verdict{VerdictSellNow, "reason.msp_falling_sell", []interface{}{math.Abs(changePct), current}, "red"}
	case current > m*1.15:
		return Verdict{VerdictSellInMandi, "reason.above_msp", []interface{}{current, int(math.Round((ratio - 1) * 100))}, "green"}
	case current < m*0.95:
		return Verdict{VerdictSellAtMSP, "reason.below_msp", []interface{}{m}, "blue"}
	}
	return Verdict{VerdictHold, "reason.near_msp", []interface{}{changePct}, "amber"}
}
