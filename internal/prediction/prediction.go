// Package prediction shapes reference-service price forecasts for display.
package prediction

import (
	"math"
	"strings"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

// Trend is the direction of the predicted price move.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
)

// trendThresholdPct is the change beyond which a move counts as a trend
// when the service does not report one.
const trendThresholdPct = 1.0

// BandModerate is the only uncertainty band shown. Commodity shocks are not
// predictable from the available signal, so no confidence number is given.
const BandModerate = "moderate"

// SeriesPoint is one sample of the merged display series. Actual is set on
// historical samples; Predicted, Lower and Upper on forecast samples. The
// anchor carries both.
type SeriesPoint struct {
	Date      string   `json:"date"`
	Actual    *float64 `json:"actual,omitempty"`
	Predicted *float64 `json:"predicted,omitempty"`
	Lower     *float64 `json:"lower,omitempty"`
	Upper     *float64 `json:"upper,omitempty"`
}

// Merge joins history and forecast into one continuous series anchored at
// the last historical point. Forecast samples dated on or before the anchor
// are dropped. Missing bounds default to the predicted price.
func Merge(history, forecast []models.PricePoint) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(history)+len(forecast))
	for _, h := range history {
		out = append(out, SeriesPoint{Date: h.Date, Actual: ptr(h.Price)})
	}
	if len(out) == 0 {
		for _, f := range forecast {
			out = append(out, forecastPoint(f))
		}
		return out
	}

	anchor := &out[len(out)-1]
	anchor.Predicted, anchor.Lower, anchor.Upper = ptr(*anchor.Actual), ptr(*anchor.Actual), ptr(*anchor.Actual)
	anchorDate := anchor.Date
	for _, f := range forecast {
		if anchorDate != "" && f.Date <= anchorDate {
			continue
		}
		out = append(out, forecastPoint(f))
	}
	return out
}

func forecastPoint(f models.PricePoint) SeriesPoint {
	p := SeriesPoint{Date: f.Date, Predicted: ptr(f.Price), Lower: ptr(f.Price), Upper: ptr(f.Price)}
	if f.Lower != nil {
		p.Lower = ptr(*f.Lower)
	}
	if f.Upper != nil {
		p.Upper = ptr(*f.Upper)
	}
	return p
}

// Tail returns the last n points of series, or all of them when n <= 0.
func Tail(series []models.PricePoint, n int) []models.PricePoint {
	if n <= 0 || len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}

// Summary is the headline figures of a prediction.
type Summary struct {
	Crop           string   `json:"crop"`
	CurrentPrice   float64  `json:"currentPrice"`
	PredictedPrice float64  `json:"predictedPrice"`
	ChangePct      float64  `json:"changePct"`
	Trend          Trend    `json:"trend"`
	Band           string   `json:"band"`
	MSP            *float64 `json:"msp,omitempty"`
	Source         string   `json:"source,omitempty"`
}

// Summarize computes the headline figures of resp.
func Summarize(resp models.PredictionResponse) Summary {
	change := ChangePct(resp.CurrentPrice, resp.PredictedPrice)
	return Summary{
		Crop:           resp.Crop,
		CurrentPrice:   resp.CurrentPrice,
		PredictedPrice: resp.PredictedPrice,
		ChangePct:      change,
		Trend:          ClassifyTrend(resp.Trend, change),
		Band:           BandModerate,
		MSP:            resp.MSP,
		Source:         resp.Source,
	}
}

// ChangePct is (predicted-current)/max(current,1) as a percentage rounded
// to one decimal.
func ChangePct(current, predicted float64) float64 {
	return round1((predicted - current) / math.Max(current, 1) * 100)
}

// ClassifyTrend uses the service-reported trend when recognised, else the
// sign of changePct beyond a one percent threshold.
func ClassifyTrend(reported string, changePct float64) Trend {
	switch t := Trend(strings.ToLower(strings.TrimSpace(reported))); t {
	case TrendRising, TrendFalling, TrendStable:
		return t
	}
	switch {
	case changePct >= trendThresholdPct:
		return TrendRising
	case changePct <= -trendThresholdPct:
		return TrendFalling
	}
	return TrendStable
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func ptr(v float64) *float64 {
	return &v
}
