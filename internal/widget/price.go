package widget

import (
	"context"

	"github.com/kjstillabower/krishi-dashboard/internal/client"
	"github.com/kjstillabower/krishi-dashboard/internal/models"
	"github.com/kjstillabower/krishi-dashboard/internal/prediction"
)

// PredictionView is the price prediction panel content. Uncertainty is a
// qualitative band; no confidence percentage is ever shown.
type PredictionView struct {
	prediction.Summary
	TrendLabel string                   `json:"trendLabel"`
	BandText   string                   `json:"bandText"`
	Disclaimer string                   `json:"disclaimer"`
	Series     []prediction.SeriesPoint `json:"series"`
}

// AdvisoryView is one localized sell/hold recommendation.
type AdvisoryView struct {
	models.Advisory
	VerdictLabel string `json:"verdictLabel"`
	TrendLabel   string `json:"trendLabel"`
}

// PricePrediction is the price prediction panel for one crop.
type PricePrediction struct {
	kb          client.KnowledgeClient
	labels      Labels
	crop        string
	historyDays int
}

// NewPricePrediction returns the panel for crop, showing the last
// historyDays of history before the forecast.
func NewPricePrediction(kb client.KnowledgeClient, labels Labels, crop string, historyDays int) *PricePrediction {
	return &PricePrediction{kb: kb, labels: labels, crop: crop, historyDays: historyDays}
}

func (p *PricePrediction) ID() models.WidgetID { return models.WidgetPricePrediction }
func (p *PricePrediction) NetworkBound() bool  { return true }
func (p *PricePrediction) Fallback(Request) any { return nil }

func (p *PricePrediction) Fetch(ctx context.Context, req Request) (any, error) {
	resp, err := p.kb.Prediction(ctx, p.crop, req.Snapshot.Location.Region)
	if err != nil {
		return nil, err
	}
	return p.view(resp, req.Language()), nil
}

func (p *PricePrediction) view(resp models.PredictionResponse, lang models.Language) PredictionView {
	sum := prediction.Summarize(resp)
	return PredictionView{
		Summary:    sum,
		TrendLabel: p.labels.Text(lang, "trend."+string(sum.Trend)),
		BandText:   p.labels.Text(lang, "prediction.band"),
		Disclaimer: p.labels.Text(lang, "prediction.disclaimer"),
		Series:     prediction.Merge(prediction.Tail(resp.History, p.historyDays), resp.Prediction),
	}
}

// PriceAdvisory is the sell/hold advisory panel.
type PriceAdvisory struct {
	kb     client.KnowledgeClient
	labels Labels
}

// NewPriceAdvisory returns the advisory panel.
func NewPriceAdvisory(kb client.KnowledgeClient, labels Labels) *PriceAdvisory {
	return &PriceAdvisory{kb: kb, labels: labels}
}

func (a *PriceAdvisory) ID() models.WidgetID { return models.WidgetPriceAdvisory }
func (a *PriceAdvisory) NetworkBound() bool  { return true }
func (a *PriceAdvisory) Fallback(Request) any { return nil }

func (a *PriceAdvisory) Fetch(ctx context.Context, req Request) (any, error) {
	list, err := a.kb.Advisory(ctx, req.Snapshot.Location.Region, req.Language())
	if err != nil {
		return nil, err
	}
	return a.views(list, req.Language()), nil
}

// views fills in verdicts the service left out and localizes labels.
func (a *PriceAdvisory) views(list []models.Advisory, lang models.Language) []AdvisoryView {
	out := make([]AdvisoryView, 0, len(list))
	for _, adv := range list {
		if adv.Verdict == "" {
			adv.ChangePct = prediction.ChangePct(adv.CurrentPrice, adv.PredictedPrice)
			trend := prediction.ClassifyTrend(adv.Trend, adv.ChangePct)
			v := prediction.Decide(adv.CurrentPrice, adv.PredictedPrice, adv.MSP, trend, adv.ChangePct)
			adv.Verdict, adv.ActionColor, adv.Trend = v.Verdict, v.Color, string(trend)
			adv.Reason = a.labels.Textf(lang, v.ReasonKey, v.ReasonArgs...)
		}
		out = append(out, AdvisoryView{
			Advisory:     adv,
			VerdictLabel: a.labels.Text(lang, "verdict."+adv.Verdict),
			TrendLabel:   a.labels.Text(lang, "trend."+adv.Trend),
		})
	}
	return out
}

// PredictionPageView is the prediction sub-page content.
type PredictionPageView struct {
	Outlook    PredictionView `json:"outlook"`
	Advisories []AdvisoryView `json:"advisories"`
}

// PredictionPage is the region-scoped prediction sub-page. It reuses the
// panel fetchers.
type PredictionPage struct {
	prediction *PricePrediction
	advisory   *PriceAdvisory
}

// NewPredictionPage returns the prediction sub-page content widget.
func NewPredictionPage(p *PricePrediction, a *PriceAdvisory) *PredictionPage {
	return &PredictionPage{prediction: p, advisory: a}
}

func (pp *PredictionPage) ID() models.WidgetID { return models.WidgetPredictionPage }
func (pp *PredictionPage) NetworkBound() bool  { return true }
func (pp *PredictionPage) Fallback(Request) any { return nil }

func (pp *PredictionPage) Fetch(ctx context.Context, req Request) (any, error) {
	outlook, err := pp.prediction.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	advisories, err := pp.advisory.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return PredictionPageView{Outlook: outlook.(PredictionView), Advisories: advisories.([]AdvisoryView)}, nil
}
