// Package widget defines the leaf display widgets and the board holding
// the content each last wrote to its region.
package widget

import (
	"context"
	"time"

	"github.com/kjstillabower/krishi-dashboard/internal/client"
	"github.com/kjstillabower/krishi-dashboard/internal/models"
	"github.com/kjstillabower/krishi-dashboard/internal/session"
)

// Request is what a widget sees for one refresh: the session snapshot
// taken at dispatch and the trigger that caused it.
type Request struct {
	Snapshot session.Snapshot
	Trigger  string
}

// Language is the active display language of the snapshot.
func (r Request) Language() models.Language {
	return r.Snapshot.Locale.ActiveLanguage
}

// Widget owns one display region.
type Widget interface {
	ID() models.WidgetID
	// NetworkBound widgets go straight to their fallback while Offline.
	NetworkBound() bool
	// Fetch returns fresh content for the region.
	Fetch(ctx context.Context, req Request) (any, error)
	// Fallback returns static content shown when Fetch fails, or nil when
	// the fallback message alone is shown.
	Fallback(req Request) any
}

// Dashboard lists the widgets on the home page in display order.
var Dashboard = []models.WidgetID{
	models.WidgetHeroBanner,
	models.WidgetWeather,
	models.WidgetMarketTicker,
	models.WidgetSeasonalTip,
	models.WidgetCropCalendar,
	models.WidgetPricePrediction,
	models.WidgetPriceAdvisory,
	models.WidgetPopularQuestions,
}

// Pages lists the lazy sub-page content widgets.
var Pages = []models.WidgetID{
	models.WidgetMarketPage,
	models.WidgetCropGuidePage,
	models.WidgetPestGuidePage,
	models.WidgetPredictionPage,
}

const (
	tickerLimit       = 8
	predictionHistory = 60
	// DefaultCrop is the crop shown on the prediction panel.
	DefaultCrop = "Wheat"
)

// NewSet builds every dashboard and sub-page widget. now drives the hero
// banner and the seasonal tip fallback; nil means time.Now.
func NewSet(wc client.WeatherClient, kb client.KnowledgeClient, labels Labels, now func() time.Time, crop string) []Widget {
	if crop == "" {
		crop = DefaultCrop
	}
	hero := NewHeroBanner(labels, now)
	pred := NewPricePrediction(kb, labels, crop, predictionHistory)
	adv := NewPriceAdvisory(kb, labels)
	return []Widget{
		hero,
		NewWeather(wc),
		NewMarketTicker(kb, tickerLimit),
		NewSeasonalTip(kb, labels, hero.CurrentSeason),
		NewCropCalendar(kb),
		pred,
		adv,
		NewPopularQuestions(kb),
		NewMarketPage(kb),
		NewCropGuidePage(kb),
		NewPestGuidePage(kb),
		NewPredictionPage(pred, adv),
	}
}
