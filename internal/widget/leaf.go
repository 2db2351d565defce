package widget

import (
	"context"

	"github.com/kjstillabower/krishi-dashboard/internal/client"
	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

// Labels renders catalog strings.
type Labels interface {
	Text(lang models.Language, key string) string
	Textf(lang models.Language, key string, args ...interface{}) string
}

// funcWidget adapts a fetch function to Widget.
type funcWidget struct {
	id       models.WidgetID
	network  bool
	fetch    func(ctx context.Context, req Request) (any, error)
	fallback func(req Request) any
}

func (w *funcWidget) ID() models.WidgetID { return w.id }
func (w *funcWidget) NetworkBound() bool  { return w.network }

func (w *funcWidget) Fetch(ctx context.Context, req Request) (any, error) {
	return w.fetch(ctx, req)
}

func (w *funcWidget) Fallback(req Request) any {
	if w.fallback == nil {
		return nil
	}
	return w.fallback(req)
}

// NewWeather returns the weather and forecast widget for the session location.
func NewWeather(wc client.WeatherClient) Widget {
	return &funcWidget{
		id:      models.WidgetWeather,
		network: true,
		fetch: func(ctx context.Context, req Request) (any, error) {
			loc := req.Snapshot.Location
			rep, err := wc.Forecast(ctx, loc.Latitude, loc.Longitude)
			if err != nil {
				return nil, err
			}
			rep.Location = loc.Name
			return rep, nil
		},
	}
}

// NewMarketTicker returns the ticker widget showing at most limit prices,
// filtered by the session region when one is known.
func NewMarketTicker(kb client.KnowledgeClient, limit int) Widget {
	return &funcWidget{
		id:      models.WidgetMarketTicker,
		network: true,
		fetch: func(ctx context.Context, req Request) (any, error) {
			entries, err := kb.MarketPrices(ctx, req.Snapshot.Location.Region, req.Language())
			if err != nil {
				return nil, err
			}
			entries = withDirection(entries)
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			return entries, nil
		},
	}
}

// NewMarketPage returns the market sub-page content widget.
func NewMarketPage(kb client.KnowledgeClient) Widget {
	return &funcWidget{
		id:      models.WidgetMarketPage,
		network: true,
		fetch: func(ctx context.Context, req Request) (any, error) {
			entries, err := kb.MarketPrices(ctx, req.Snapshot.Location.Region, req.Language())
			if err != nil {
				return nil, err
			}
			return withDirection(entries), nil
		},
	}
}

func withDirection(entries []models.TickerEntry) []models.TickerEntry {
	out := make([]models.TickerEntry, len(entries))
	for i, e := range entries {
		e.Direction = "up"
		if e.Change < 0 {
			e.Direction = "down"
		}
		out[i] = e
	}
	return out
}

// NewSeasonalTip returns the seasonal tip widget. Its fallback is a static
// tip for the current season.
func NewSeasonalTip(kb client.KnowledgeClient, labels Labels, clock func() (season string)) Widget {
	return &funcWidget{
		id:      models.WidgetSeasonalTip,
		network: true,
		fetch: func(ctx context.Context, req Request) (any, error) {
			return kb.SeasonalTip(ctx, req.Snapshot.Location, req.Language())
		},
		fallback: func(req Request) any {
			lang := req.Language()
			season := clock()
			return models.SeasonalTip{
				Title:  labels.Text(lang, "season."+season),
				Text:   labels.Text(lang, "fallback."+string(models.WidgetSeasonalTip)),
				Season: season,
			}
		},
	}
}

// NewCropCalendar returns the crop calendar widget.
func NewCropCalendar(kb client.KnowledgeClient) Widget {
	return &funcWidget{
		id:      models.WidgetCropCalendar,
		network: true,
		fetch: func(ctx context.Context, req Request) (any, error) {
			return kb.CropCalendar(ctx, req.Snapshot.Location.Region, req.Language())
		},
	}
}

// NewPopularQuestions returns the popular questions widget.
func NewPopularQuestions(kb client.KnowledgeClient) Widget {
	return &funcWidget{
		id:      models.WidgetPopularQuestions,
		network: true,
		fetch: func(ctx context.Context, req Request) (any, error) {
			return kb.PopularQuestions(ctx, req.Language())
		},
	}
}

// NewCropGuidePage returns the crop guide sub-page content widget.
func NewCropGuidePage(kb client.KnowledgeClient) Widget {
	return &funcWidget{
		id:      models.WidgetCropGuidePage,
		network: true,
		fetch: func(ctx context.Context, req Request) (any, error) {
			return kb.CropGuide(ctx, req.Language())
		},
	}
}

// NewPestGuidePage returns the pest guide sub-page content widget.
func NewPestGuidePage(kb client.KnowledgeClient) Widget {
	return &funcWidget{
		id:      models.WidgetPestGuidePage,
		network: true,
		fetch: func(ctx context.Context, req Request) (any, error) {
			return kb.PestGuide(ctx, req.Language())
		},
	}
}
