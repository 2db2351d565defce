package models

import "time"

// WidgetID names an independent display region.
type WidgetID string

const (
	WidgetWeather          WidgetID = "weather"
	WidgetMarketTicker     WidgetID = "market_ticker"
	WidgetSeasonalTip      WidgetID = "seasonal_tip"
	WidgetCropCalendar     WidgetID = "crop_calendar"
	WidgetPricePrediction  WidgetID = "price_prediction"
	WidgetPriceAdvisory    WidgetID = "price_advisory"
	WidgetHeroBanner       WidgetID = "hero_banner"
	WidgetPopularQuestions WidgetID = "popular_questions"
	WidgetMarketPage       WidgetID = "page_market"
	WidgetCropGuidePage    WidgetID = "page_crop_guide"
	WidgetPestGuidePage    WidgetID = "page_pest_guide"
	WidgetPredictionPage   WidgetID = "page_prediction"
)

// Page is a navigable dashboard page.
type Page string

const (
	PageHome       Page = "home"
	PageWeather    Page = "weather"
	PageChat       Page = "chat"
	PageMarket     Page = "market"
	PageCropGuide  Page = "crop-guide"
	PagePestGuide  Page = "pest-guide"
	PagePrediction Page = "prediction"
)

// LazyPages are the sub-pages whose first fetch waits for first navigation.
var LazyPages = []Page{PageMarket, PageCropGuide, PagePestGuide, PagePrediction}

var pageWidgets = map[Page]WidgetID{
	PageMarket:     WidgetMarketPage,
	PageCropGuide:  WidgetCropGuidePage,
	PagePestGuide:  WidgetPestGuidePage,
	PagePrediction: WidgetPredictionPage,
}

// PageWidget returns the content widget of a lazy sub-page.
func PageWidget(p Page) (WidgetID, bool) {
	id, ok := pageWidgets[p]
	return id, ok
}

// ParsePage returns the Page for s, or false when s is not a known page.
func ParsePage(s string) (Page, bool) {
	switch p := Page(s); p {
	case PageHome, PageWeather, PageChat, PageMarket, PageCropGuide, PagePestGuide, PagePrediction:
		return p, true
	}
	return "", false
}

// RegionStatus describes what a display region currently shows.
type RegionStatus string

const (
	RegionPending  RegionStatus = "pending"
	RegionOK       RegionStatus = "ok"
	RegionFallback RegionStatus = "fallback"
)

// WidgetLoadState records which session values last populated a region.
type WidgetLoadState struct {
	Loaded             bool           `json:"loaded"`
	LastLocationUsed   LocationRecord `json:"lastLocationUsed"`
	LastLocaleUsed     Language       `json:"lastLocaleUsed"`
	LastLocaleRevision uint64         `json:"lastLocaleRevision"`
}

// Region is the content a widget last wrote to its display region.
type Region struct {
	Widget    WidgetID        `json:"widget"`
	Status    RegionStatus    `json:"status"`
	Content   any             `json:"content,omitempty"`
	Message   string          `json:"message,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt,omitempty"`
	Load      WidgetLoadState `json:"load"`
}
