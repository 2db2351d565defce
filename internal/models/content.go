package models

// Widget content shapes. Field names follow the reference service payloads
// so the same types decode upstream responses and encode display regions.

// CurrentConditions is the "now" block of a weather report.
type CurrentConditions struct {
	TemperatureC float64 `json:"temperatureC"`
	ApparentC    float64 `json:"apparentC"`
	HumidityPct  int     `json:"humidityPct"`
	WindKmh      float64 `json:"windKmh"`
	WeatherCode  int     `json:"weatherCode"`
	Description  string  `json:"description"`
}

// ForecastDay is one daily aggregate.
type ForecastDay struct {
	Date        string  `json:"date"`
	MaxC        float64 `json:"maxC"`
	MinC        float64 `json:"minC"`
	RainMM      float64 `json:"rainMm"`
	WeatherCode int     `json:"weatherCode"`
	Description string  `json:"description"`
}

// SoilMoisture is the latest hourly topsoil reading.
type SoilMoisture struct {
	Percent int    `json:"percent"`
	Status  string `json:"status"` // Good, Moderate or Low
}

// WeatherReport is the weather widget content.
type WeatherReport struct {
	Location string            `json:"location"`
	Current  CurrentConditions `json:"current"`
	Days     []ForecastDay     `json:"days"`
	Soil     *SoilMoisture     `json:"soil,omitempty"`
}

// TickerEntry is one crop price in the market ticker and market page.
type TickerEntry struct {
	Crop      string    `json:"crop"`
	Icon      string    `json:"icon,omitempty"`
	Mandi     string    `json:"mandi"`
	State     string    `json:"state,omitempty"`
	Price     float64   `json:"price"`
	Unit      string    `json:"unit"`
	Change    float64   `json:"change"`
	History   []float64 `json:"history,omitempty"`
	Direction string    `json:"direction,omitempty"`
}

// SeasonalTip is the seasonal AI tip.
type SeasonalTip struct {
	Title  string `json:"title"`
	Text   string `json:"text"`
	Season string `json:"season,omitempty"`
}

// CalendarEntry is one crop row in the crop calendar.
type CalendarEntry struct {
	Crop    string `json:"crop"`
	Sowing  string `json:"sowing"`
	Harvest string `json:"harvest"`
	Note    string `json:"note,omitempty"`
}

// CropCalendar is the crop calendar widget content.
type CropCalendar struct {
	Season  string          `json:"season"`
	Entries []CalendarEntry `json:"entries"`
}

// PricePoint is one sample of a price series. Lower and Upper are set on
// forecast samples only.
type PricePoint struct {
	Date  string   `json:"date"`
	Price float64  `json:"price"`
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
}

// PredictionResponse is the reference service price prediction payload.
type PredictionResponse struct {
	Crop           string       `json:"crop"`
	Icon           string       `json:"icon,omitempty"`
	MSP            *float64     `json:"msp"`
	CurrentPrice   float64      `json:"current_price"`
	PredictedPrice float64      `json:"predicted_price"`
	History        []PricePoint `json:"history"`
	Prediction     []PricePoint `json:"prediction"`
	Trend          string       `json:"trend,omitempty"`
	Source         string       `json:"source,omitempty"`
}

// Advisory is one crop sell/hold recommendation.
type Advisory struct {
	Crop           string   `json:"crop"`
	Icon           string   `json:"icon,omitempty"`
	Verdict        string   `json:"verdict"`
	Reason         string   `json:"reason"`
	ActionColor    string   `json:"action_color"`
	CurrentPrice   float64  `json:"current_price"`
	PredictedPrice float64  `json:"predicted_price"`
	ChangePct      float64  `json:"change_pct"`
	MSP            *float64 `json:"msp"`
	Trend          string   `json:"trend"`
	Source         string   `json:"source,omitempty"`
}

// QuestionCategory groups popular questions.
type QuestionCategory struct {
	Name      string   `json:"name"`
	Icon      string   `json:"icon,omitempty"`
	Questions []string `json:"questions"`
}

// CropGuideEntry is one crop on the crop guide sub-page.
type CropGuideEntry struct {
	Name     string   `json:"name"`
	Icon     string   `json:"icon,omitempty"`
	Season   string   `json:"season"`
	Water    string   `json:"water"`
	Temp     string   `json:"temp"`
	Soil     string   `json:"soil"`
	Duration string   `json:"duration"`
	States   []string `json:"states"`
	Tips     []string `json:"tips"`
}

// PestSolution is one control method for a pest.
type PestSolution struct {
	Type   string `json:"type"`
	Method string `json:"method"`
}

// PestGuideEntry is one pest on the pest guide sub-page.
type PestGuideEntry struct {
	Name      string         `json:"name"`
	Icon      string         `json:"icon,omitempty"`
	Severity  string         `json:"severity"`
	Symptoms  string         `json:"symptoms"`
	Crops     []string       `json:"crops"`
	Solutions []PestSolution `json:"solutions"`
}

// ChatRequest is forwarded to the reference service query endpoint.
type ChatRequest struct {
	Query      string `json:"query"`
	OnlineMode bool   `json:"online_mode"`
	TopK       int    `json:"top_k"`
}

// ChatResult is one retrieved passage.
type ChatResult struct {
	Crop       string  `json:"crop,omitempty"`
	Question   string  `json:"question,omitempty"`
	Answer     string  `json:"answer,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ChatResponse is the reference service answer.
type ChatResponse struct {
	OnlineAnswer  string       `json:"online_answer,omitempty"`
	OfflineAnswer string       `json:"offline_answer,omitempty"`
	Results       []ChatResult `json:"results,omitempty"`
	Elapsed       float64      `json:"elapsed"`
	Error         string       `json:"error,omitempty"`
}
