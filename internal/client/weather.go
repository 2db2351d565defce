package client

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kjstillabower/krishi-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

// WeatherClient fetches current conditions, daily aggregates and hourly
// soil moisture for a coordinate.
type WeatherClient interface {
	Forecast(ctx context.Context, lat, lon float64) (models.WeatherReport, error)
}

// OpenMeteoClient implements WeatherClient against the open-meteo forecast API.
// It never retries; callers fall back on failure.
type OpenMeteoClient struct {
	apiURL  string
	timeout time.Duration
	days    int
	client  *http.Client
	breaker *circuitbreaker.Breaker
}

// NewOpenMeteoClient returns a client for apiURL with a per-call timeout.
func NewOpenMeteoClient(apiURL string, timeout time.Duration) *OpenMeteoClient {
	return &OpenMeteoClient{
		apiURL:  apiURL,
		timeout: timeout,
		days:    7,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetBreaker guards forecast calls with b.
func (c *OpenMeteoClient) SetBreaker(b *circuitbreaker.Breaker) {
	c.breaker = b
}

type openMeteoResponse struct {
	Current *struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WeatherCode int     `json:"weather_code"`
		Apparent    float64 `json:"apparent_temperature"`
	} `json:"current"`
	Daily struct {
		Time          []string  `json:"time"`
		TempMax       []float64 `json:"temperature_2m_max"`
		TempMin       []float64 `json:"temperature_2m_min"`
		Precipitation []float64 `json:"precipitation_sum"`
		WeatherCode   []int     `json:"weather_code"`
	} `json:"daily"`
	Hourly struct {
		SoilMoisture []*float64 `json:"soil_moisture_0_to_1cm"`
	} `json:"hourly"`
}

func (c *OpenMeteoClient) Forecast(ctx context.Context, lat, lon float64) (models.WeatherReport, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, lat, lon)
	if err != nil {
		return models.WeatherReport{}, err
	}
	var apiResp openMeteoResponse
	err = guarded(ctx, c.breaker, func() error {
		return doJSON(c.client, upstreamWeather, req, &apiResp)
	})
	if err != nil {
		return models.WeatherReport{}, err
	}
	if apiResp.Current == nil {
		return models.WeatherReport{}, fmt.Errorf("%w: missing current block", ErrMalformedResponse)
	}
	return mapForecast(apiResp), nil
}

func (c *OpenMeteoClient) buildRequest(ctx context.Context, lat, lon float64) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	params.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code,apparent_temperature")
	params.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,weather_code")
	params.Set("hourly", "soil_moisture_0_to_1cm")
	params.Set("timezone", "Asia/Kolkata")
	params.Set("forecast_days", strconv.Itoa(c.days))
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func mapForecast(r openMeteoResponse) models.WeatherReport {
	rep := models.WeatherReport{
		Current: models.CurrentConditions{
			TemperatureC: r.Current.Temperature,
			ApparentC:    r.Current.Apparent,
			HumidityPct:  int(math.Round(r.Current.Humidity)),
			WindKmh:      r.Current.WindSpeed,
			WeatherCode:  r.Current.WeatherCode,
			Description:  WeatherDescription(r.Current.WeatherCode),
		},
	}

	d := r.Daily
	for i := range d.Time {
		day := models.ForecastDay{Date: d.Time[i]}
		if i < len(d.TempMax) {
			day.MaxC = d.TempMax[i]
		}
		if i < len(d.TempMin) {
			day.MinC = d.TempMin[i]
		}
		if i < len(d.Precipitation) {
			day.RainMM = d.Precipitation[i]
		}
		if i < len(d.WeatherCode) {
			day.WeatherCode = d.WeatherCode[i]
			day.Description = WeatherDescription(d.WeatherCode[i])
		}
		rep.Days = append(rep.Days, day)
	}

	// Trailing hours may be null past the model horizon.
	soil := r.Hourly.SoilMoisture
	for i := len(soil) - 1; i >= 0; i-- {
		if soil[i] != nil {
			rep.Soil = SoilReading(*soil[i])
			break
		}
	}
	return rep
}

// SoilReading converts a volumetric fraction (m³/m³) into a percent and status.
func SoilReading(fraction float64) *models.SoilMoisture {
	pct := int(math.Round(fraction * 100))
	status := "Low"
	switch {
	case pct > 30:
		status = "Good"
	case pct > 15:
		status = "Moderate"
	}
	return &models.SoilMoisture{Percent: pct, Status: status}
}

var wmoDescriptions = map[int]string{
	0: "Clear", 1: "Mostly Clear", 2: "Partly Cloudy", 3: "Overcast",
	45: "Fog", 48: "Rime Fog", 51: "Light Drizzle", 53: "Drizzle",
	55: "Heavy Drizzle", 61: "Light Rain", 63: "Rain", 65: "Heavy Rain",
	71: "Light Snow", 73: "Snow", 75: "Heavy Snow", 80: "Showers",
	81: "Heavy Showers", 82: "Violent Showers", 95: "Thunderstorm",
	96: "Hail Storm", 99: "Heavy Hail",
}

// WeatherDescription returns the English description of a WMO weather code.
func WeatherDescription(code int) string {
	if d, ok := wmoDescriptions[code]; ok {
		return d
	}
	return "Unknown"
}
