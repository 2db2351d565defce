package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const openMeteoBody = `{
  "current": {"temperature_2m": 31.4, "relative_humidity_2m": 62, "wind_speed_10m": 11.2, "weather_code": 2, "apparent_temperature": 34.1},
  "daily": {
    "time": ["2026-10-18", "2026-10-19"],
    "temperature_2m_max": [33.0, 32.1],
    "temperature_2m_min": [24.2, 23.8],
    "precipitation_sum": [0, 4.5],
    "weather_code": [2, 61]
  },
  "hourly": {"soil_moisture_0_to_1cm": [0.28, 0.31, null, null]}
}`

func TestOpenMeteoClient_Forecast_Success(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openMeteoBody))
	}))
	defer server.Close()

	c := NewOpenMeteoClient(server.URL, 2*time.Second)
	rep, err := c.Forecast(context.Background(), 19.07, 72.87)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	if got := gotQuery["latitude"]; len(got) != 1 || got[0] != "19.0700" {
		t.Errorf("latitude param = %v, want 19.0700", got)
	}
	if rep.Current.Description != "Partly Cloudy" {
		t.Errorf("Current.Description = %q, want Partly Cloudy", rep.Current.Description)
	}
	if rep.Current.HumidityPct != 62 {
		t.Errorf("Current.HumidityPct = %d, want 62", rep.Current.HumidityPct)
	}
	if len(rep.Days) != 2 {
		t.Fatalf("len(Days) = %d, want 2", len(rep.Days))
	}
	if rep.Days[1].RainMM != 4.5 || rep.Days[1].Description != "Light Rain" {
		t.Errorf("Days[1] = %+v", rep.Days[1])
	}
	if rep.Soil == nil || rep.Soil.Percent != 31 || rep.Soil.Status != "Good" {
		t.Errorf("Soil = %+v, want 31%% Good (latest non-null sample)", rep.Soil)
	}
}

func TestOpenMeteoClient_Forecast_Errors(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantErr      error
		wantCategory ErrorCategory
	}{
		{"server error", http.StatusServiceUnavailable, `{}`, ErrUpstreamFailure, ErrorCategoryUpstream5xx},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrRateLimited, ErrorCategoryRateLimited},
		{"invalid json", http.StatusOK, `{"current": [`, ErrMalformedResponse, ErrorCategoryParsing},
		{"missing current", http.StatusOK, `{"daily": {}}`, ErrMalformedResponse, ErrorCategoryParsing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewOpenMeteoClient(server.URL, time.Second).Forecast(context.Background(), 1, 2)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Forecast() error = %v, want %v", err, tt.wantErr)
			}
			if got := CategorizeError(err); got != tt.wantCategory {
				t.Errorf("CategorizeError() = %v, want %v", got, tt.wantCategory)
			}
		})
	}
}

func TestOpenMeteoClient_Forecast_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewOpenMeteoClient(server.URL, 50*time.Millisecond).Forecast(context.Background(), 1, 2)
	if err == nil {
		t.Fatal("Forecast() expected timeout error")
	}
	if got := CategorizeError(err); got != ErrorCategoryTimeout {
		t.Errorf("CategorizeError() = %v, want timeout (err %v)", got, err)
	}
}

func TestOpenMeteoClient_Forecast_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewOpenMeteoClient(url, time.Second).Forecast(context.Background(), 1, 2)
	if got := CategorizeError(err); got != ErrorCategoryNetwork {
		t.Errorf("CategorizeError() = %v, want network (err %v)", got, err)
	}
}

func TestSoilReading(t *testing.T) {
	tests := []struct {
		fraction   float64
		wantPct    int
		wantStatus string
	}{
		{0.42, 42, "Good"},
		{0.30, 30, "Moderate"},
		{0.16, 16, "Moderate"},
		{0.15, 15, "Low"},
		{0, 0, "Low"},
	}
	for _, tt := range tests {
		got := SoilReading(tt.fraction)
		if got.Percent != tt.wantPct || got.Status != tt.wantStatus {
			t.Errorf("SoilReading(%v) = %+v, want %d %s", tt.fraction, got, tt.wantPct, tt.wantStatus)
		}
	}
}

func TestWeatherDescription_Unknown(t *testing.T) {
	if got := WeatherDescription(42); got != "Unknown" {
		t.Errorf("WeatherDescription(42) = %q, want Unknown", got)
	}
}
