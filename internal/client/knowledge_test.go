package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kjstillabower/krishi-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/krishi-dashboard/internal/models"
	"github.com/kjstillabower/krishi-dashboard/internal/observability"
)

type requestLog struct {
	mu   sync.Mutex
	reqs []*http.Request
}

func (l *requestLog) first() *http.Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reqs[0]
}

func newKnowledgeServer(t *testing.T, routes map[string]string) (*httptest.Server, *requestLog) {
	t.Helper()
	seen := &requestLog{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.mu.Lock()
		seen.reqs = append(seen.reqs, r)
		seen.mu.Unlock()
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, seen
}

func TestHTTPKnowledgeClient_MarketPrices(t *testing.T) {
	server, seen := newKnowledgeServer(t, map[string]string{
		"/api/market-prices": `{"prices": [{"crop": "Wheat", "mandi": "Azadpur", "price": 2275, "unit": "qt", "change": 1.2, "history": [2200, 2250, 2275]}]}`,
	})
	c := NewHTTPKnowledgeClient(server.URL+"/api/", time.Second)

	got, err := c.MarketPrices(context.Background(), "Maharashtra", models.LanguageHindi)
	if err != nil {
		t.Fatalf("MarketPrices() error = %v", err)
	}
	if len(got) != 1 || got[0].Crop != "Wheat" || got[0].Price != 2275 {
		t.Errorf("MarketPrices() = %+v", got)
	}
	q := seen.first().URL.Query()
	if q.Get("state") != "Maharashtra" || q.Get("lang") != "hi" {
		t.Errorf("query = %v, want state=Maharashtra lang=hi", q)
	}
}

func TestHTTPKnowledgeClient_NoRegionOmitsState(t *testing.T) {
	server, seen := newKnowledgeServer(t, map[string]string{
		"/popular": `{"categories": [{"name": "Pests", "questions": ["How to control aphids?"]}]}`,
	})
	c := NewHTTPKnowledgeClient(server.URL, time.Second)

	if _, err := c.PopularQuestions(context.Background(), models.LanguageEnglish); err != nil {
		t.Fatalf("PopularQuestions() error = %v", err)
	}
	q := seen.first().URL.Query()
	if _, ok := q["state"]; ok {
		t.Errorf("query has state param: %v", q)
	}
	if q.Get("lang") != "en" {
		t.Errorf("lang = %q, want en", q.Get("lang"))
	}
}

func TestHTTPKnowledgeClient_MalformedShapes(t *testing.T) {
	server, _ := newKnowledgeServer(t, map[string]string{
		"/market-prices":  `{"data": []}`,
		"/seasonal-tip":   `{"tip": {"title": "Rabi"}}`,
		"/crop-calendar":  `{"season": "Rabi"}`,
		"/predict":        `[2000, 2150]`,
		"/advisory":       `[]`,
		"/popular":        `{"categories": "nope"}`,
		"/crop-guide":     `{}`,
		"/pest-solutions": `not json`,
	})
	c := NewHTTPKnowledgeClient(server.URL, time.Second)
	ctx := context.Background()
	loc := models.LocationRecord{Name: "Pune", Region: "Maharashtra"}

	calls := map[string]func() error{
		"MarketPrices": func() error { _, err := c.MarketPrices(ctx, "", ""); return err },
		"SeasonalTip":  func() error { _, err := c.SeasonalTip(ctx, loc, "en"); return err },
		"CropCalendar": func() error { _, err := c.CropCalendar(ctx, "", "en"); return err },
		"Prediction":   func() error { _, err := c.Prediction(ctx, "Wheat", ""); return err },
		"Advisory":     func() error { _, err := c.Advisory(ctx, "", "en"); return err },
		"Popular":      func() error { _, err := c.PopularQuestions(ctx, "en"); return err },
		"CropGuide":    func() error { _, err := c.CropGuide(ctx, "en"); return err },
		"PestGuide":    func() error { _, err := c.PestGuide(ctx, "en"); return err },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			err := call()
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("error = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestHTTPKnowledgeClient_Prediction(t *testing.T) {
	server, seen := newKnowledgeServer(t, map[string]string{
		"/predict": `{"crop": "Wheat", "msp": 2275, "current_price": 2000, "predicted_price": 2150,
			"history": [{"date": "2026-10-17", "price": 1990}, {"date": "2026-10-18", "price": 2000}],
			"prediction": [{"date": "2026-10-19", "price": 2050, "lower": 1980, "upper": 2120}],
			"trend": "rising", "source": "data.gov.in"}`,
	})
	c := NewHTTPKnowledgeClient(server.URL, time.Second)

	got, err := c.Prediction(context.Background(), "Wheat", "Punjab")
	if err != nil {
		t.Fatalf("Prediction() error = %v", err)
	}
	if got.MSP == nil || *got.MSP != 2275 {
		t.Errorf("MSP = %v, want 2275", got.MSP)
	}
	if got.Prediction[0].Upper == nil || *got.Prediction[0].Upper != 2120 {
		t.Errorf("Prediction[0].Upper = %v", got.Prediction[0].Upper)
	}
	if q := seen.first().URL.Query(); q.Get("crop") != "Wheat" || q.Get("state") != "Punjab" {
		t.Errorf("query = %v", q)
	}
}

func TestHTTPKnowledgeClient_Query(t *testing.T) {
	var got models.ChatRequest
	var corrID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/query" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		corrID = r.Header.Get("X-Correlation-ID")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"offline_answer": "Use neem oil.", "results": [{"crop": "Cotton", "confidence": 87.5}], "elapsed": 0.4}`))
	}))
	defer server.Close()

	ctx := observability.WithCorrelationID(context.Background(), "corr-123")
	resp, err := NewHTTPKnowledgeClient(server.URL, time.Second).Query(ctx, models.ChatRequest{Query: "aphids", OnlineMode: false, TopK: 5})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got.Query != "aphids" || got.OnlineMode || got.TopK != 5 {
		t.Errorf("forwarded request = %+v", got)
	}
	if corrID != "corr-123" {
		t.Errorf("X-Correlation-ID = %q, want corr-123", corrID)
	}
	if resp.OfflineAnswer != "Use neem oil." || len(resp.Results) != 1 {
		t.Errorf("Query() = %+v", resp)
	}
}

func TestHTTPKnowledgeClient_BreakerFailsFast(t *testing.T) {
	server, seen := newKnowledgeServer(t, map[string]string{})
	c := NewHTTPKnowledgeClient(server.URL+"/api", time.Second)
	c.SetBreaker(circuitbreaker.New(circuitbreaker.Config{FailureThreshold: 2, Cooldown: time.Minute, Upstream: "knowledge"}))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := c.CropGuide(ctx, models.LanguageEnglish); err == nil {
			t.Fatalf("call %d: expected upstream error", i)
		}
	}
	_, err := c.PestGuide(ctx, models.LanguageEnglish)
	if !errors.Is(err, circuitbreaker.ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
	if CategorizeError(err) != ErrorCategoryCircuitOpen {
		t.Errorf("category = %q", CategorizeError(err))
	}
	seen.mu.Lock()
	defer seen.mu.Unlock()
	if len(seen.reqs) != 2 {
		t.Errorf("upstream requests = %d, want 2", len(seen.reqs))
	}
}
