package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/krishi-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

// KnowledgeClient reads structured reference content from the knowledge
// service. region and lang filter results; empty values mean unfiltered.
type KnowledgeClient interface {
	MarketPrices(ctx context.Context, region string, lang models.Language) ([]models.TickerEntry, error)
	SeasonalTip(ctx context.Context, loc models.LocationRecord, lang models.Language) (models.SeasonalTip, error)
	CropCalendar(ctx context.Context, region string, lang models.Language) (models.CropCalendar, error)
	Prediction(ctx context.Context, crop, region string) (models.PredictionResponse, error)
	Advisory(ctx context.Context, region string, lang models.Language) ([]models.Advisory, error)
	PopularQuestions(ctx context.Context, lang models.Language) ([]models.QuestionCategory, error)
	CropGuide(ctx context.Context, lang models.Language) ([]models.CropGuideEntry, error)
	PestGuide(ctx context.Context, lang models.Language) ([]models.PestGuideEntry, error)
	Query(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error)
}

// HTTPKnowledgeClient implements KnowledgeClient over the reference
// service's JSON API. Identical concurrent GETs share one upstream call.
type HTTPKnowledgeClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	group   singleflight.Group
	breaker *circuitbreaker.Breaker
}

// NewHTTPKnowledgeClient returns a client rooted at baseURL (e.g.
// "http://localhost:5000/api").
func NewHTTPKnowledgeClient(baseURL string, timeout time.Duration) *HTTPKnowledgeClient {
	return &HTTPKnowledgeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetBreaker guards every call with b.
func (c *HTTPKnowledgeClient) SetBreaker(b *circuitbreaker.Breaker) {
	c.breaker = b
}

func (c *HTTPKnowledgeClient) MarketPrices(ctx context.Context, region string, lang models.Language) ([]models.TickerEntry, error) {
	var body struct {
		Prices *[]models.TickerEntry `json:"prices"`
	}
	if err := c.get(ctx, "/market-prices", filter(region, lang), &body); err != nil {
		return nil, err
	}
	if body.Prices == nil {
		return nil, fmt.Errorf("%w: missing prices", ErrMalformedResponse)
	}
	return *body.Prices, nil
}

func (c *HTTPKnowledgeClient) SeasonalTip(ctx context.Context, loc models.LocationRecord, lang models.Language) (models.SeasonalTip, error) {
	params := filter(loc.Region, lang)
	params.Set("location", loc.Name)
	var body struct {
		Tip *models.SeasonalTip `json:"tip"`
	}
	if err := c.get(ctx, "/seasonal-tip", params, &body); err != nil {
		return models.SeasonalTip{}, err
	}
	if body.Tip == nil || body.Tip.Text == "" {
		return models.SeasonalTip{}, fmt.Errorf("%w: missing tip", ErrMalformedResponse)
	}
	return *body.Tip, nil
}

func (c *HTTPKnowledgeClient) CropCalendar(ctx context.Context, region string, lang models.Language) (models.CropCalendar, error) {
	var body models.CropCalendar
	if err := c.get(ctx, "/crop-calendar", filter(region, lang), &body); err != nil {
		return models.CropCalendar{}, err
	}
	if body.Entries == nil {
		return models.CropCalendar{}, fmt.Errorf("%w: missing entries", ErrMalformedResponse)
	}
	return body, nil
}

func (c *HTTPKnowledgeClient) Prediction(ctx context.Context, crop, region string) (models.PredictionResponse, error) {
	params := filter(region, "")
	params.Set("crop", crop)
	var body models.PredictionResponse
	if err := c.get(ctx, "/predict", params, &body); err != nil {
		return models.PredictionResponse{}, err
	}
	return body, nil
}

func (c *HTTPKnowledgeClient) Advisory(ctx context.Context, region string, lang models.Language) ([]models.Advisory, error) {
	var body struct {
		Advisories *[]models.Advisory `json:"advisories"`
	}
	if err := c.get(ctx, "/advisory", filter(region, lang), &body); err != nil {
		return nil, err
	}
	if body.Advisories == nil {
		return nil, fmt.Errorf("%w: missing advisories", ErrMalformedResponse)
	}
	return *body.Advisories, nil
}

func (c *HTTPKnowledgeClient) PopularQuestions(ctx context.Context, lang models.Language) ([]models.QuestionCategory, error) {
	var body struct {
		Categories *[]models.QuestionCategory `json:"categories"`
	}
	if err := c.get(ctx, "/popular", filter("", lang), &body); err != nil {
		return nil, err
	}
	if body.Categories == nil {
		return nil, fmt.Errorf("%w: missing categories", ErrMalformedResponse)
	}
	return *body.Categories, nil
}

func (c *HTTPKnowledgeClient) CropGuide(ctx context.Context, lang models.Language) ([]models.CropGuideEntry, error) {
	var body struct {
		Crops *[]models.CropGuideEntry `json:"crops"`
	}
	if err := c.get(ctx, "/crop-guide", filter("", lang), &body); err != nil {
		return nil, err
	}
	if body.Crops == nil {
		return nil, fmt.Errorf("%w: missing crops", ErrMalformedResponse)
	}
	return *body.Crops, nil
}

func (c *HTTPKnowledgeClient) PestGuide(ctx context.Context, lang models.Language) ([]models.PestGuideEntry, error) {
	var body struct {
		Pests *[]models.PestGuideEntry `json:"pests"`
	}
	if err := c.get(ctx, "/pest-solutions", filter("", lang), &body); err != nil {
		return nil, err
	}
	if body.Pests == nil {
		return nil, fmt.Errorf("%w: missing pests", ErrMalformedResponse)
	}
	return *body.Pests, nil
}

// Query forwards a chat question. It is never coalesced.
func (c *HTTPKnowledgeClient) Query(ctx context.Context, q models.ChatRequest) (models.ChatResponse, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(q)
	if err != nil {
		return models.ChatResponse{}, fmt.Errorf("encode query: %w", err)
	}
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(payload))
	if err != nil {
		return models.ChatResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp models.ChatResponse
	err = guarded(ctx, c.breaker, func() error {
		return doJSON(c.client, upstreamKnowledge, req, &resp)
	})
	if err != nil {
		return models.ChatResponse{}, err
	}
	return resp, nil
}

// get issues a GET for path?params and decodes into out. Concurrent calls
// for the same URL share one request; each caller gets its own decode.
func (c *HTTPKnowledgeClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	v, err, _ := c.group.Do(u, func() (interface{}, error) {
		reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		var raw json.RawMessage
		err = guarded(reqCtx, c.breaker, func() error {
			return doJSON(c.client, upstreamKnowledge, req, &raw)
		})
		if err != nil {
			return nil, err
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(v.(json.RawMessage), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func filter(region string, lang models.Language) url.Values {
	params := url.Values{}
	if region != "" {
		params.Set("state", region)
	}
	if lang != "" {
		params.Set("lang", string(lang))
	}
	return params
}
