package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ReverseGeocoder turns a coordinate into a best-effort place name.
// An empty name with a nil error means no match.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// NominatimClient implements ReverseGeocoder against an OpenStreetMap
// Nominatim reverse endpoint. Calls are paced by a token bucket to honour
// the public instance's usage policy.
type NominatimClient struct {
	apiURL    string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
	client    *http.Client
}

// NewNominatimClient returns a client issuing at most rps requests per second.
func NewNominatimClient(apiURL, userAgent string, timeout time.Duration, rps float64) *NominatimClient {
	return &NominatimClient{
		apiURL:    apiURL,
		userAgent: userAgent,
		timeout:   timeout,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		client:    &http.Client{Timeout: timeout},
	}
}

type nominatimResponse struct {
	Name    string `json:"name"`
	Address struct {
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
		StateDistrict string `json:"state_district"`
		County        string `json:"county"`
	} `json:"address"`
	Error string `json:"error"`
}

func (c *NominatimClient) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Waiting for a token counts against the same short timeout.
	if err := c.limiter.Wait(reqCtx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid geocoder URL: %w", err)
	}
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", strconv.FormatFloat(lat, 'f', 5, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 5, 64))
	params.Set("zoom", "10")
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	var resp nominatimResponse
	if err := doJSON(c.client, upstreamGeocoder, req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", nil
	}
	return pickPlaceName(resp), nil
}

func pickPlaceName(r nominatimResponse) string {
	for _, s := range []string{r.Address.City, r.Address.Town, r.Address.Village, r.Address.StateDistrict, r.Address.County, r.Name} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
