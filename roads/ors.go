package roads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/co2-logistics-game/game/engine"
	"golang.org/x/time/rate"
)

const (
	DefaultORSBaseURL = "https://api.openrouteservice.org"
	DefaultORSProfile = "driving-car"

	// waycategory bit ORS sets on ferry sections
	wayCategoryFerry = 4
)

// HTTPStatusError is a non-2xx answer from ORS
type HTTPStatusError struct {
	Code int
	Body string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

// ORSProvider implements engine.RoadDistanceProvider using the OpenRouteService
// directions API. A route that needs a ferry, or that ORS cannot find at all,
// is reported as engine.ErrRouteBlocked.
//
// The provider is safe for concurrent use.
type ORSProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
	profile string
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// ORSOption configures an ORSProvider
type ORSOption func(*ORSProvider)

func WithBaseURL(u string) ORSOption {
	return func(p *ORSProvider) { p.baseURL = strings.TrimRight(u, "/") }
}

func WithProfile(profile string) ORSOption {
	return func(p *ORSProvider) { p.profile = profile }
}

func WithHTTPClient(c *http.Client) ORSOption {
	return func(p *ORSProvider) { p.client = c }
}

// WithRateLimit caps outbound requests per second
func WithRateLimit(perSecond float64, burst int) ORSOption {
	return func(p *ORSProvider) { p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

func NewORSProvider(apiKey string, logger zerolog.Logger, opts ...ORSOption) (*ORSProvider, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	p := &ORSProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: DefaultORSBaseURL,
		profile: DefaultORSProfile,
		limiter: rate.NewLimiter(rate.Limit(2), 2),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Profile returns the ORS routing profile
func (p *ORSProvider) Profile() string {
	return p.profile
}

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
	Units       string      `json:"units"`
	ExtraInfo   []string    `json:"extra_info"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
		} `json:"summary"`
		Extras map[string]struct {
			Values  [][]float64 `json:"values"`
			Summary []struct {
				Value float64 `json:"value"`
			} `json:"summary"`
		} `json:"extras"`
	} `json:"routes"`
}

// RoadDistance returns the driving distance in kilometers
func (p *ORSProvider) RoadDistance(ctx context.Context, from, to engine.Coordinates) (_ float64, err error) {
	defer timeOp(ctx, p.logger, "ors.RoadDistance")(&err)

	if err := p.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("ors rate limit: %w", err)
	}

	payload, err := json.Marshal(directionsRequest{
		// ORS takes [longitude, latitude]
		Coordinates: [][]float64{{from.Longitude, from.Latitude}, {to.Longitude, to.Latitude}},
		Units:       "km",
		ExtraInfo:   []string{"waycategory"},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal directions request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/directions/%s", p.baseURL, p.profile)
	req, err := p.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}

	resp, err := p.do(req)
	if err != nil {
		var he *HTTPStatusError
		if errors.As(err, &he) && he.Code == http.StatusNotFound {
			return 0, fmt.Errorf("ors: %w", engine.ErrRouteBlocked)
		}
		return 0, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return 0, fmt.Errorf("decode directions response: %w", err)
	}
	if len(dr.Routes) == 0 {
		return 0, fmt.Errorf("ors: %w", engine.ErrRouteBlocked)
	}

	route := dr.Routes[0]
	if wc, ok := route.Extras["waycategory"]; ok {
		for _, s := range wc.Summary {
			if int(s.Value)&wayCategoryFerry != 0 {
				return 0, fmt.Errorf("ors: route uses a ferry: %w", engine.ErrRouteBlocked)
			}
		}
		for _, v := range wc.Values {
			if len(v) == 3 && int(v[2])&wayCategoryFerry != 0 {
				return 0, fmt.Errorf("ors: route uses a ferry: %w", engine.ErrRouteBlocked)
			}
		}
	}

	return route.Summary.Distance, nil
}

func (p *ORSProvider) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", p.apiKey)
	req.Header.Set("Accept", "application/json, application/geo+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (p *ORSProvider) do(req *http.Request) (*http.Response, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &HTTPStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}
	return resp, nil
}
