// Package googlemaps provides a client for the Google Directions API.
package googlemaps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/troski/troski-backend/internal/provider/resilience"
	"github.com/troski/troski-backend/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "googlemaps"

	// DefaultBaseURL is the Google Maps Platform base URL.
	DefaultBaseURL = "https://maps.googleapis.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	directionsPath = "/maps/api/directions/json"

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 8 << 20
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Google Directions client.
type ClientConfig struct {
	// APIKey is the Maps Platform API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to Google).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a single-attempt resilient client.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 10s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Language is passed to the provider for localized text (optional).
	Language string

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Google Directions API client. It implements routing.Fetcher.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Google Directions client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.MaxRetries = 0
		clientCfg.Registry = cfg.Registry
		clientCfg.Logger = cfg.Logger
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		language:   cfg.Language,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// FetchAlternatives retrieves route alternatives with live-traffic durations
// in a single round trip.
func (c *Client) FetchAlternatives(ctx context.Context, req routing.DirectionsRequest) ([]routing.RouteAlternative, error) {
	if strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
		return nil, routing.ErrMissingEndpoint
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.directionsURL(req), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("origin", req.Origin).
		Str("destination", req.Destination).
		Bool("alternatives", req.Alternatives).
		Msg("requesting directions from Google")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		code := "REQUEST_FAILED"
		if errors.Is(err, resilience.ErrCircuitOpen) {
			code = "CIRCUIT_OPEN"
		}
		return nil, &routing.UpstreamError{
			Provider: ProviderName,
			Code:     code,
			Message:  "failed to reach routing provider",
			Err:      fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &routing.UpstreamError{
			Provider: ProviderName,
			Code:     "READ_FAILED",
			Message:  "failed to read routing provider response",
			Err:      fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, handleErrorResponse(resp.StatusCode, contentType, body)
	}

	var gmResp gmResponse
	if err := json.Unmarshal(body, &gmResp); err != nil {
		return nil, &routing.UpstreamError{
			Provider: ProviderName,
			Code:     "DECODE_FAILED",
			Message:  "routing provider returned an unreadable response",
			Err:      fmt.Errorf("%w: decoding response: %w", routing.ErrProviderUnavailable, err),
		}
	}

	if err := handleStatus(&gmResp, contentType, body); err != nil {
		c.logger.Warn().
			Str("status", gmResp.Status).
			Str("error_message", gmResp.ErrorMessage).
			Msg("Google rejected directions request")
		return nil, err
	}

	alts := make([]routing.RouteAlternative, 0, len(gmResp.Routes))
	for i := range gmResp.Routes {
		alts = append(alts, gmResp.Routes[i].toAlternative())
	}

	c.logger.Debug().
		Str("status", gmResp.Status).
		Int("route_count", len(alts)).
		Msg("received directions from Google")

	return alts, nil
}

// directionsURL builds the request URL. It carries the API key and must not be logged.
func (c *Client) directionsURL(req routing.DirectionsRequest) string {
	q := url.Values{}
	q.Set("origin", req.Origin)
	q.Set("destination", req.Destination)
	if req.Alternatives {
		q.Set("alternatives", "true")
	}
	q.Set("departure_time", "now")
	if c.language != "" {
		q.Set("language", c.language)
	}
	q.Set("key", c.apiKey)
	return c.baseURL + directionsPath + "?" + q.Encode()
}

// handleErrorResponse wraps a non-2xx response. Status and body are kept
// verbatim so the caller can relay them.
func handleErrorResponse(statusCode int, contentType string, body []byte) error {
	sentinel := routing.ErrProviderRejected
	message := fmt.Sprintf("routing provider rejected the request with status %d", statusCode)
	if statusCode >= 500 {
		sentinel = routing.ErrProviderUnavailable
		message = "routing provider is temporarily unavailable"
	}

	return &routing.UpstreamError{
		Provider:    ProviderName,
		Code:        fmt.Sprintf("HTTP_%d", statusCode),
		Message:     message,
		StatusCode:  statusCode,
		Body:        body,
		ContentType: contentType,
		Err:         sentinel,
	}
}

// handleStatus maps the status field of a 200 response. OK and the
// no-route statuses are not errors.
func handleStatus(resp *gmResponse, contentType string, body []byte) error {
	var statusCode int
	sentinel := routing.ErrProviderRejected

	switch resp.Status {
	case statusOK:
		return nil
	case statusZeroResults, statusNotFound:
		resp.Routes = nil
		return nil
	case statusInvalidRequest:
		statusCode = http.StatusBadRequest
	case statusRequestDenied:
		statusCode = http.StatusForbidden
	case statusOverQueryLimit, statusOverDailyLimit:
		statusCode = http.StatusTooManyRequests
	default:
		statusCode = http.StatusBadGateway
		sentinel = routing.ErrProviderUnavailable
	}

	code := resp.Status
	if code == "" {
		code = statusUnknownError
	}
	message := resp.ErrorMessage
	if message == "" {
		message = "routing provider returned status " + code
	}

	return &routing.UpstreamError{
		Provider:    ProviderName,
		Code:        code,
		Message:     message,
		StatusCode:  statusCode,
		Body:        body,
		ContentType: contentType,
		Err:         sentinel,
	}
}
