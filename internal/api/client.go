package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// maxResponseBytes caps JSON responses read from the backend
const maxResponseBytes = 1 << 20

// Config holds backend client configuration
type Config struct {
	BaseURL string        // Backend root, e.g. http://localhost:5000
	Timeout time.Duration // Per-request timeout (0 = no timeout)

	// Circuit breaker settings
	MaxFailures uint32        // Consecutive failures before the breaker opens
	OpenTimeout time.Duration // How long the breaker stays open

	HTTPClient *http.Client // Optional custom HTTP client
}

// DefaultConfig returns sensible defaults for a local backend
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "http://localhost:5000",
		Timeout:     120 * time.Second,
		MaxFailures: 3,
		OpenTimeout: 30 * time.Second,
	}
}

// Client talks to the poetry backend
type Client struct {
	base    *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// response is a raw backend answer
type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

// NewClient creates a new backend client
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.MaxFailures == 0 {
		config.MaxFailures = defaults.MaxFailures
	}
	if config.OpenTimeout == 0 {
		config.OpenTimeout = defaults.OpenTimeout
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", config.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	maxFailures := config.MaxFailures
	settings := gobreaker.Settings{
		Name:        "poetry-backend",
		MaxRequests: 1,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Backend circuit breaker changed state")
		},
	}

	return &Client{
		base:    base,
		http:    httpClient,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}, nil
}

// BaseURL returns the backend root the client talks to
func (c *Client) BaseURL() string {
	return c.base.String()
}

// GeneratePoem asks the backend to write a poem for the given text
func (c *Client) GeneratePoem(ctx context.Context, text string) (*Poem, error) {
	resp, err := c.postJSON(ctx, EndpointGeneratePoem, generatePoemRequest{Text: text})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, statusError(EndpointGeneratePoem, resp)
	}

	var poem Poem
	if err := json.Unmarshal(resp.body, &poem); err != nil {
		return nil, &Error{Kind: KindMalformed, Endpoint: EndpointGeneratePoem, Message: "invalid JSON", Cause: err}
	}
	if strings.TrimSpace(poem.Title) == "" || strings.TrimSpace(poem.Content) == "" {
		return nil, &Error{Kind: KindMalformed, Endpoint: EndpointGeneratePoem, Message: "poem is missing title or content"}
	}

	return &poem, nil
}

// GenerateImage asks the backend to paint an image for the poem body and
// returns its URL as given by the backend (usually server-relative)
func (c *Client) GenerateImage(ctx context.Context, poemContent string) (string, error) {
	resp, err := c.postJSON(ctx, EndpointGenerateImage, generateImageRequest{Poetry: poemContent})
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", statusError(EndpointGenerateImage, resp)
	}

	var data generateImageResponse
	if err := json.Unmarshal(resp.body, &data); err != nil {
		return "", &Error{Kind: KindMalformed, Endpoint: EndpointGenerateImage, Message: "invalid JSON", Cause: err}
	}
	if data.ImageURL == "" {
		return "", &Error{Kind: KindMalformed, Endpoint: EndpointGenerateImage, Message: "response has no image_url"}
	}

	return data.ImageURL, nil
}

// ComposeCard asks the backend to write title and body onto the image and
// returns the URL of the composed card
func (c *Client) ComposeCard(ctx context.Context, title, content, imagePath string) (string, error) {
	req := generateCardRequest{
		PoetryTitle:   title,
		PoetryContent: content,
		ImagePath:     imagePath,
	}

	resp, err := c.postJSON(ctx, EndpointGenerateCard, req)
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", statusError(EndpointGenerateCard, resp)
	}

	var data generateCardResponse
	if err := json.Unmarshal(resp.body, &data); err != nil {
		return "", &Error{Kind: KindMalformed, Endpoint: EndpointGenerateCard, Message: "invalid JSON", Cause: err}
	}

	cardURL := data.CardURL
	if cardURL == "" {
		cardURL = data.URL
	}
	if !data.Success || cardURL == "" {
		return "", &Error{Kind: KindRejected, Endpoint: EndpointGenerateCard, Message: data.Error}
	}

	return cardURL, nil
}

// SavePoem persists a poem through the backend database
func (c *Client) SavePoem(ctx context.Context, req *SaveRequest) error {
	resp, err := c.postJSON(ctx, EndpointSavePoem, req)
	if err != nil {
		return err
	}

	// The backend reports save failures in the body, whatever the status
	var data savePoemResponse
	if err := json.Unmarshal(resp.body, &data); err != nil {
		if !resp.ok() {
			return statusError(EndpointSavePoem, resp)
		}
		return &Error{Kind: KindMalformed, Endpoint: EndpointSavePoem, Message: "invalid JSON", Cause: err}
	}

	if !data.Success {
		msg := data.Error
		if msg == "" {
			msg = "unknown error"
		}
		return &Error{Kind: KindRejected, Endpoint: EndpointSavePoem, Status: resp.status, Message: msg}
	}

	return nil
}

// ResolveURL turns a server-relative reference into an absolute URL
func (c *Client) ResolveURL(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid image URL %q: %w", ref, err)
	}
	return c.base.ResolveReference(u).String(), nil
}

// Download fetches the resource at ref, resolved against the backend root
func (c *Client) Download(ctx context.Context, ref string) (io.ReadCloser, error) {
	target, err := c.ResolveURL(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Endpoint: ref, Cause: err}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &Error{Kind: KindStatus, Endpoint: ref, Status: resp.StatusCode}
	}

	return resp.Body, nil
}

// postJSON sends payload to endpoint through the circuit breaker. Transport
// failures and 5xx answers count against the breaker; anything else is
// returned for the caller to interpret.
func (c *Client) postJSON(ctx context.Context, endpoint string, payload interface{}) (*response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", endpoint, err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, endpoint, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &Error{Kind: KindUnavailable, Endpoint: endpoint, Cause: err}
		}
		return nil, err
	}

	return result.(*response), nil
}

func (c *Client) do(ctx context.Context, endpoint string, body []byte) (*response, error) {
	target := c.base.ResolveReference(&url.URL{Path: endpoint})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Endpoint: endpoint, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Endpoint: endpoint, Status: resp.StatusCode, Cause: err}
	}

	logrus.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"status":   resp.StatusCode,
		"elapsed":  time.Since(start).Round(time.Millisecond).String(),
	}).Debug("Backend call finished")

	r := &response{status: resp.StatusCode, body: data}
	if resp.StatusCode >= 500 {
		return nil, statusError(endpoint, r)
	}
	return r, nil
}

// statusError builds a KindStatus error, using the backend's error text when present
func statusError(endpoint string, resp *response) error {
	var data errorResponse
	_ = json.Unmarshal(resp.body, &data)
	return &Error{Kind: KindStatus, Endpoint: endpoint, Status: resp.status, Message: data.Error}
}
