// Package provider issues outbound requests to the identity provider and
// normalizes its responses into a uniform key/value shape.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTimeout indicates the whole round trip exceeded the configured timeout.
	ErrTimeout = errors.New("provider request timed out")
	// ErrUnavailable indicates a transport-level failure (DNS, refused
	// connection, reset). Callers treat it like a provider refusal.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrParse indicates a response body that matched neither its declared
	// JSON content type nor the form-encoded fallback.
	ErrParse = errors.New("unparseable provider response")
)

// BadStatusError reports a response status the relay refuses. Anything above
// 200 is rejected, including other 2xx codes; downstream behavior depends on
// this exact cutoff.
type BadStatusError struct {
	Status int
}

func (e *BadStatusError) Error() string {
	return fmt.Sprintf("provider returned HTTP status %d", e.Status)
}

// Values is the flattened body of a provider response. JSON and form-encoded
// bodies both land here; callers never learn which one was received.
type Values map[string]string

// Get returns the value for key, or "" when absent.
func (v Values) Get(key string) string {
	return v[key]
}

// Client performs bounded HTTP requests against the identity provider.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient builds a provider client. The timeout bounds connect, send and
// receive together for every request.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: http.DefaultClient,
		timeout:    timeout,
	}
}

// Request performs one round trip and parses the response body.
//
// Failures collapse into the package error taxonomy: ErrTimeout,
// ErrUnavailable, ErrParse or *BadStatusError. Callers are expected to treat
// all of them as "the provider said no".
func (c *Client) Request(ctx context.Context, method, rawURL string, header http.Header, body string) (Values, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode > http.StatusOK {
		return nil, &BadStatusError{Status: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(ctx, err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		return parseJSON(raw)
	}
	return parseForm(raw)
}

// classify maps a transport error onto the taxonomy, preferring ErrTimeout
// when the bounded context expired.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func parseJSON(raw []byte) (Values, error) {
	decoder := json.NewDecoder(strings.NewReader(string(raw)))
	decoder.UseNumber()

	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	values := make(Values, len(payload))
	for key, value := range payload {
		switch typed := value.(type) {
		case string:
			values[key] = typed
		case json.Number:
			values[key] = typed.String()
		case bool:
			values[key] = strconv.FormatBool(typed)
		}
	}
	return values, nil
}

func parseForm(raw []byte) (Values, error) {
	parsed, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	values := make(Values, len(parsed))
	for key := range parsed {
		values[key] = parsed.Get(key)
	}
	return values, nil
}
