package matheval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"counter-bot/internal/utils"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultUserAgent = "counter-bot/1.0.0"
	maxResponseBytes = 64 << 10
)

// Client talks to a sandboxed arithmetic evaluation service.
type Client struct {
	endpoint  string
	http      *http.Client
	userAgent string
}

func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := utils.NormalizeEndpoint(baseURL)
	if err != nil {
		return nil, fmt.Errorf("matheval endpoint: %w", err)
	}
	c := &Client{
		endpoint:  utils.JoinPath(base, "/calculate"),
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Calculate submits expression and returns the numeric result.
func (c *Client) Calculate(ctx context.Context, expression string) (float64, error) {
	body, err := json.Marshal(calculateRequest{Expression: expression, Variables: map[string]any{}})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("matheval http: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return 0, &APIError{Status: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var dto calculateResponse
	dec := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes))
	dec.UseNumber()
	if err := dec.Decode(&dto); err != nil {
		return 0, fmt.Errorf("matheval decode: %w", err)
	}
	if isTruthy(dto.Error) {
		return 0, &EvaluationError{Detail: strings.TrimSpace(string(dto.Error))}
	}
	return resultValue(dto.Result)
}

// resultValue accepts a JSON number or a numeric string, like the upstream
// service returns depending on its version.
func resultValue(raw any) (float64, error) {
	var value float64
	switch v := raw.(type) {
	case json.Number:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return 0, ErrNoResult
		}
		value = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, ErrNoResult
		}
		value = f
	default:
		return 0, ErrNoResult
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrNoResult
	}
	return value, nil
}

func isTruthy(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", `""`, "0":
		return false
	default:
		return true
	}
}
