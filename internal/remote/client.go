// Package remote talks to the simulation execution service over HTTP.
package remote

import (
	"bytes"
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

	"go.uber.org/zap"

	"github.com/ppiankov/malcamp/internal/model"
	"github.com/ppiankov/malcamp/internal/util"
	"github.com/ppiankov/malcamp/internal/worker"
)

// ErrNotFound is returned when the service has no such simulation or file.
var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx response. RetryAfter is the wait the service
// asked for, if any.
type StatusError struct {
	Method     string
	Path       string
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client implements the experiment service API.
type Client struct {
	baseURL    *url.URL
	token      string
	userAgent  string
	maxRetries int
	httpClient *http.Client
	limiter    *worker.Limiter
	logger     *zap.Logger
	now        func() time.Time
}

// NewClient creates a client from service and rate limiting settings.
func NewClient(cfg model.ServiceConfig, rl model.RateLimitingConfig, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("service url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("service url %q: missing scheme or host", cfg.URL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	return &Client{
		baseURL:    base,
		token:      cfg.Token,
		userAgent:  cfg.UserAgent,
		maxRetries: maxRetries,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
		},
		limiter: worker.NewLimiter(rl.RequestsPerSecond, rl.BurstSize),
		logger:  logger.Named("remote"),
		now:     time.Now,
	}, nil
}

type experimentBody struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateExperiment registers the experiment with the service.
func (c *Client) CreateExperiment(ctx context.Context, exp model.Experiment) error {
	body, err := json.Marshal(experimentBody{Name: exp.Name, CreatedAt: exp.CreatedAt})
	if err != nil {
		return fmt.Errorf("encode experiment: %w", err)
	}
	_, err = c.do(ctx, http.MethodPut, "/api/experiments/"+url.PathEscape(exp.ID), body)
	return err
}

type simulationBody struct {
	Tags  map[string]any             `json:"tags"`
	Files map[string]json.RawMessage `json:"files"`
}

// SubmitSimulation uploads a simulation's tags and input files. Files must
// hold JSON documents.
func (c *Client) SubmitSimulation(ctx context.Context, sim model.Simulation, files map[string][]byte) error {
	payload := simulationBody{Tags: sim.Tags, Files: make(map[string]json.RawMessage, len(files))}
	for name, data := range files {
		if !json.Valid(data) {
			return fmt.Errorf("submit %s: file %s is not valid JSON", sim.ID, name)
		}
		payload.Files[name] = json.RawMessage(data)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode simulation: %w", err)
	}

	path := fmt.Sprintf("/api/experiments/%s/simulations/%s", url.PathEscape(sim.ExperimentID), url.PathEscape(sim.ID))
	if _, err := c.do(ctx, http.MethodPut, path, body); err != nil {
		return err
	}
	c.logger.Debug("submitted simulation", zap.String("simulation_id", sim.ID))
	return nil
}

type stateBody struct {
	State model.SimulationState `json:"state"`
}

// SimulationState returns the current state of a simulation.
func (c *Client) SimulationState(ctx context.Context, simulationID string) (model.SimulationState, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/simulations/"+url.PathEscape(simulationID), nil)
	if err != nil {
		return "", err
	}
	var sb stateBody
	if err := json.Unmarshal(data, &sb); err != nil {
		return "", fmt.Errorf("decode state of %s: %w", simulationID, err)
	}
	return sb.State, nil
}

// SimulationFile downloads one output file of a simulation.
func (c *Client) SimulationFile(ctx context.Context, simulationID, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, fmt.Sprintf("/api/simulations/%s/files/%s", url.PathEscape(simulationID), strings.TrimLeft(path, "/")), nil)
}

// do sends a request, retrying transient failures with exponential backoff.
// The backoff, or a longer Retry-After, holds back every request to the
// service host, and the wait ends early when ctx is done.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	target := c.baseURL.String() + path
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		data, err := c.once(ctx, method, path, target, body)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil || !isRetryable(err) {
			return nil, err
		}
		if attempt < c.maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			var se *StatusError
			if errors.As(err, &se) && se.RetryAfter > backoff {
				backoff = se.RetryAfter
			}
			c.logger.Warn("retrying request",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			if err := c.limiter.HoldOff(target, backoff); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, method, path, target string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx, target); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			Code:       resp.StatusCode,
			Body:       truncate(string(data), 200),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After"), c.now()),
		}
	}
	return data, nil
}

// isRetryable returns true for errors that indicate transient failures
func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}

// retryAfter parses a Retry-After value given in seconds or as an HTTP date.
func retryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
