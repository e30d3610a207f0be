// Package inference talks to the remote edge-inference server that predicts
// per-vertex edge labels for a mesh.
package inference

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

	"go.uber.org/zap"

	"github.com/Faultbox/lithicmark/internal/logger"
	"github.com/Faultbox/lithicmark/pkg/mesh"
)

// DefaultTimeout bounds a single request. Inference runs can take minutes.
const DefaultTimeout = 5 * time.Minute

var (
	// ErrNotConfigured is returned when the server URL or API key is empty.
	ErrNotConfigured = errors.New("inference client not configured")

	// ErrNoLabels is returned when a run result carries no label array.
	ErrNoLabels = errors.New("inference result has no labels")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Detail)
}

// Config is the server-side inference configuration of a session.
type Config struct {
	NAngles       int        `json:"n_angles"`
	MaxSteps      int        `json:"max_steps"`
	Gamma         float64    `json:"gamma"`
	EdgeThreshold float64    `json:"edge_threshold"`
	Thresholds    [2]float64 `json:"thresholds"`
	Resolution    [2]int     `json:"resolution"`
	Zoom          float64    `json:"zoom"`
	Norm          string     `json:"norm"`
}

// DefaultConfig mirrors the server defaults.
func DefaultConfig() Config {
	return Config{
		NAngles:       6,
		MaxSteps:      5000,
		Gamma:         0.95,
		EdgeThreshold: 0.5,
		Thresholds:    [2]float64{0.5, 0.8},
		Resolution:    [2]int{512, 512},
		Zoom:          1.0,
		Norm:          "minmax",
	}
}

// Session is an inference session on the server.
type Session struct {
	ID      string `json:"session_id"`
	HasData bool   `json:"has_data,omitempty"`
}

// Health is the server health report.
type Health struct {
	Status string `json:"status"`
}

// Result holds the labels of an inference run. Values are 0/1 or
// probabilities.
type Result struct {
	Labels []float64
}

// Client is an inference server client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client. A server URL without a scheme gets http for
// localhost and 127.0.0.1 and https otherwise; trailing slashes are dropped.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		baseURL:    NormalizeURL(serverURL),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Configured reports whether both server URL and API key are set.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// NormalizeURL applies the scheme and trailing slash rules of NewClient.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		if strings.HasPrefix(u, "localhost") || strings.HasPrefix(u, "127.0.0.1") {
			u = "http://" + u
		} else {
			u = "https://" + u
		}
	}
	return strings.TrimRight(u, "/")
}

// do sends a request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	logger.Debug("inference request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail struct {
			Detail any `json:"detail"`
		}
		if raw, _ := io.ReadAll(resp.Body); json.Unmarshal(raw, &detail) == nil && detail.Detail != nil {
			if s, ok := detail.Detail.(string); ok {
				apiErr.Detail = s
			} else {
				enc, _ := json.Marshal(detail.Detail)
				apiErr.Detail = string(enc)
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Health checks the server.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// CreateSession opens a session. A nil cfg keeps the server defaults.
func (c *Client) CreateSession(ctx context.Context, cfg *Config) (*Session, error) {
	body := map[string]any{}
	if cfg != nil {
		body["config"] = cfg
	}
	var s Session
	if err := c.do(ctx, http.MethodPost, "/inference/sessions", body, &s); err != nil {
		return nil, err
	}
	if s.ID == "" {
		return nil, fmt.Errorf("create session: server returned no session_id")
	}
	return &s, nil
}

// DeleteSession closes a session.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/inference/sessions/"+id, nil, nil)
}

// UpdateSessionConfig replaces the configuration of a session.
func (c *Client) UpdateSessionConfig(ctx context.Context, id string, cfg Config) error {
	return c.do(ctx, http.MethodPatch, "/inference/sessions/"+id+"/config", cfg, nil)
}

type loadDirectRequest struct {
	Vertices [][3]float32 `json:"vertices"`
	Faces    [][3]uint32  `json:"faces"`
	Name     string       `json:"name"`
}

// LoadMesh uploads mesh geometry into a session without storing a file.
func (c *Client) LoadMesh(ctx context.Context, id string, m *mesh.Mesh, name string) error {
	if name == "" {
		name = "mesh"
	}
	req := loadDirectRequest{
		Vertices: make([][3]float32, m.VertexCount()),
		Faces:    make([][3]uint32, m.TriangleCount()),
		Name:     name,
	}
	for v := range req.Vertices {
		req.Vertices[v] = m.Vertex(v).Array()
	}
	for f := range req.Faces {
		req.Faces[f] = [3]uint32{m.Indices[f*3], m.Indices[f*3+1], m.Indices[f*3+2]}
	}
	return c.do(ctx, http.MethodPost, "/inference/sessions/"+id+"/load-direct", req, nil)
}

type runResponse struct {
	Result struct {
		Labels      []float64 `json:"labels"`
		EdgeLabels  []float64 `json:"edge_labels"`
		Predictions []float64 `json:"predictions"`
	} `json:"result"`
}

// Run runs inference on the data loaded into a session.
func (c *Client) Run(ctx context.Context, id string) (*Result, error) {
	var resp runResponse
	if err := c.do(ctx, http.MethodPost, "/inference/sessions/"+id+"/run", nil, &resp); err != nil {
		return nil, err
	}

	labels := resp.Result.Labels
	if labels == nil {
		labels = resp.Result.EdgeLabels
	}
	if labels == nil {
		labels = resp.Result.Predictions
	}
	if labels == nil {
		return nil, ErrNoLabels
	}
	return &Result{Labels: labels}, nil
}

// Predict runs a full inference round trip for m in a fresh session and
// deletes the session afterwards.
func (c *Client) Predict(ctx context.Context, m *mesh.Mesh, name string, cfg Config) (*Result, error) {
	session, err := c.CreateSession(ctx, &cfg)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer func() {
		if err := c.DeleteSession(context.WithoutCancel(ctx), session.ID); err != nil {
			logger.Warn("failed to delete inference session", zap.String("session", session.ID), zap.Error(err))
		}
	}()

	if err := c.UpdateSessionConfig(ctx, session.ID, cfg); err != nil {
		return nil, fmt.Errorf("update config: %w", err)
	}
	if err := c.LoadMesh(ctx, session.ID, m, name); err != nil {
		return nil, fmt.Errorf("load mesh: %w", err)
	}

	logger.Info("running inference",
		zap.String("session", session.ID), zap.Int("vertices", m.VertexCount()))
	res, err := c.Run(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	return res, nil
}
