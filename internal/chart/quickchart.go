package chart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/chartbot/core/logger"
	"github.com/m3rciful/chartbot/core/netutil"
	"github.com/m3rciful/chartbot/internal/catalog"
)

const (
	component = "chart"

	// DefaultEndpoint is the public QuickChart instance.
	DefaultEndpoint = "https://quickchart.io"

	// DefaultWidth and DefaultHeight are the image size in pixels.
	DefaultWidth  = 800
	DefaultHeight = 400

	maxImageBytes = 10 << 20
)

// Renderer produces a PNG image for a category of a table.
type Renderer interface {
	Render(ctx context.Context, t Table, c catalog.Category) ([]byte, error)
}

// QuickChartOptions configures the QuickChart renderer.
type QuickChartOptions struct {
	Endpoint string
	Width    int
	Height   int
	Client   *http.Client
}

// QuickChart renders charts through the QuickChart HTTP API. It first asks the
// service for a short URL and then downloads the image from it.
type QuickChart struct {
	endpoint string
	width    int
	height   int
	client   *http.Client
}

// NewQuickChart returns a renderer with defaults applied to zero options.
func NewQuickChart(opts QuickChartOptions) *QuickChart {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	width := opts.Width
	if width <= 0 {
		width = DefaultWidth
	}
	height := opts.Height
	if height <= 0 {
		height = DefaultHeight
	}
	client := opts.Client
	if client == nil {
		client = netutil.NewClient(netutil.ClientOptions{})
	}
	return &QuickChart{endpoint: endpoint, width: width, height: height, client: client}
}

type createRequest struct {
	Chart           Config `json:"chart"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	BackgroundColor string `json:"backgroundColor"`
	Format          string `json:"format"`
}

type createResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

// Render builds the chart config and fetches the rendered PNG.
func (q *QuickChart) Render(ctx context.Context, t Table, c catalog.Category) ([]byte, error) {
	start := time.Now()
	cfg, err := BuildConfig(t, c)
	if err != nil {
		return nil, err
	}

	url, err := q.create(ctx, cfg)
	if err != nil {
		return nil, err
	}
	img, err := q.download(ctx, url)
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, component, "chart.rendered",
		slog.String("category", c.String()),
		slog.Int("rows", len(t.Rows)),
		slog.Int("bytes", len(img)),
		slog.Duration("duration", logger.Took(start)),
	)
	return img, nil
}

func (q *QuickChart) create(ctx context.Context, cfg Config) (string, error) {
	body, err := json.Marshal(createRequest{
		Chart:           cfg,
		Width:           q.width,
		Height:          q.height,
		BackgroundColor: "white",
		Format:          "png",
	})
	if err != nil {
		return "", &RenderError{Stage: "encode", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.endpoint+"/chart/create", bytes.NewReader(body))
	if err != nil {
		return "", &RenderError{Stage: "create", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return "", &RenderError{Stage: "create", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &RenderError{Stage: "create", Status: resp.StatusCode, Err: errors.New(readSnippet(resp.Body))}
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &RenderError{Stage: "create", Err: fmt.Errorf("decode response: %w", err)}
	}
	if !out.Success || out.URL == "" {
		return "", &RenderError{Stage: "create", Err: errors.New("service returned no chart url")}
	}
	return out.URL, nil
}

func (q *QuickChart) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &RenderError{Stage: "download", Err: err}
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return nil, &RenderError{Stage: "download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RenderError{Stage: "download", Status: resp.StatusCode, Err: errors.New(readSnippet(resp.Body))}
	}
	img, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, &RenderError{Stage: "download", Err: err}
	}
	if len(img) == 0 {
		return nil, &RenderError{Stage: "download", Err: errors.New("empty image")}
	}
	if len(img) > maxImageBytes {
		return nil, &RenderError{Stage: "download", Err: errors.New("image too large")}
	}
	return img, nil
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	s := logger.SanitizeLimit(string(b), 200)
	if s == "" {
		return "empty body"
	}
	return s
}
