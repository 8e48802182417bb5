package chart

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/m3rciful/chartbot/core/logger"
	"github.com/m3rciful/chartbot/internal/catalog"
)

// Service fetches sheet rows and renders them. Concurrent requests for the
// same source and category share one fetch and one render.
type Service struct {
	rows     RowSource
	renderer Renderer
	group    singleflight.Group
}

// NewService wires a row source to a renderer.
func NewService(rows RowSource, renderer Renderer) *Service {
	return &Service{rows: rows, renderer: renderer}
}

// Chart returns the PNG for category c of the named source.
func (s *Service) Chart(ctx context.Context, sourceName string, c catalog.Category) ([]byte, error) {
	key := fmt.Sprintf("%d|%s", c, sourceName)
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.build(ctx, sourceName, c)
	})
	if shared {
		logger.Debug(ctx, component, "chart.shared",
			slog.String("source", logger.SanitizeLimit(sourceName, 64)),
			slog.String("category", c.String()),
		)
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *Service) build(ctx context.Context, sourceName string, c catalog.Category) ([]byte, error) {
	start := time.Now()
	table, err := s.rows.FetchRows(ctx, sourceName)
	if err != nil {
		return nil, err
	}
	img, err := s.renderer.Render(ctx, table, c)
	if err != nil {
		logger.Warn(ctx, component, "chart.failed",
			slog.String("source", logger.SanitizeLimit(sourceName, 64)),
			slog.String("category", c.String()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil, err
	}
	return img, nil
}
