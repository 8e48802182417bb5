// Package sheets reads company names and chart rows from a Google spreadsheet.
// Every worksheet is one company; its title is the display name.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/m3rciful/chartbot/core/logger"
	"github.com/m3rciful/chartbot/internal/catalog"
	"github.com/m3rciful/chartbot/internal/chart"
)

const (
	component = "sheets"

	// DefaultRange is the cell block read from each worksheet.
	DefaultRange = "A1:E5"
)

// Config holds service account credentials and the spreadsheet location.
type Config struct {
	SpreadsheetID string
	ClientEmail   string
	PrivateKey    string
	Range         string
	// HTTPClient is used as the transport under the OAuth2 token source.
	HTTPClient *http.Client
}

// Client implements catalog.NameSource and chart.RowSource on top of the
// Sheets v4 API.
type Client struct {
	values        valuesAPI
	spreadsheetID string
	rng           string
}

type valuesAPI interface {
	titles(ctx context.Context, spreadsheetID string) ([]string, error)
	values(ctx context.Context, spreadsheetID, a1 string) ([][]any, error)
}

// New authenticates with the service account and returns a client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	if strings.TrimSpace(cfg.ClientEmail) == "" || strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, errors.New("sheets: service account email and private key are required")
	}

	conf := &jwt.Config{
		Email:      strings.TrimSpace(cfg.ClientEmail),
		PrivateKey: []byte(NormalizePrivateKey(cfg.PrivateKey)),
		Scopes:     []string{sheetsapi.SpreadsheetsReadonlyScope},
		TokenURL:   google.JWTTokenURL,
	}
	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}
	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}

	return newClient(&apiValues{svc: svc}, id, cfg.Range), nil
}

func newClient(api valuesAPI, spreadsheetID, rng string) *Client {
	rng = strings.TrimSpace(rng)
	if rng == "" {
		rng = DefaultRange
	}
	return &Client{values: api, spreadsheetID: spreadsheetID, rng: rng}
}

// FetchNames returns worksheet titles in spreadsheet order.
func (c *Client) FetchNames(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := c.values.titles(ctx, c.spreadsheetID)
	if err != nil {
		return nil, &catalog.FetchError{Op: "names", Err: err}
	}
	logger.Debug(ctx, component, "sheets.names",
		slog.Int("count", len(names)),
		slog.Duration("duration", logger.Took(start)),
	)
	return names, nil
}

// FetchRows reads the configured range of the named worksheet.
func (c *Client) FetchRows(ctx context.Context, sourceName string) (chart.Table, error) {
	start := time.Now()
	raw, err := c.values.values(ctx, c.spreadsheetID, A1Range(sourceName, c.rng))
	if err != nil {
		return chart.Table{}, &catalog.FetchError{Op: "rows", Source: sourceName, Err: err}
	}
	table := chart.NewTable(Stringify(raw))
	logger.Debug(ctx, component, "sheets.rows",
		slog.String("source", logger.SanitizeLimit(sourceName, 64)),
		slog.Int("rows", len(table.Rows)),
		slog.Duration("duration", logger.Took(start)),
	)
	return table, nil
}

// A1Range quotes a worksheet title for use in A1 notation. Single quotes in
// the title are doubled.
func A1Range(sheet, rng string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + rng
}

// Stringify converts API cell values to their display strings.
func Stringify(raw [][]any) [][]string {
	out := make([][]string, 0, len(raw))
	for _, row := range raw {
		cells := make([]string, 0, len(row))
		for _, v := range row {
			if v == nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, fmt.Sprint(v))
		}
		out = append(out, cells)
	}
	return out
}

// NormalizePrivateKey restores newlines in keys stored with literal "\n"
// escapes, as is common for keys passed through environment variables.
func NormalizePrivateKey(key string) string {
	key = strings.TrimSpace(key)
	key = strings.Trim(key, `"`)
	return strings.ReplaceAll(key, `\n`, "\n")
}

type apiValues struct {
	svc *sheetsapi.Service
}

func (a *apiValues) titles(ctx context.Context, spreadsheetID string) ([]string, error) {
	resp, err := a.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh == nil || sh.Properties == nil {
			continue
		}
		names = append(names, sh.Properties.Title)
	}
	return names, nil
}

func (a *apiValues) values(ctx context.Context, spreadsheetID, a1 string) ([][]any, error) {
	resp, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, a1).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}
