package dataset

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsSource reads the spreadsheet through the Sheets API with a
// service account, for deployments where the sheet is not public. It
// yields the same header-first rows as the CSV export.
type SheetsSource struct {
	srv           *sheets.Service
	spreadsheetID string
	readRange     string
}

// NewSheetsSource authenticates with the service-account key file at
// credsPath and targets readRange (a sheet name or A1 range) of the
// given spreadsheet.
func NewSheetsSource(ctx context.Context, credsPath, spreadsheetID, readRange string) (*SheetsSource, error) {
	b, err := os.ReadFile(credsPath)
	if err != nil {
		return nil, fmt.Errorf("reading service account key: %w", err)
	}

	config, err := google.JWTConfigFromJSON(b, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing service account key: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}

	return &SheetsSource{srv: srv, spreadsheetID: spreadsheetID, readRange: readRange}, nil
}

func (s *SheetsSource) Key() string {
	return fmt.Sprintf("sheets://%s/%s", s.spreadsheetID, s.readRange)
}

func (s *SheetsSource) Fetch(ctx context.Context) ([][]string, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("reading sheet values: %w", err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			if cell == nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, fmt.Sprint(cell))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
