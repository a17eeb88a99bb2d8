package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"
)

// Source yields the raw sheet contents as rows of cells, header first.
type Source interface {
	// Key identifies the source for caching.
	Key() string
	Fetch(ctx context.Context) ([][]string, error)
}

// CSVSource fetches the public CSV export of a Google spreadsheet over
// plain HTTP. This is the default source; it needs no credentials, only
// a sheet shared as "anyone with the link".
type CSVSource struct {
	URL    string
	Client *http.Client
}

// NewCSVSource builds a source for the gviz CSV export of the given
// sheet and tab.
func NewCSVSource(sheetID, gid string) *CSVSource {
	return &CSVSource{
		URL: fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:csv&gid=%s", sheetID, gid),
	}
}

func (s *CSVSource) Key() string { return s.URL }

func (s *CSVSource) Fetch(ctx context.Context) ([][]string, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building sheet request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching sheet: unexpected status %s", resp.Status)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing sheet CSV: %w", err)
	}
	return rows, nil
}
