package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sespe/emendas-bi/internal/logger"
)

const sampleCSV = ` STATUS GERAL ,ANO DA EMENDA,Nº EMENDA,PARLAMENTAR,VALOR,DATA OB MS,EXECUÇÃO DA EMENDA,IGNORADA
PAGA,2023,100,Fulano,1500.50,15/03/2023,Executada,x
PENDENTE,2024,101,Beltrano,abc,31/12/2024 10:30:00,EM EXECUÇÃO,y
PAGA,2024,102,Fulano,,not a date,,z
`

func serveCSV(t *testing.T, body string, hits *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoader_Load(t *testing.T) {
	srv := serveCSV(t, sampleCSV, nil)
	loader := NewLoader(&CSVSource{URL: srv.URL}, Painel, 0, logger.NewWithWriter(nil))

	table, err := loader.Load(context.Background())
	require.NoError(t, err)

	// Headers are trimmed and only desired columns survive, in the
	// profile's order.
	assert.Equal(t, []string{
		"STATUS GERAL", "ANO DA EMENDA", "Nº EMENDA", "DATA OB MS",
		"VALOR", "PARLAMENTAR", "EXECUÇÃO DA EMENDA",
	}, table.Columns)
	require.Equal(t, 3, table.Len())

	// Row 1: everything parses.
	rec := table.Records[0]
	status, ok := rec.Field(ColStatusGeral)
	require.True(t, ok)
	assert.Equal(t, "PAGA", status)
	require.NotNil(t, rec.Value)
	assert.Equal(t, "1500.5", rec.Value.String())
	require.NotNil(t, rec.Date)
	assert.Equal(t, time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC), *rec.Date)

	// Row 2: non-numeric VALOR becomes null; day-first timestamp parses.
	rec = table.Records[1]
	assert.Nil(t, rec.Value)
	require.NotNil(t, rec.Date)
	assert.Equal(t, time.Date(2024, time.December, 31, 10, 30, 0, 0, time.UTC), *rec.Date)

	// Row 3: empty and malformed cells are null.
	rec = table.Records[2]
	assert.Nil(t, rec.Value)
	assert.Nil(t, rec.Date)
	_, ok = rec.Field(ColExecucao)
	assert.False(t, ok)
}

func TestLoader_CacheTTL(t *testing.T) {
	hits := 0
	srv := serveCSV(t, sampleCSV, &hits)
	loader := NewLoader(&CSVSource{URL: srv.URL}, Painel, 5*time.Minute, logger.NewWithWriter(nil))

	now := time.Now()
	loader.now = func() time.Time { return now }

	_, err := loader.Load(context.Background())
	require.NoError(t, err)
	_, err = loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "second load within the TTL must hit the cache")

	now = now.Add(5*time.Minute + time.Second)
	_, err = loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, hits, "a stale entry must be refetched")
}

func TestLoader_FetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	loader := NewLoader(&CSVSource{URL: srv.URL}, Painel, 0, logger.NewWithWriter(nil))
	_, err := loader.Load(context.Background())
	assert.Error(t, err)
}

func TestBuildTable_Empty(t *testing.T) {
	table := buildTable(nil, Painel)
	assert.Zero(t, table.Len())
	assert.Empty(t, table.Columns)
}

func TestProfileByName(t *testing.T) {
	p, err := ProfileByName("painel")
	require.NoError(t, err)
	assert.Equal(t, 5, p.MaxSlots)

	p, err = ProfileByName("compacto")
	require.NoError(t, err)
	assert.Equal(t, 4, p.MaxSlots)
	assert.NotContains(t, p.FilterCandidates, "STATUS DA EMENDA")

	_, err = ProfileByName("bogus")
	assert.Error(t, err)
}

func TestProfiles_CarryCanonicalColumns(t *testing.T) {
	for _, p := range []Profile{Painel, Compacto} {
		assert.Contains(t, p.DesiredColumns, ColParlamentar, p.Name)
		assert.Contains(t, p.DesiredColumns, ColEntidade, p.Name)
		assert.Contains(t, p.DesiredColumns, ColValor, p.Name)
		assert.Contains(t, p.DesiredColumns, ColDataOBMS, p.Name)
		assert.Contains(t, p.DesiredColumns, ColExecucao, p.Name)
		assert.Contains(t, p.FilterCandidates, ColParlamentar, p.Name)
	}
}
