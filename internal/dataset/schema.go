package dataset

import "fmt"

// Column names the pipeline gives special treatment. Everything else is
// an opaque string column.
const (
	ColValor       = "VALOR"
	ColDataOBMS    = "DATA OB MS"
	ColStatusGeral = "STATUS GERAL"
	ColAnoEmenda   = "ANO DA EMENDA"
	ColExecucao    = "EXECUÇÃO DA EMENDA"
	ColParlamentar = "PARLAMENTAR"
	ColEntidade    = "ENTIDADE"
)

// Profile is one schema configuration of the pipeline: which columns of
// the spreadsheet are kept and which of them the filter chain may use.
// The two profiles are the two published variants of the dashboard.
type Profile struct {
	Name string

	// DesiredColumns is matched against the sheet header; absent columns
	// are silently skipped and every dependent view degrades on its own.
	DesiredColumns []string

	// FilterCandidates are the columns the filter slots may choose from,
	// in presentation order.
	FilterCandidates []string

	// MaxSlots is the length of the filter chain.
	MaxSlots int
}

// Painel is the full dashboard: five filter slots and the wider column
// set including STATUS DA EMENDA and the SIGEPE / SEI reference.
var Painel = Profile{
	Name: "painel",
	DesiredColumns: []string{
		ColStatusGeral, "STATUS DA EMENDA", ColAnoEmenda, "Nº EMENDA",
		"Nº REMANEJAMENTO", "SIGEPE / SEI", ColDataOBMS, "MUNICÍPIO",
		ColEntidade, "SUBAÇÃO", "GRUPO DE DESPESA", "MODALIDADE", ColValor,
		ColParlamentar, "PARTIDO DO PARLAMENTAR", "PENDÊNCIAS",
		"SETOR ATUAL ROBÔ", ColExecucao,
	},
	FilterCandidates: []string{
		"Nº EMENDA", "SUBAÇÃO", ColAnoEmenda, ColParlamentar, "STATUS DA EMENDA",
	},
	MaxSlots: 5,
}

// Compacto is the earlier four-slot variant published against the sheet
// that names the reference column plain SEI.
var Compacto = Profile{
	Name: "compacto",
	DesiredColumns: []string{
		ColStatusGeral, ColAnoEmenda, "Nº EMENDA", "Nº REMANEJAMENTO",
		"SEI", ColDataOBMS, "MUNICÍPIO", ColEntidade, "SUBAÇÃO",
		"GRUPO DE DESPESA", "MODALIDADE", ColValor, ColParlamentar,
		"PARTIDO DO PARLAMENTAR", "PENDÊNCIAS", "SETOR ATUAL ROBÔ",
		ColExecucao,
	},
	FilterCandidates: []string{
		"Nº EMENDA", "SUBAÇÃO", ColAnoEmenda, ColParlamentar,
	},
	MaxSlots: 4,
}

// ProfileByName resolves a profile from its configuration name.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case Painel.Name:
		return Painel, nil
	case Compacto.Name:
		return Compacto, nil
	default:
		return Profile{}, fmt.Errorf("unknown profile %q (want painel or compacto)", name)
	}
}
