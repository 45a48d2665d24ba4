package scenario

import (
	"github.com/wonny/invest-sim/internal/events"
	"github.com/wonny/invest-sim/internal/risk"
)

// Document 시나리오 파일 (YAML / TOML / JSON)
// ⭐ SSOT: 파일과 API 요청 본문이 같은 구조를 사용
type Document struct {
	Name                string  `json:"name,omitempty" yaml:"name" toml:"name"`
	InitialCapital      Param   `json:"initial_capital" yaml:"initial_capital" toml:"initial_capital"`
	MonthlyContribution Param   `json:"monthly_contribution" yaml:"monthly_contribution" toml:"monthly_contribution"`
	AnnualRate          Param   `json:"annual_rate" yaml:"annual_rate" toml:"annual_rate"`
	Years               int     `json:"years" yaml:"years" toml:"years"`
	Goal                float64 `json:"goal" yaml:"goal" toml:"goal"`

	NumSimulations int      `json:"num_simulations,omitempty" yaml:"num_simulations" toml:"num_simulations"`
	StartDate      *Date    `json:"start_date,omitempty" yaml:"start_date" toml:"start_date"`
	Distribution   string   `json:"distribution,omitempty" yaml:"distribution" toml:"distribution"`
	RiskFreeRate   *float64 `json:"risk_free_rate,omitempty" yaml:"risk_free_rate" toml:"risk_free_rate"`
	Seed           int64    `json:"seed,omitempty" yaml:"seed" toml:"seed"`

	Events  []EventEntry   `json:"events,omitempty" yaml:"events" toml:"events"`
	Returns *ReturnsConfig `json:"returns,omitempty" yaml:"returns" toml:"returns"`
}

// EventEntry one extraordinary deposit / withdrawal
type EventEntry struct {
	Date        Date    `json:"date" yaml:"date" toml:"date"`
	Description string  `json:"description,omitempty" yaml:"description" toml:"description"`
	Deposit     float64 `json:"deposit,omitempty" yaml:"deposit" toml:"deposit"`
	Withdrawal  float64 `json:"withdrawal,omitempty" yaml:"withdrawal" toml:"withdrawal"`
}

// ReturnsConfig annual return generation section
type ReturnsConfig struct {
	Method      string                  `json:"method,omitempty" yaml:"method" toml:"method"`
	Years       int                     `json:"years,omitempty" yaml:"years" toml:"years"`
	Simulations int                     `json:"simulations,omitempty" yaml:"simulations" toml:"simulations"`
	Mean        float64                 `json:"mean,omitempty" yaml:"mean" toml:"mean"`
	StdDev      float64                 `json:"std_dev,omitempty" yaml:"std_dev" toml:"std_dev"`
	DF          float64                 `json:"df,omitempty" yaml:"df" toml:"df"`
	Seed        int64                   `json:"seed,omitempty" yaml:"seed" toml:"seed"`
	Historical  []risk.HistoricalReturn `json:"historical,omitempty" yaml:"historical" toml:"historical"`
}

// EventList converts the entries; descriptions are normalised
func (d *Document) EventList() events.List {
	if len(d.Events) == 0 {
		return nil
	}
	out := make(events.List, 0, len(d.Events))
	for _, e := range d.Events {
		out = append(out, events.NewEvent(e.Date.Time, e.Description, e.Deposit, e.Withdrawal))
	}
	return out
}

// ReturnConfig converts the returns section, filling defaults.
// years falls back to the document horizon.
func (d *Document) ReturnConfig() risk.ReturnConfig {
	cfg := risk.DefaultReturnConfig()
	cfg.Years = d.Years
	if d.Returns == nil {
		return cfg
	}

	r := d.Returns
	if r.Method != "" {
		cfg.Method = risk.ReturnMethod(r.Method)
	}
	if r.Years > 0 {
		cfg.Years = r.Years
	}
	if r.Simulations > 0 {
		cfg.Simulations = r.Simulations
	}
	if r.DF > 0 {
		cfg.DF = r.DF
	}
	cfg.Mean, cfg.StdDev, cfg.Seed = r.Mean, r.StdDev, r.Seed
	cfg.Historical = risk.ReturnsFromHistory(r.Historical)
	return cfg
}
