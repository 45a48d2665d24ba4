package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/invest-sim/internal/events"
	"github.com/wonny/invest-sim/internal/params"
	"github.com/wonny/invest-sim/internal/risk"
	"github.com/wonny/invest-sim/pkg/config"
)

const yamlDoc = `
name: retirement
initial_capital: {min: 8000, deterministic: 10000, max: 12000}
monthly_contribution: 500
annual_rate:
  min: 6
  deterministic: 10
  max: 14
years: 10
goal: 120000
start_date: 2025-01-01
seed: 42
events:
  - date: 2026-03-10
    description: house
    withdrawal: 60000
`

const tomlDoc = `
name = "retirement"
monthly_contribution = 500
years = 10
goal = 120000
start_date = 2025-01-01
seed = 42

initial_capital = { min = 8000, deterministic = 10000, max = 12000 }
annual_rate = { min = 6, deterministic = 10, max = 14.0 }

[[events]]
date = 2026-03-10
description = "house"
withdrawal = 60000
`

const jsonDoc = `{
  "name": "retirement",
  "initial_capital": {"min": 8000, "deterministic": 10000, "max": 12000},
  "monthly_contribution": 500,
  "annual_rate": {"min": 6, "deterministic": 10, "max": 14},
  "years": 10,
  "goal": 120000,
  "start_date": "2025-01-01",
  "seed": 42,
  "events": [{"date": "2026-03-10", "description": "house", "withdrawal": 60000}]
}`

func TestParse_AllFormatsAgree(t *testing.T) {
	var hashes []string
	for _, tc := range []struct {
		format Format
		data   string
	}{
		{FormatYAML, yamlDoc},
		{FormatTOML, tomlDoc},
		{FormatJSON, jsonDoc},
	} {
		t.Run(string(tc.format), func(t *testing.T) {
			doc, err := Parse([]byte(tc.data), tc.format)
			require.NoError(t, err)

			assert.Equal(t, "retirement", doc.Name)
			assert.Equal(t, params.Fixed(500), doc.MonthlyContribution.Range)
			assert.Equal(t, params.Span(8000, 10000, 12000), doc.InitialCapital.Range)
			assert.Equal(t, params.Span(6, 10, 14), doc.AnnualRate.Range)
			require.NotNil(t, doc.StartDate)
			assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), doc.StartDate.Time)
			require.Len(t, doc.Events, 1)
			assert.Equal(t, 60000.0, doc.Events[0].Withdrawal)
			assert.Equal(t, time.March, doc.Events[0].Date.Month())

			h, err := Hash(doc)
			require.NoError(t, err)
			hashes = append(hashes, h)
		})
	}
	require.Len(t, hashes, 3)
	assert.Equal(t, hashes[0], hashes[1])
	assert.Equal(t, hashes[0], hashes[2])
	assert.Len(t, hashes[0], 64)
}

func TestParse_UnknownFields(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
	}{
		{"yaml top level", FormatYAML, "years: 10\ngoall: 5\n"},
		{"yaml range key", FormatYAML, "annual_rate: {min: 1, maximum: 2}\n"},
		{"toml top level", FormatTOML, "years = 10\ngoall = 5\n"},
		{"toml range key", FormatTOML, "annual_rate = { min = 1, maximum = 2 }\n"},
		{"json top level", FormatJSON, `{"years": 10, "goall": 5}`},
		{"json range key", FormatJSON, `{"annual_rate": {"min": 1, "maximum": 2}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			assert.Error(t, err)
		})
	}
}

func TestParse_BadValues(t *testing.T) {
	_, err := Parse([]byte("start_date: 01/02/2025\n"), FormatYAML)
	assert.Error(t, err)

	_, err = Parse([]byte(`{"annual_rate": "ten"}`), FormatJSON)
	assert.Error(t, err)

	_, err = Parse([]byte(`x`), Format("ini"))
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestHash_ShorthandIsCanonical(t *testing.T) {
	a, err := Parse([]byte("monthly_contribution: 500\nyears: 1\n"), FormatYAML)
	require.NoError(t, err)
	b, err := Parse([]byte("monthly_contribution: {deterministic: 500}\nyears: 1\n"), FormatYAML)
	require.NoError(t, err)

	ha, _ := Hash(a)
	hb, _ := Hash(b)
	assert.Equal(t, ha, hb)

	c, err := Parse([]byte("monthly_contribution: 501\nyears: 1\n"), FormatYAML)
	require.NoError(t, err)
	hc, _ := Hash(c)
	assert.NotEqual(t, ha, hc)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	doc, raw, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, yamlDoc, string(raw))
	assert.Equal(t, 10, doc.Years)

	_, _, err = Load(filepath.Join(dir, "plan.ini"))
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	_, _, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestDocument_Input(t *testing.T) {
	doc, err := Parse([]byte(yamlDoc), FormatYAML)
	require.NoError(t, err)

	defaults := config.SimulationConfig{NumSimulations: 2000, Distribution: "uniform", Seed: 7}
	in := doc.Input(defaults, time.Date(2030, 5, 20, 0, 0, 0, 0, time.UTC))

	require.NoError(t, in.Validate())
	assert.Equal(t, 2000, in.NumSimulations)
	assert.Equal(t, params.DistUniform, in.Distribution)
	assert.Equal(t, int64(42), in.Seed, "document seed wins over the default")
	assert.Equal(t, 2025, in.StartDate.Year())

	list, ok := in.Events.(events.List)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, "house", list[0].Description)

	// no start date, no events
	doc.StartDate = nil
	doc.Events = nil
	in = doc.Input(defaults, time.Date(2030, 5, 20, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC), in.StartDate)
	assert.Nil(t, in.Events)
}

func TestDocument_ReturnConfig(t *testing.T) {
	doc := &Document{Years: 15}
	cfg := doc.ReturnConfig()
	assert.Equal(t, risk.MethodBootstrap, cfg.Method)
	assert.Equal(t, 15, cfg.Years)

	doc.Returns = &ReturnsConfig{
		Method:      "t_student",
		Simulations: 300,
		Mean:        0.08,
		StdDev:      0.15,
		Historical:  []risk.HistoricalReturn{{Year: 2020, Return: 0.1}, {Year: 2021, Return: -0.05}},
	}
	cfg = doc.ReturnConfig()
	assert.Equal(t, risk.MethodTStudent, cfg.Method)
	assert.Equal(t, 300, cfg.Simulations)
	assert.Equal(t, 5.0, cfg.DF)
	assert.Equal(t, []float64{0.1, -0.05}, cfg.Historical)
}

func TestLint(t *testing.T) {
	doc, err := Parse([]byte(yamlDoc), FormatYAML)
	require.NoError(t, err)
	in := doc.Input(config.SimulationConfig{NumSimulations: 500}, time.Now())
	in.Events = events.List{
		events.NewEvent(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), "ok", 1, 0),
		events.NewEvent(time.Date(2040, 3, 1, 0, 0, 0, 0, time.UTC), "late", 1, 0),
	}

	codes := map[string]bool{}
	for _, w := range Lint(in) {
		codes[w.Code] = true
	}
	assert.True(t, codes["W001"])
	assert.True(t, codes["W004"])
	assert.False(t, codes["W002"])
	assert.False(t, codes["W003"])

	in.InitialCapital = params.Fixed(1)
	in.AnnualRate = params.Fixed(40)
	in.Goal = 0
	codes = map[string]bool{}
	for _, w := range Lint(in) {
		codes[w.Code] = true
	}
	assert.True(t, codes["W002"])
	assert.True(t, codes["W003"])
	assert.True(t, codes["W005"])
}
