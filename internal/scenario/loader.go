package scenario

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/wonny/invest-sim/internal/montecarlo"
	"github.com/wonny/invest-sim/internal/params"
	"github.com/wonny/invest-sim/pkg/config"
)

// Format 시나리오 파일 형식
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// ErrUnknownFormat the file extension maps to no supported format
var ErrUnknownFormat = errors.New("unknown scenario format")

// FormatFromPath maps .yaml/.yml/.toml/.json
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Load reads a scenario file and returns the document with its raw bytes
// ⭐ SSOT: 알 수 없는 필드는 즉시 실패 (오타 방지)
func Load(path string) (*Document, []byte, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	doc, err := Parse(data, format)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return doc, data, nil
}

// Parse decodes a document, rejecting unknown fields in every format
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("yaml: %w", err)
		}
	case FormatTOML:
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&doc)
		if err != nil {
			return nil, fmt.Errorf("toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("toml: unknown field(s) %s", strings.Join(keys, ", "))
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	return &doc, nil
}

// Hash SHA-256 of the canonical JSON form
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(doc *Document) (string, error) {
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// Input converts the document into an engine input. Zero-valued optional
// fields take the configured defaults; a missing start date means today.
func (d *Document) Input(defaults config.SimulationConfig, now time.Time) montecarlo.Input {
	in := montecarlo.Input{
		InitialCapital:      d.InitialCapital.Range,
		MonthlyContribution: d.MonthlyContribution.Range,
		AnnualRate:          d.AnnualRate.Range,
		Years:               d.Years,
		Goal:                d.Goal,
		NumSimulations:      d.NumSimulations,
		Distribution:        params.Distribution(d.Distribution),
		RiskFreeRate:        d.RiskFreeRate,
		Seed:                d.Seed,
		StartDate:           time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
	}
	if d.StartDate != nil {
		in.StartDate = d.StartDate.Time
	}
	if in.NumSimulations == 0 {
		in.NumSimulations = defaults.NumSimulations
	}
	if in.Distribution == "" {
		in.Distribution = params.Distribution(defaults.Distribution)
	}
	if in.Seed == 0 {
		in.Seed = defaults.Seed
	}
	if list := d.EventList(); list != nil {
		in.Events = list
	}
	return in
}
