package scenario

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/invest-sim/internal/params"
)

// Param is a params.Range that also accepts a bare number in scenario files:
//
//	monthly_contribution: 500
//	annual_rate: {min: 6, deterministic: 10, max: 14}
type Param struct {
	params.Range
}

var rangeKeys = map[string]bool{"min": true, "deterministic": true, "max": true}

func (p *Param) fromMap(m map[string]float64) error {
	var unknown []string
	for k := range m {
		if !rangeKeys[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown range field(s) %s", strings.Join(unknown, ", "))
	}

	p.Range = params.Range{}
	if v, ok := m["min"]; ok {
		p.Min = &v
	}
	if v, ok := m["deterministic"]; ok {
		p.Deterministic = &v
	}
	if v, ok := m["max"]; ok {
		p.Max = &v
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (p *Param) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var v float64
		if err := node.Decode(&v); err != nil {
			return err
		}
		p.Range = params.Fixed(v)
		return nil
	}
	var m map[string]float64
	if err := node.Decode(&m); err != nil {
		return err
	}
	return p.fromMap(m)
}

// UnmarshalJSON implements json.Unmarshaler
func (p *Param) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		p.Range = params.Fixed(v)
		return nil
	}
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("expected a number or a {min, deterministic, max} object: %w", err)
	}
	return p.fromMap(m)
}

// UnmarshalTOML implements toml.Unmarshaler
func (p *Param) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case int64:
		p.Range = params.Fixed(float64(v))
		return nil
	case float64:
		p.Range = params.Fixed(v)
		return nil
	case map[string]interface{}:
		m := make(map[string]float64, len(v))
		for k, raw := range v {
			switch n := raw.(type) {
			case int64:
				m[k] = float64(n)
			case float64:
				m[k] = n
			default:
				return fmt.Errorf("range field %q: expected a number, got %T", k, raw)
			}
		}
		return p.fromMap(m)
	}
	return fmt.Errorf("expected a number or a table, got %T", data)
}

// MarshalJSON writes the canonical object form so hashes do not depend on the shorthand used
func (p Param) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Range)
}

// =============================================================================
// Date
// =============================================================================

var dateLayouts = []string{"2006-01-02", "2006-01", time.RFC3339}

// Date is a calendar date accepted as "2025-01-02", "2025-01" or RFC 3339
type Date struct {
	time.Time
}

// ParseDate parses any of the accepted layouts (UTC)
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return Date{t.UTC()}, nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or YYYY-MM)", s)
}

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseDate(node.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalTOML implements toml.Unmarshaler; native TOML dates are accepted too
func (d *Date) UnmarshalTOML(data interface{}) error {
	switch v := data.(type) {
	case time.Time:
		*d = Date{time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)}
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	return fmt.Errorf("expected a date, got %T", data)
}

// MarshalJSON writes YYYY-MM-DD
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}
