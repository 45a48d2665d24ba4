package params

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// =============================================================================
// Range - fixed value or uncertainty range
// =============================================================================

// Range 입력 파라미터 (고정값 또는 Min/Det/Max 범위)
// ⭐ SSOT: 검증된 뒤에는 불변. 샘플링과 결정론 경로 모두 이 타입만 사용
type Range struct {
	Min           *float64 `json:"min,omitempty" yaml:"min,omitempty" toml:"min,omitempty"`
	Deterministic *float64 `json:"deterministic,omitempty" yaml:"deterministic,omitempty" toml:"deterministic,omitempty"`
	Max           *float64 `json:"max,omitempty" yaml:"max,omitempty" toml:"max,omitempty"`
}

var (
	ErrIncomplete      = errors.New("at least one of min, deterministic or max must be set")
	ErrPartialRange    = errors.New("min and max must be set together")
	ErrInvertedRange   = errors.New("min must be lower than max")
	ErrDegenerateRange = errors.New("min and max are equal, use a deterministic value instead")
	ErrOutOfRange      = errors.New("deterministic value must lie within [min, max]")
)

// Fixed returns a deterministic-only range.
func Fixed(v float64) Range {
	return Range{Deterministic: &v}
}

// Between returns a range with bounds and no deterministic value.
func Between(min, max float64) Range {
	return Range{Min: &min, Max: &max}
}

// Span returns a full min/deterministic/max range.
func Span(min, det, max float64) Range {
	return Range{Min: &min, Deterministic: &det, Max: &max}
}

// IsProbabilistic reports whether both bounds are set.
func (r Range) IsProbabilistic() bool {
	return r.Min != nil && r.Max != nil
}

// Mean returns the range midpoint, or the deterministic value when no range is defined.
func (r Range) Mean() float64 {
	if r.IsProbabilistic() {
		return (*r.Min + *r.Max) / 2
	}
	if r.Deterministic != nil {
		return *r.Deterministic
	}
	return 0
}

// Std approximates ±3σ coverage of the range.
func (r Range) Std() float64 {
	if r.IsProbabilistic() {
		return (*r.Max - *r.Min) / 6
	}
	return 0
}

// Value returns the deterministic value, falling back to the range mean.
func (r Range) Value() float64 {
	if r.Deterministic != nil {
		return *r.Deterministic
	}
	return r.Mean()
}

// Validate checks the strict variant: min == max is rejected.
func (r Range) Validate() error {
	hasMin, hasDet, hasMax := r.Min != nil, r.Deterministic != nil, r.Max != nil

	switch {
	case !hasMin && !hasDet && !hasMax:
		return ErrIncomplete
	case hasMin != hasMax:
		return ErrPartialRange
	case !hasMin:
		// deterministic only
		return nil
	}

	if *r.Min > *r.Max {
		return fmt.Errorf("%w: min %g > max %g", ErrInvertedRange, *r.Min, *r.Max)
	}
	if *r.Min == *r.Max {
		return fmt.Errorf("%w: %g", ErrDegenerateRange, *r.Min)
	}
	if hasDet && (*r.Deterministic < *r.Min || *r.Deterministic > *r.Max) {
		return fmt.Errorf("%w: %g not in [%g, %g]", ErrOutOfRange, *r.Deterministic, *r.Min, *r.Max)
	}
	return nil
}

// String renders the range for logs and CLI output.
func (r Range) String() string {
	if !r.IsProbabilistic() {
		return fmt.Sprintf("%g", r.Value())
	}
	if r.Deterministic != nil {
		return fmt.Sprintf("[%g | %g | %g]", *r.Min, *r.Deterministic, *r.Max)
	}
	return fmt.Sprintf("[%g .. %g]", *r.Min, *r.Max)
}

// =============================================================================
// Sampling
// =============================================================================

// Distribution 샘플링 분포
type Distribution string

const (
	DistNormal     Distribution = "normal"     // N(mean, (max-min)/6), [min,max] clip
	DistUniform    Distribution = "uniform"    // U(min, max)
	DistTriangular Distribution = "triangular" // Tri(min, mode, max)
)

// ParseDistribution maps a config string to a Distribution, defaulting to normal.
func ParseDistribution(s string) (Distribution, error) {
	switch Distribution(s) {
	case "", DistNormal:
		return DistNormal, nil
	case DistUniform:
		return DistUniform, nil
	case DistTriangular:
		return DistTriangular, nil
	}
	return "", fmt.Errorf("unsupported distribution %q", s)
}

// Sample draws n values from the range. The range must be valid.
// Draws come from rng in order, so a seeded rng reproduces the same slice.
func (r Range) Sample(n int, dist Distribution, rng *rand.Rand) []float64 {
	out := make([]float64, n)
	if !r.IsProbabilistic() {
		v := r.Value()
		for i := range out {
			out[i] = v
		}
		return out
	}

	lo, hi := *r.Min, *r.Max
	src := rngSource{rng}

	switch dist {
	case DistUniform:
		u := distuv.Uniform{Min: lo, Max: hi, Src: src}
		for i := range out {
			out[i] = u.Rand()
		}
	case DistTriangular:
		mode := r.Mean()
		if r.Deterministic != nil {
			mode = *r.Deterministic
		}
		tri := distuv.NewTriangle(lo, hi, mode, src)
		for i := range out {
			out[i] = tri.Rand()
		}
	default:
		norm := distuv.Normal{Mu: r.Mean(), Sigma: r.Std(), Src: src}
		for i := range out {
			out[i] = math.Min(hi, math.Max(lo, norm.Rand()))
		}
	}
	return out
}

// ClampNonNegative floors every value at zero in place.
func ClampNonNegative(values []float64) []float64 {
	for i, v := range values {
		if v < 0 {
			values[i] = 0
		}
	}
	return values
}

// rngSource exposes a *rand.Rand as a rand.Source so that gonum
// distributions consume the caller's stream instead of a private one.
type rngSource struct {
	rng *rand.Rand
}

func (s rngSource) Uint64() uint64 { return s.rng.Uint64() }

// NewRand returns a PCG-backed generator. seed 0 means "seed from the clock".
func NewRand(seed int64, clock func() int64) *rand.Rand {
	if seed == 0 && clock != nil {
		seed = clock()
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}
