package risk

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wonny/invest-sim/internal/params"
)

// =============================================================================
// Annual return generators (n × years matrices)
// =============================================================================

// ReturnGenerator 연 수익률 행렬 생성기
// ⭐ 같은 seed → 같은 행렬 (재현성)
type ReturnGenerator struct {
	config ReturnConfig
	rng    *rand.Rand
}

// NewReturnGenerator 새 생성기. rng가 nil이면 config.Seed로 생성 (0 = 시계 기반)
func NewReturnGenerator(config ReturnConfig, rng *rand.Rand) (*ReturnGenerator, error) {
	if err := ValidateReturnConfig(config); err != nil {
		return nil, err
	}
	if config.Method == MethodTStudent && config.DF == 0 {
		config.DF = DefaultReturnConfig().DF
	}
	if rng == nil {
		rng = params.NewRand(config.Seed, func() int64 { return time.Now().UnixNano() })
	}
	return &ReturnGenerator{config: config, rng: rng}, nil
}

// Generate 설정된 방식으로 행렬 생성
func (g *ReturnGenerator) Generate() [][]float64 {
	c := g.config
	switch c.Method {
	case MethodNormal:
		return NormalReturns(c.Mean, c.StdDev, c.Years, c.Simulations, g.rng)
	case MethodTStudent:
		return TStudentReturns(c.Mean, c.StdDev, c.DF, c.Years, c.Simulations, g.rng)
	default:
		m, _ := BootstrapReturns(c.Historical, c.Years, c.Simulations, g.rng)
		return m
	}
}

// BootstrapReturns 과거 수익률을 복원추출
// 최소 2개 데이터 필요
func BootstrapReturns(historical []float64, years, n int, rng *rand.Rand) ([][]float64, error) {
	if len(historical) < 2 {
		return nil, fmt.Errorf("%w: bootstrap needs at least 2 returns, got %d", ErrInsufficientData, len(historical))
	}
	out := newMatrix(n, years)
	for i := range out {
		for y := range out[i] {
			out[i][y] = historical[rng.IntN(len(historical))]
		}
	}
	return out, nil
}

// NormalReturns i.i.d. N(mean, std)
func NormalReturns(mean, std float64, years, n int, rng *rand.Rand) [][]float64 {
	dist := distuv.Normal{Mu: mean, Sigma: std, Src: rng}
	out := newMatrix(n, years)
	for i := range out {
		for y := range out[i] {
			out[i][y] = dist.Rand()
		}
	}
	return out
}

// TStudentReturns t-분포 표본을 목표 평균/표준편차로 스케일
// scale = std * sqrt((df-2)/df), df <= 2 이면 scale = std
func TStudentReturns(mean, std, df float64, years, n int, rng *rand.Rand) [][]float64 {
	scale := std
	if df > 2 {
		scale = std * math.Sqrt((df-2)/df)
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df, Src: rng}
	out := newMatrix(n, years)
	for i := range out {
		for y := range out[i] {
			out[i][y] = mean + scale*dist.Rand()
		}
	}
	return out
}

// ReturnsFromHistory 과거 수익률 목록에서 값만 추출
func ReturnsFromHistory(history []HistoricalReturn) []float64 {
	out := make([]float64, len(history))
	for i, h := range history {
		out[i] = h.Return
	}
	return out
}

// CumulativeGrowth 행별 누적 성장 배수 prod(1+r)
func CumulativeGrowth(matrix [][]float64) []float64 {
	out := make([]float64, len(matrix))
	for i, row := range matrix {
		g := 1.0
		for _, r := range row {
			g *= 1 + r
		}
		out[i] = g
	}
	return out
}

func newMatrix(n, years int) [][]float64 {
	backing := make([]float64, n*years)
	out := make([][]float64, n)
	for i := range out {
		out[i] = backing[i*years : (i+1)*years : (i+1)*years]
	}
	return out
}
