package risk

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// Engine - 순수 계산기 + 무위험 수익률 주입
// =============================================================================

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrNoRiskFreeRate   = errors.New("no risk-free rate available")
)

// Engine 리스크 엔진
// ⭐ SSOT: 무위험 수익률은 RateProvider로만 주입. 전역 캐시 없음
type Engine struct {
	provider RateProvider
}

// NewEngine 새 리스크 엔진. provider는 nil 가능
func NewEngine(provider RateProvider) *Engine {
	return &Engine{provider: provider}
}

// ResolveRiskFreeRate override가 있으면 그대로, 없으면 provider 조회
// 둘 다 없으면 ErrNoRiskFreeRate
func (e *Engine) ResolveRiskFreeRate(ctx context.Context, override *float64) (float64, string, error) {
	if override != nil {
		return *override, "input", nil
	}
	if e == nil || e.provider == nil {
		return 0, "", ErrNoRiskFreeRate
	}
	if sp, ok := e.provider.(SourcedRateProvider); ok {
		rate, source, err := sp.RiskFreeQuote(ctx)
		if err != nil {
			return 0, "", fmt.Errorf("risk-free rate: %w", err)
		}
		if source == "" {
			source = "provider"
		}
		return rate, source, nil
	}
	rate, err := e.provider.RiskFreeRate(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("risk-free rate: %w", err)
	}
	return rate, "provider", nil
}

// Metrics 리스크 지표 계산. 무위험 수익률을 구할 수 없으면 (nil, ErrNoRiskFreeRate)
func (e *Engine) Metrics(ctx context.Context, final []float64, goal, invested, years float64, override *float64) (*RiskMetrics, error) {
	rate, source, err := e.ResolveRiskFreeRate(ctx, override)
	if err != nil {
		return nil, err
	}
	m := CalculateRiskMetrics(final, goal, invested, years, rate)
	m.RiskFreeSource = source
	return &m, nil
}

// Returns 설정에 따라 연 수익률 행렬 생성
func (e *Engine) Returns(config ReturnConfig) ([][]float64, error) {
	g, err := NewReturnGenerator(config, nil)
	if err != nil {
		return nil, err
	}
	return g.Generate(), nil
}

// ValidateReturnConfig 설정 유효성 검사
func ValidateReturnConfig(config ReturnConfig) error {
	if config.Simulations <= 0 {
		return fmt.Errorf("%w: simulations must be > 0", ErrInvalidConfig)
	}
	if config.Years <= 0 {
		return fmt.Errorf("%w: years must be > 0", ErrInvalidConfig)
	}
	switch config.Method {
	case MethodBootstrap:
		if len(config.Historical) < 2 {
			return fmt.Errorf("%w: bootstrap needs at least 2 returns, got %d",
				ErrInsufficientData, len(config.Historical))
		}
	case MethodNormal, MethodTStudent:
		if config.StdDev < 0 {
			return fmt.Errorf("%w: std_dev must be >= 0", ErrInvalidConfig)
		}
		if config.Method == MethodTStudent && config.DF < 0 {
			return fmt.Errorf("%w: df must be > 0", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown method %q", ErrInvalidConfig, config.Method)
	}
	return nil
}
