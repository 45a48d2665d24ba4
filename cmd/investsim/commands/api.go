package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/invest-sim/internal/api"
	"github.com/wonny/invest-sim/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                  - Health check
  POST /api/simulations         - 시뮬레이션 실행 (?save=true&full=false)
  GET  /api/simulations         - 저장된 실행 목록
  GET  /api/simulations/{id}    - 저장된 실행 조회
  POST /api/implicit-rate       - 수익률 역산
  POST /api/returns             - 연 수익률 시나리오 생성
  GET  /api/risk-free-rate      - 현재 무위험 수익률
  GET  /ws/simulations          - WebSocket 진행률 스트림

Example:
  go run ./cmd/investsim api
  go run ./cmd/investsim api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== investsim API Server ===")

	ctx := cmd.Context()

	// 1. Config, logger, redis, rates, engine, store
	a, err := newApp(ctx, appOptions{withStore: true})
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, log := a.cfg, a.log
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port":  cfg.Port,
		"env":   cfg.Env,
		"store": cfg.Store.Driver,
	}).Info("Initializing API server")

	// 2. Handlers
	sims := handlers.NewSimulationHandler(a.engine, a.runs, cfg.Simulation, cfg.API.MaxSimulations, log)
	router := api.NewRouter(api.Handlers{
		Simulations: sims,
		Tools:       handlers.NewToolsHandler(a.rates, log),
		Stream:      handlers.NewStreamHandler(sims, log),
	}, api.NewLimits(cfg.API, a.quota(), log), log)

	// 3. Server with graceful shutdown
	server := api.New(cfg, log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-quit:
	}

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
