package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/promptbench/engine/internal/config"
	"github.com/promptbench/engine/internal/domain"
	"github.com/promptbench/engine/internal/engine"
	"github.com/promptbench/engine/internal/policy"
	"github.com/promptbench/engine/internal/scenario"
	"github.com/promptbench/engine/internal/store"
	"github.com/promptbench/engine/internal/tools"
	v1 "github.com/promptbench/engine/internal/transport/http/v1"
)

func main() {
	scenarioPath := flag.String("scenario", "", "run the executions in a scenario file and exit")
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	log.Printf("Starting conversation engine...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Provider: %s", cfg.ProviderBaseURL)
	log.Printf("Simulated mode: %v", cfg.SimulatedMode)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize runner. The builtin registry backs live tool execution;
	// deployments register their own tools on top of it.
	runner := engine.NewRunner(cfg, db, tools.NewBuiltin(), policyEngine)

	if *scenarioPath != "" {
		if err := runScenario(ctx, runner, *scenarioPath); err != nil {
			log.Fatalf("Scenario run failed: %v", err)
		}
		return
	}

	// Initialize handler
	h := v1.NewHandler(runner, db)

	// Create Echo server
	server := echo.New()
	server.HideBanner = true

	// Middleware
	server.Use(middleware.Logger())
	server.Use(middleware.Recover())

	// Register routes
	h.RegisterRoutes(server)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Engine API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down engine...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Engine stopped")
}

// runScenario executes every entry of a scenario file sequentially and logs
// a one-line summary per execution.
func runScenario(ctx context.Context, runner *engine.Runner, path string) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	log.Printf("Running scenario %q: %d execution(s)", sc.Name, len(sc.Executions))
	failed := 0
	for _, exec := range sc.Executions {
		params := exec.Params()
		result, err := runner.Execute(ctx, params)
		if result == nil {
			log.Printf("ERROR: execution %s could not start: %v", params.ExecutionID, err)
			failed++
			continue
		}
		log.Printf("Execution %s finished: status=%s turns=%d messages=%d",
			params.ExecutionID, result.Status, result.TotalTurns, len(result.Messages))
		if result.Status != domain.StatusCompleted {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d execution(s) did not complete", failed, len(sc.Executions))
	}
	return nil
}
