package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/salesflow-ai/pulse/internal/behavior"
	"github.com/salesflow-ai/pulse/internal/brain"
	"github.com/salesflow-ai/pulse/internal/config"
	"github.com/salesflow-ai/pulse/internal/llm"
	"github.com/salesflow-ai/pulse/internal/pulse"
	"github.com/salesflow-ai/pulse/internal/store"
	"github.com/salesflow-ai/pulse/pkg/whatsapp"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Outreach pulse and behavioral intelligence backend",
	Long:  "Tracks outreach lifecycles with per-lead dynamic timing, classifies ghosts, ranks follow-up templates, computes funnels and runs the autonomous decision layer.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// env bundles the wired application components.
type env struct {
	Store    store.Store
	Gateway  *llm.Gateway
	Engine   *pulse.Engine
	Analyzer *behavior.Analyzer
	Brain    *brain.Brain
}

// initEnv opens the store, runs migrations and wires the component graph.
func initEnv(ctx context.Context) (*env, error) {
	var st store.Store
	var err error
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	gateway := llm.NewGateway(cfg, st)
	engine := pulse.NewEngine(st)
	sender := whatsapp.NewSender(whatsapp.Credentials{
		Provider:         cfg.WhatsApp.Provider,
		UltramsgInstance: cfg.WhatsApp.UltramsgInstance,
		UltramsgToken:    cfg.WhatsApp.UltramsgToken,
		DialogAPIKey:     cfg.WhatsApp.DialogAPIKey,
		TwilioAccountSID: cfg.WhatsApp.TwilioAccountSID,
		TwilioAuthToken:  cfg.WhatsApp.TwilioAuthToken,
		TwilioFromNumber: cfg.WhatsApp.TwilioFromNumber,
	})
	executor := brain.NewExecutor(engine, gateway, sender, cfg.WhatsApp.DefaultCountryCode)

	return &env{
		Store:    st,
		Gateway:  gateway,
		Engine:   engine,
		Analyzer: behavior.NewAnalyzer(gateway, st),
		Brain:    brain.NewBrain(cfg, st, gateway, executor),
	}, nil
}

// Close releases held resources.
func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close failed", zap.Error(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
