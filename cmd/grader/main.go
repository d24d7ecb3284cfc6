// Command grader grades essays from the command line.
//
// Usage:
//
//	grader grade essays/*.pdf --out out/ --preset ielts --pdf
//	grader grade --text "My essay..." --provider mock
//	grader models --provider ollama --base-url http://localhost:11434
//	grader report out/essay.json --pdf
package main

import (
	"context"
	"fmt"
	"os"

	"essaygrader/internal/config"
	"essaygrader/internal/grading"
	"essaygrader/internal/logging"
	"essaygrader/internal/providers"
	"essaygrader/internal/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load(".env")
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	cfg    config.Config
	target providers.Target
	log    *zap.Logger
}

func newRootCmd(cfg config.Config) *cobra.Command {
	a := &app{cfg: cfg, log: zap.NewNop()}
	root := &cobra.Command{
		Use:           "grader",
		Short:         "Grade essays with a local or hosted language model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewConsole(a.cfg.LogLevel)
			if err != nil {
				return err
			}
			a.log = logger
			zap.ReplaceGlobals(logger)
			return nil
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&a.target.Provider, "provider", cfg.Provider, "model provider: ollama, openai[:alias] or mock")
	f.StringVar(&a.target.BaseURL, "base-url", "", "model server URL (defaults to the provider's configured server)")
	f.StringVar(&a.target.Model, "model", cfg.Model, "model name")
	f.StringVar(&a.cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	f.StringVar(&a.cfg.DatabaseURL, "db", cfg.DatabaseURL, "history store (postgres://... or sqlite://path); empty disables history")

	root.AddCommand(newGradeCmd(a), newModelsCmd(a), newReportCmd(a))
	return root
}

func (a *app) manager() *providers.Manager {
	return providers.NewManager(a.cfg)
}

// openStore returns nil when no history store is configured.
func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, nil
	}
	store, err := storage.Open(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models installed on the model server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := grading.NewService(a.manager(), nil, a.log).ListModels(cmd.Context(), a.target)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
