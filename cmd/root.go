package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/techsched/app"
	"github.com/kilianp07/techsched/config"
	"github.com/kilianp07/techsched/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "techsched",
	Short:        "Technician scheduling for school fault reports",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background workers",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration file. A missing default file falls back
// to the built-in defaults with environment overrides; an explicitly given
// one must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.LoadEnv()
	}
	return nil, fmt.Errorf("load config: %w", err)
}

func newService(ctx context.Context, cmd *cobra.Command) (*app.Service, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

func closeService(svc *app.Service) {
	if err := svc.Close(); err != nil {
		logger.New("main").Errorf("service close: %v", err)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newService(ctx, cmd)
	if err != nil {
		return err
	}
	defer closeService(svc)
	return svc.Run(ctx)
}
