package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ashureev/hint-trivia/internal/config"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trivia",
		Short:         "Hint-driven trivia game server.",
		Version:       releaseVersion,
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          runServe,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(), newSeedCmd())
	root.CompletionOptions.HiddenDefaultCmd = true
	root.SetHelpCommand(&cobra.Command{Hidden: true})
	root.SetVersionTemplate("trivia v{{.Version}}\n")
	return root
}

// loadConfig resolves configuration for cmd and installs the logger at the
// configured level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}

// runServe is shared by the root command and serve, so a bare invocation
// starts the server.
func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return serve(cmd.Context(), cfg)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, WebSocket and gRPC health servers.",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func newSeedCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the starter categories and questions.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			d, err := openDeps(cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			n, err := d.content.Seed(cmd.Context(), force)
			if err != nil {
				return fmt.Errorf("seed content: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace existing content")
	return cmd
}
