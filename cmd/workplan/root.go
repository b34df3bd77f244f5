package main

import (
	"fmt"
	"io"

	"github.com/Conceptual-Machines/workplan-api/internal/config"
	"github.com/Conceptual-Machines/workplan-api/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// commandContext carries the loaded configuration between commands
type commandContext struct {
	envFile string
	cfg     *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", c.envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Environment)
	c.cfg = cfg
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "workplan",
		Short:         "Teacher Assist work plan tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.envFile, "env-file", "", "Load environment variables from this file instead of .env")

	rootCmd.AddCommand(newBulkCommand(ctx))
	rootCmd.AddCommand(newRefsCommand(ctx))
	rootCmd.AddCommand(newSeedCommand(ctx))

	return rootCmd
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
