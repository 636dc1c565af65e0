package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nara.lk/portal/internal/db"
	"nara.lk/portal/internal/logging"
	"nara.lk/portal/internal/translation"
)

func newLanguagesCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List supported translation languages",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := parseOutputFormat(format, outputFormatTable, outputFormatJSON)
			if err != nil {
				return usageErrorf("%v", err)
			}

			options := translation.TranslationLanguageOptions()
			if resolved == outputFormatJSON {
				return printJSON(cmd.OutOrStdout(), options)
			}

			table := make([][]string, 0, len(options))
			for _, opt := range options {
				table = append(table, []string{opt.Code, opt.Label, opt.Native, opt.Script})
			}
			return writeTable(cmd.OutOrStdout(), []string{"CODE", "LANGUAGE", "NATIVE", "SCRIPT"}, table)
		},
	}
	cmd.Flags().StringVar(&format, "format", outputFormatTable, "Output format: table or json")
	return cmd
}

func newHealthCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check provider configuration and database connectivity",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealth(cmd, flags)
		},
	}
}

func runHealth(cmd *cobra.Command, flags *globalFlags) error {
	cfg, logger, err := flags.loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	defer cancel()

	registry, order, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("provider check failed: %w", err)
	}

	database := "disabled"
	if cfg.HasDatabase() {
		pool, err := db.NewPool(ctx, db.Options{
			DatabaseURL: cfg.DatabaseURL,
			MinConns:    cfg.DBMinConns,
			MaxConns:    cfg.DBMaxConns,
			LogLevel:    cfg.LogLevel,
			Environment: cfg.Environment,
			SkipMigrate: true,
		}, logging.Component(logger, "db"))
		if err != nil {
			logger.Error().Err(err).Msg("health failed to connect to database")
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		defer pingCancel()
		if err := pool.Ping(pingCtx); err != nil {
			logger.Error().Err(err).Msg("health database ping failed")
			return fmt.Errorf("database ping failed: %w", err)
		}
		database = "ok"
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ok database=%s chain=%s\n", database, strings.Join(order, ","))
	for _, info := range registry.Describe() {
		fmt.Fprintf(cmd.OutOrStdout(), "provider=%s cost=%s quality=%s timeout_ms=%d min_interval_ms=%d concurrency=%d\n",
			info.Name, info.Capability.Cost, info.Capability.Quality, info.TimeoutMs, info.MinIntervalMs, info.Concurrency)
	}
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the portal version",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "portal %s\n", Version)
			return err
		},
	}
}
