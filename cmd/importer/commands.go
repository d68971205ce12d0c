package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kiranshivaraju/salesboard/internal/analytics"
	"github.com/kiranshivaraju/salesboard/internal/cache"
	"github.com/kiranshivaraju/salesboard/internal/config"
	"github.com/kiranshivaraju/salesboard/internal/ingest"
	"github.com/kiranshivaraju/salesboard/internal/jobs"
	"github.com/kiranshivaraju/salesboard/internal/store"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "salesboard-importer",
		Short:        "Load sales files into salesboard",
		SilenceUsage: true,
	}
	root.AddCommand(newSeedCmd(), newUploadCmd(), newReconcileCmd())
	return root
}

// deps is what every subcommand runs against.
type deps struct {
	cfg     *config.Config
	store   store.Store
	aliases *ingest.AliasTable

	// summaries drops cached analytics for tenants the command touched.
	summaries *analytics.Service
}

// withDeps loads configuration, opens the configured store and cache and
// hands them to fn. Everything is released when fn returns.
func withDeps(ctx context.Context, fn func(context.Context, *deps) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, closeStore, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	c, err := cache.New(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	if closer, ok := c.(io.Closer); ok {
		defer closer.Close()
	}

	aliases, err := ingest.LoadAliases(cfg.Upload.AliasesFile)
	if err != nil {
		return err
	}

	return fn(ctx, &deps{
		cfg:       cfg,
		store:     st,
		aliases:   aliases,
		summaries: analytics.NewService(st, c, cfg.Redis.SummaryTTL, nil),
	})
}

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the default company's sales with a file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDeps(cmd.Context(), func(ctx context.Context, d *deps) error {
				if file == "" {
					file = d.cfg.Seed.File
				}
				seeder := ingest.NewSeeder(d.store, d.aliases, ingest.WithInvalidator(d.summaries))
				res, err := seeder.SeedFile(ctx, file)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d records from %s (%d skipped)\n",
					res.Imported, file, res.Skipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV, XLSX or XLS file (default: $SEED_FILE)")
	return cmd
}

func newUploadCmd() *cobra.Command {
	var (
		file    string
		company string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Import a file as a new company",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}
			return withDeps(cmd.Context(), func(ctx context.Context, d *deps) error {
				pipeline := ingest.NewPipeline(d.store, d.aliases, ingest.WithInvalidator(d.summaries))
				res, err := pipeline.Upload(ctx, ingest.UploadRequest{
					Filename:    filepath.Base(file),
					Data:        data,
					CompanyName: company,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "company %s (%s): %d imported, %d skipped\n",
					res.Tenant.Name, res.Tenant.ID, res.Imported, res.Skipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "CSV, XLSX or XLS file (required)")
	cmd.Flags().StringVar(&company, "company", "", "Company name (default: dated upload name)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recount every company's records once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDeps(cmd.Context(), func(ctx context.Context, d *deps) error {
				corrected, err := jobs.NewReconciler(d.store, nil).Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d record counts corrected\n", corrected)
				return nil
			})
		},
	}
}
