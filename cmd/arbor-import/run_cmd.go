package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/arborhq/arbor/modules/notes/infrastructure/persistence"
	"github.com/arborhq/arbor/modules/notes/services"
	"github.com/arborhq/arbor/pkg/composables"
	"github.com/arborhq/arbor/pkg/configuration"
	"github.com/arborhq/arbor/pkg/eventbus"
)

type runOptions struct {
	FilePath    string
	ProjectID   string
	BatchSize   int
	Concurrency int
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run --file <records.json> --project <uuid>",
		Short: "Run an import synchronously and print the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.FilePath) == "" {
				return errors.New("--file is required")
			}
			projectID, err := uuid.Parse(opts.ProjectID)
			if err != nil {
				return fmt.Errorf("--project must be a uuid: %w", err)
			}

			data, err := os.ReadFile(opts.FilePath)
			if err != nil {
				return err
			}
			var records []services.ImportRecord
			if err := json.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("parsing %s: %w", opts.FilePath, err)
			}
			if len(records) == 0 {
				return errors.New("no records to import")
			}

			conf := configuration.Use()
			defer conf.Unload()

			pool, err := pgxpool.New(cmd.Context(), conf.Database.Opts)
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx := composables.WithPool(cmd.Context(), pool)
			ctx = composables.WithLogger(ctx, conf.Logger().WithField("component", "arbor-import"))

			noteRepo := persistence.NewNoteRepository()
			tree := services.NewTreeService(noteRepo, eventbus.NewEventPublisher(conf.Logger()))
			status := services.NewMemoryImportStatusStore(time.Hour)
			defer status.Close()

			if opts.BatchSize < 1 {
				opts.BatchSize = conf.Import.BatchSize
			}
			if opts.Concurrency < 1 {
				opts.Concurrency = conf.Import.Concurrency
			}
			importer := services.NewImportService(tree, noteRepo, status, services.ImportConfig{
				BatchSize:    opts.BatchSize,
				Concurrency:  opts.Concurrency,
				MaxRetries:   conf.Import.MaxRetries,
				RetryBackoff: conf.Import.RetryBackoff,
			})

			report, err := importer.Run(ctx, uuid.New().String(), projectID, records)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d records failed", report.Failed, report.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.FilePath, "file", "", "path to a JSON array of import records")
	cmd.Flags().StringVar(&opts.ProjectID, "project", "", "target project id")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "records created per batch (defaults to IMPORT_BATCH_SIZE)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "parallel creations per batch (defaults to IMPORT_CONCURRENCY)")
	return cmd
}
