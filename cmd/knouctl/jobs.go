package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	mcpadapter "github.com/kirillkom/knou-assistant/internal/adapters/mcp"
	"github.com/kirillkom/knou-assistant/internal/bootstrap"
	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/core/usecase"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/queue/nats"
)

func newIndexCmd(c *cli) *cobra.Command {
	var docType string
	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "Load, chunk and index a source file in-process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			report, err := app.Index.IndexJob(cmd.Context(), domain.IngestJob{Path: args[0], Type: domain.DocumentType(docType)})
			fmt.Fprintf(cmd.OutOrStdout(), "total=%d indexed=%d skipped=%d failed_batches=%d\n",
				report.Total, report.Indexed, report.Skipped, report.FailedBatches)
			return err
		},
	}
	cmd.Flags().StringVar(&docType, "type", string(domain.TypeNotice), "document type: notice, department_notice or schedule")
	return cmd
}

func newPublishCmd(c *cli) *cobra.Command {
	var docType string
	cmd := &cobra.Command{
		Use:   "publish <file>",
		Short: "Queue a source file for the worker to index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := nats.NewWithOptions(c.cfg.NATSURL, c.cfg.NATSSubject, nats.Options{Logger: c.logger})
			if err != nil {
				return fmt.Errorf("connect queue: %w", err)
			}
			defer queue.Close()

			job, err := usecase.NewIngestUseCase(queue).Enqueue(cmd.Context(), args[0], docType)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s (%s) on %s\n", job.Path, job.Type, c.cfg.NATSSubject)
			return nil
		},
	}
	cmd.Flags().StringVar(&docType, "type", string(domain.TypeNotice), "document type: notice, department_notice or schedule")
	return cmd
}

func newSearchCmd(c *cli) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run the hybrid retrieval pipeline for a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.New(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Search.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				if errors.Is(err, domain.ErrNoResults) {
					fmt.Fprintln(cmd.OutOrStdout(), domain.MessageNoResults)
					return nil
				}
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), mcpadapter.FormatResults(result))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of results (default RAG_TOP_K)")
	return cmd
}
