package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
	"github.com/kirillkom/knou-assistant/internal/core/usecase"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/source"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/storage/localfs"
)

func newPrepareCmd(c *cli) *cobra.Command {
	var (
		docType string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "prepare <file>",
		Short: "Chunk a source file and export the chunks as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedType, ok := domain.ParseDocumentType(docType)
			if !ok {
				return fmt.Errorf("unknown document type %q", docType)
			}
			loader, err := source.ForPath(args[0])
			if err != nil {
				return err
			}
			records, err := loader.Load(cmd.Context(), args[0], parsedType)
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			docs := usecase.PrepareChunks(records, chunking.NewSplitter(c.cfg.ChunkSize, c.cfg.ChunkOverlap))

			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			for _, doc := range docs {
				if err := enc.Encode(doc); err != nil {
					return fmt.Errorf("encode chunk %s: %w", doc.ID, err)
				}
			}

			if out == "" {
				base := filepath.Base(args[0])
				out = filepath.Join("prepared", strings.TrimSuffix(base, filepath.Ext(base))+".jsonl")
			}
			storage, err := localfs.New(c.cfg.DataPath)
			if err != nil {
				return err
			}
			if err := storage.Save(cmd.Context(), out, &buf); err != nil {
				return err
			}
			path, _ := storage.Path(out)
			fmt.Fprintf(cmd.OutOrStdout(), "prepared %d chunks from %d records: %s\n", len(docs), len(records), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&docType, "type", string(domain.TypeNotice), "document type: notice, department_notice or schedule")
	cmd.Flags().StringVar(&out, "out", "", "output key under DATA_PATH (default prepared/<name>.jsonl)")
	return cmd
}
