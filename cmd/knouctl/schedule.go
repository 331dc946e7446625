package main

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/knou-assistant/internal/infrastructure/source"
	"github.com/kirillkom/knou-assistant/internal/infrastructure/storage/localfs"
)

func newFetchScheduleCmd(c *cli) *cobra.Command {
	var (
		year int
		out  string
	)
	cmd := &cobra.Command{
		Use:   "fetch-schedule",
		Short: "Download the academic calendar for a year as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if year <= 0 {
				year = time.Now().Year()
			}
			fetcher := source.NewScheduleFetcher(c.cfg.ScheduleURL, c.cfg.ScheduleFetchRPS, &http.Client{Timeout: 30 * time.Second})
			records, err := fetcher.FetchYear(cmd.Context(), year)
			if err != nil {
				return fmt.Errorf("fetch schedule %d: %w", year, err)
			}

			var buf bytes.Buffer
			if err := source.WriteScheduleCSV(&buf, records); err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("schedule_%d.csv", year)
			}
			storage, err := localfs.New(c.cfg.DataPath)
			if err != nil {
				return err
			}
			if err := storage.Save(cmd.Context(), out, &buf); err != nil {
				return err
			}
			path, _ := storage.Path(out)
			c.logger.Info("schedule_fetched", "year", year, "records", len(records), "path", path)
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d schedule rows: %s\n", len(records), path)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "calendar year (default current year)")
	cmd.Flags().StringVar(&out, "out", "", "output key under DATA_PATH (default schedule_<year>.csv)")
	return cmd
}
