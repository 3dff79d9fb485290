package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/locvowork/sheet_aggregator/internal/domain"
	"github.com/locvowork/sheet_aggregator/internal/service"
)

func newMergeCmd() *cobra.Command {
	var (
		manifestPath string
		outputPath   string
		marker       string
		workers      int
		retries      int
	)
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the workbooks listed in a manifest into one workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(manifestPath)
			if err != nil {
				return err
			}
			if marker != "" {
				m.Marker = marker
			}

			// relative locations resolve against the manifest
			svc := service.NewWorkbookService(localFetcher(filepath.Dir(manifestPath)), nil, nil, nil, service.Options{
				Workers: workers,
				Retries: retries,
			})
			res, err := svc.Aggregate(cmd.Context(), domain.AggregateRequest{
				Sources:   m.Sources,
				FieldData: m.FieldData,
				Marker:    m.Marker,
			})
			if err != nil {
				return fmt.Errorf("merge failed: %w", err)
			}
			if err := os.WriteFile(outputPath, res.Data, 0644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, s := range res.Report.Sheets {
				if s.FieldSheet {
					fmt.Fprintf(out, "sheet  %-31s field data, %d rows, %d cells\n", s.Name, s.Rows, s.Cells)
					continue
				}
				fmt.Fprintf(out, "sheet  %-31s from %q, %d cells, %d formulas rewritten\n",
					s.Name, s.Original, s.Cells, s.FormulasRewritten)
			}
			for _, s := range res.Report.Skipped {
				fmt.Fprintf(out, "skip   source %d %s: %s\n", s.Source, s.Label, s.Reason)
			}
			for _, d := range res.Report.Diagnostics {
				fmt.Fprintf(out, "note   source %d [%s] %s\n", d.Source, d.Code, d.Message)
			}
			fmt.Fprintf(out, "wrote %s: %d sheets, %d styles\n", outputPath, len(res.Report.Sheets), res.Report.Styles)
			return nil
		},
	}
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "YAML manifest listing the sources")
	cmd.Flags().StringVarP(&outputPath, "out", "o", "merged.xlsx", "Output workbook path")
	cmd.Flags().StringVar(&marker, "marker", "", "Field sheet marker (default DATAIN)")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent source fetches")
	cmd.Flags().IntVar(&retries, "retries", 0, "Retries for failed fetches")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}
