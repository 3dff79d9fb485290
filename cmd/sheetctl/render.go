package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/locvowork/sheet_aggregator/internal/domain"
	"github.com/locvowork/sheet_aggregator/internal/service"
)

func newRenderCmd() *cobra.Command {
	var (
		inputPath  string
		sheet      string
		outputPath string
		recalc     bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one sheet of a workbook as HTML",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := service.NewWorkbookService(localFetcher(""), nil, nil, nil, service.Options{})
			page, err := svc.Preview(cmd.Context(), domain.PreviewRequest{
				Location:    inputPath,
				Sheet:       sheet,
				Recalculate: recalc,
			})
			if err != nil {
				return err
			}
			if outputPath == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), page)
				return err
			}
			if err := os.WriteFile(outputPath, []byte(page), 0644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "in", "i", "", "Workbook path or URL")
	cmd.Flags().StringVarP(&sheet, "sheet", "s", "", "Sheet name (default: first sheet)")
	cmd.Flags().StringVarP(&outputPath, "out", "o", "", "Output HTML path (default: stdout)")
	cmd.Flags().BoolVar(&recalc, "recalc", false, "Recalculate formulas before rendering")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func newSheetsCmd() *cobra.Command {
	var inputPath string
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "List the sheet names of a workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := service.NewWorkbookService(localFetcher(""), nil, nil, nil, service.Options{})
			names, err := svc.SheetNames(cmd.Context(), inputPath)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "in", "i", "", "Workbook path or URL")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
