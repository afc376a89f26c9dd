package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"labdesk/internal/app/export"
	"labdesk/internal/domain/model"
	"labdesk/internal/domain/repository"

	"github.com/spf13/cobra"
)

func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export lab tables",
	}
	cmd.AddCommand(newExportRenderCommand(rootOpts))
	return cmd
}

func newExportRenderCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		resource string
		out      string
		columns  string
		params   model.ExportParams
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a table as CSV without going through the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if columns != "" {
				params.Columns = strings.Split(columns, ",")
			}
			db, dialect, err := rootOpts.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				fh, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer fh.Close()
				w = fh
			}
			exporter := export.NewExporter(repository.NewUserRepository(db, dialect), repository.NewFeedbackRepository(db, dialect))
			return exporter.Render(cmd.Context(), w, resource, params)
		},
	}
	cmd.Flags().StringVar(&resource, "resource", model.TableFeedback, "table to export (users|feedback)")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&columns, "columns", "", "comma-separated column order")
	cmd.Flags().StringVar(&params.Search, "search", "", "search filter")
	cmd.Flags().StringVar(&params.SortBy, "sort-by", "", "sort column")
	cmd.Flags().StringVar(&params.Order, "order", "", "sort order (asc|desc)")
	return cmd
}
