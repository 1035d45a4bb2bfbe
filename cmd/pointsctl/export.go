package main

import (
	"bufio"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-merit/internal/client"
	"github.com/noah-isme/sma-merit/internal/console"
	"github.com/noah-isme/sma-merit/internal/controller"
	"github.com/noah-isme/sma-merit/internal/models"
	"github.com/noah-isme/sma-merit/pkg/storage"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		view   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the full summary or detail listing to a file",
		Example: `  # CSV of every student's totals into the export dir
  pointsctl export --view summary

  # PDF of every record, rendered by the API server
  pointsctl export --view detail --format pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := models.ViewMode(view)
			if !mode.Valid() {
				return fmt.Errorf("unknown view %q", view)
			}
			ctx := cmd.Context()
			renderer := console.NewRenderer(cmd.ErrOrStderr())
			s, err := a.open(ctx, renderer)
			if err != nil {
				return err
			}
			defer s.close()
			if err := a.login(ctx, cmd, bufio.NewReader(cmd.InOrStdin()), s); err != nil {
				return err
			}

			switch models.ExportFormat(format) {
			case models.ExportFormatCSV:
				if err := s.ctl.Dispatch(ctx, controller.SetViewMode{Mode: mode}); err != nil {
					return err
				}
				return s.ctl.Dispatch(ctx, controller.Export{})
			case models.ExportFormatPDF:
				remote, ok := s.backend.(*client.HTTPBackend)
				if !ok {
					return fmt.Errorf("pdf exports are rendered by the API server; drop --local")
				}
				res, err := remote.RequestExport(ctx, models.ExportRequest{View: mode, Format: models.ExportFormatPDF})
				if err != nil {
					return err
				}
				data, err := remote.DownloadExport(ctx, res.URL)
				if err != nil {
					return err
				}
				sink, err := storage.NewLocalStorage(a.exportDir)
				if err != nil {
					return err
				}
				name := fmt.Sprintf("points_%s_%s.pdf", mode, time.Now().Format("2006-01-02"))
				path, err := sink.Save(name, data)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	cmd.Flags().StringVar(&view, "view", string(models.ViewSummary), "summary or detail")
	cmd.Flags().StringVar(&format, "format", string(models.ExportFormatCSV), "csv or pdf")
	return cmd
}
