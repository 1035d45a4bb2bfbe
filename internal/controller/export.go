package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit/internal/models"
	"github.com/noah-isme/sma-merit/pkg/export"
)

const exportDateLayout = "2006-01-02"

// ExportFileName names the CSV written for mode on the current day.
func (c *Controller) ExportFileName(mode models.ViewMode) string {
	return fmt.Sprintf("points_%s_%s.csv", mode, c.now().Format(exportDateLayout))
}

// export renders the unfiltered dataset of the active mode as CSV and hands it to the sink.
func (c *Controller) export(ctx context.Context) error {
	if c.sink == nil {
		return c.fail(fmt.Errorf("no export destination configured"), "export failed")
	}
	c.mu.Lock()
	mode := c.state.ViewMode
	c.mu.Unlock()

	data, err := c.RenderExport(ctx, mode)
	if err != nil {
		return c.fail(err, "export failed")
	}
	path, err := c.sink.Save(c.ExportFileName(mode), data)
	if err != nil {
		return c.fail(err, "export failed")
	}
	c.logger.Info("export saved", zap.String("path", path), zap.String("mode", string(mode)))
	c.notify(LevelSuccess, "export saved: "+path, defaultNotificationTTL)
	return nil
}

// RenderExport fetches the full listing for mode and encodes it as UTF-8 CSV with a byte-order mark.
func (c *Controller) RenderExport(ctx context.Context, mode models.ViewMode) ([]byte, error) {
	var dataset export.Dataset
	switch mode {
	case models.ViewSummary:
		summaries, err := c.backend.ListSummaries(ctx)
		if err != nil {
			return nil, err
		}
		dataset = models.SummaryDataset(summaries)
	case models.ViewDetail:
		records, err := c.backend.ListRecords(ctx)
		if err != nil {
			return nil, err
		}
		dataset = models.DetailDataset(records)
	default:
		return nil, fmt.Errorf("unknown view mode %q", mode)
	}
	return export.NewCSVExporter(true).Render(dataset)
}
