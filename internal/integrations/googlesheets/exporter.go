package googlesheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/sheets/v4"
)

// ValuesAPI is the part of the Sheets values API the exporter writes with.
type ValuesAPI interface {
	Update(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) (int64, error)
	Clear(ctx context.Context, spreadsheetID, clearRange string) error
}

type ExportResult struct {
	SpreadsheetID string    `json:"spreadsheetId"`
	Range         string    `json:"range"`
	Rows          int       `json:"rows"`
	UpdatedCells  int64     `json:"updatedCells"`
	ExportedAt    time.Time `json:"exportedAt"`
}

type Exporter struct {
	values        ValuesAPI
	spreadsheetID string
	writeRange    string
	logger        *zap.Logger
	now           func() time.Time
}

func NewExporter(service *sheets.Service, spreadsheetID, writeRange string, logger *zap.Logger) *Exporter {
	return newExporter(&sheetsValues{service: service}, spreadsheetID, writeRange, logger)
}

func newExporter(values ValuesAPI, spreadsheetID, writeRange string, logger *zap.Logger) *Exporter {
	return &Exporter{
		values:        values,
		spreadsheetID: spreadsheetID,
		writeRange:    writeRange,
		logger:        logger,
		now:           time.Now,
	}
}

// WriteTable replaces the configured range with header followed by rows.
func (e *Exporter) WriteTable(ctx context.Context, header []interface{}, rows [][]interface{}) (*ExportResult, error) {
	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, header)
	values = append(values, rows...)

	if err := e.values.Clear(ctx, e.spreadsheetID, e.writeRange); err != nil {
		return nil, fmt.Errorf("could not clear spreadsheet range %s: %w", e.writeRange, err)
	}

	updated, err := e.values.Update(ctx, e.spreadsheetID, e.writeRange, values)
	if err != nil {
		return nil, fmt.Errorf("could not write spreadsheet range %s: %w", e.writeRange, err)
	}

	e.logger.Info("Exported table to google sheets",
		zap.String("spreadsheet_id", e.spreadsheetID),
		zap.String("range", e.writeRange),
		zap.Int("rows", len(rows)),
		zap.Int64("updated_cells", updated),
	)

	return &ExportResult{
		SpreadsheetID: e.spreadsheetID,
		Range:         e.writeRange,
		Rows:          len(rows),
		UpdatedCells:  updated,
		ExportedAt:    e.now(),
	}, nil
}
