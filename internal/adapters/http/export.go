package httpadapter

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
	"github.com/AdamCJJ/jiffy-volume-app/internal/core/usecase"
)

const exportSheetName = "History"

// exportHistory produces an operator-facing spreadsheet of the most recent
// estimates, newest first, capped the same way the JSON listing is.
func (rt *Router) exportHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rows, err := rt.history.List(r.Context(), usecase.MaxHistoryLimit)
	if err != nil {
		writeError(w, err)
		return
	}

	workbook, err := buildHistoryWorkbook(rows)
	if err != nil {
		slog.Error("history_export_failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Server error"})
		return
	}
	defer workbook.Close()

	filename := fmt.Sprintf("estimate-history-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := workbook.Write(w); err != nil {
		slog.Error("history_export_failed", "error", err)
	}
}

func buildHistoryWorkbook(rows []domain.EstimateSummary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	headers := []string{"ID", "Created At", "Agent Label", "Job Type", "Dumpster Size", "Photos", "Confidence", "Result Preview"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(exportSheetName, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, row := range rows {
		values := []any{
			row.ID,
			row.CreatedAt.UTC().Format(time.RFC3339),
			orEmpty(row.AgentLabel),
			string(row.JobType),
			sizeCell(row.DumpsterSize),
			row.PhotoCount,
			confidenceCell(row.Confidence),
			row.ResultPreview,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("row cell: %w", err)
			}
			if err := f.SetCellValue(exportSheetName, cell, value); err != nil {
				return nil, fmt.Errorf("write row: %w", err)
			}
		}
	}

	return f, nil
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sizeCell(size *float64) any {
	if size == nil {
		return "UNKNOWN"
	}
	return *size
}

func confidenceCell(c *domain.Confidence) string {
	if c == nil {
		return ""
	}
	return string(*c)
}
