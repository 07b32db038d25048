package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"daily-sheet-service/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	reports *services.ReportService
	logger  logrus.FieldLogger
}

func NewReportHandler(reports *services.ReportService, logger logrus.FieldLogger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	sheetID, ok := pathID(r, "sheetId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid sheet ID")
		return
	}

	report, err := h.reports.Generate(r.Context(), sheetID)
	if err != nil {
		respondWithServiceError(w, h.logger, "Generate", "Failed to generate report", err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// Export streams the report as an xlsx workbook. The workbook is rendered
// in full before anything is written so failures still get a JSON error.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	sheetID, ok := pathID(r, "sheetId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid sheet ID")
		return
	}

	report, err := h.reports.Generate(r.Context(), sheetID)
	if err != nil {
		respondWithServiceError(w, h.logger, "Export", "Failed to export report", err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteWorkbook(&buf, report); err != nil {
		respondWithServiceError(w, h.logger, "Export", "Failed to export report", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="daily-sheet-%s.xlsx"`, report.Sheet.Date))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *ReportHandler) ListDates(w http.ResponseWriter, r *http.Request) {
	list, err := h.reports.ListDates(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, "ListDates", "Failed to fetch dates list", err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *ReportHandler) Range(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	report, err := h.reports.Range(r.Context(), vars["start"], vars["end"])
	if err != nil {
		respondWithServiceError(w, h.logger, "Range", "Failed to fetch date range reports", err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

func (h *ReportHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.reports.Overview(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, "Overview", "Failed to fetch summary overview", err)
		return
	}
	respondWithJSON(w, http.StatusOK, overview)
}
