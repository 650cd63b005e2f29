package httpadapter

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
)

type historyListResponse struct {
	OK   bool                     `json:"ok"`
	Rows []domain.EstimateSummary `json:"rows"`
}

type historyRowResponse struct {
	OK  bool                   `json:"ok"`
	Row *domain.EstimateRecord `json:"row"`
}

func (rt *Router) listHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := rt.history.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.EstimateSummary{}
	}
	writeJSON(w, http.StatusOK, historyListResponse{OK: true, Rows: rows})
}

func (rt *Router) getEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/estimate/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid estimate id"})
		return
	}

	record, err := rt.history.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyRowResponse{OK: true, Row: record})
}
