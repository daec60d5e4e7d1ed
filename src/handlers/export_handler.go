// backend/src/handlers/export_handler.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/username/propfolio/backend/src/export"
	"github.com/username/propfolio/backend/src/logger"
	"github.com/username/propfolio/backend/src/services"
	"github.com/username/propfolio/backend/src/utils"
)

type ExportHandler struct {
	exportService services.ExportService
}

func NewExportHandler(exportService services.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// resolveRange turns query parameters into a date range. Custom start/end
// parameters take precedence over a preset key; the returned key is what gets
// persisted as the user's last-used selection.
func resolveRange(r *http.Request) (*export.DateRange, string, error) {
	q := r.URL.Query()
	startStr, endStr := q.Get("start"), q.Get("end")
	if startStr != "" || endStr != "" {
		dr, err := export.Custom(startStr, endStr)
		if err != nil {
			return nil, "", err
		}
		return &dr, "custom", nil
	}

	key := q.Get("range")
	dr, err := export.Resolve(key, time.Now())
	if err != nil {
		return nil, "", err
	}
	if key == "" {
		key = export.AllTimeKey
	}
	return dr, key, nil
}

// writeResult streams the archive on success, or a JSON result the frontend
// can toast on an empty/failed export. Empty results are expected outcomes,
// not server errors, so they answer 200.
func writeResult(w http.ResponseWriter, result *export.Result) {
	if !result.Success {
		utils.SendJSON(w, result, http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(result.Data)))
	w.Header().Set("X-Export-Message", result.Message)
	w.Header().Set("X-Export-Transactions", fmt.Sprintf("%d", result.TransactionCount))
	w.Header().Set("X-Export-Receipts", fmt.Sprintf("%d", result.ReceiptCount))
	if _, err := w.Write(result.Data); err != nil {
		logger.L.Warn("Failed to stream export archive", "error", err)
	}
}

// HandleGetRangePresets returns the selectable presets plus the user's
// last-used selection so the UI can default its picker.
func (h *ExportHandler) HandleGetRangePresets(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	type presetView struct {
		Key   string `json:"key"`
		Name  string `json:"name"`
		Start string `json:"start,omitempty"`
		End   string `json:"end,omitempty"`
	}
	presets := export.Presets(time.Now())
	views := make([]presetView, 0, len(presets))
	for _, p := range presets {
		v := presetView{Key: p.Key, Name: p.Name}
		if p.Range != nil {
			v.Start = p.Range.Start.Format(utils.DefaultDateFormat)
			v.End = p.Range.End.Format(utils.DefaultDateFormat)
		}
		views = append(views, v)
	}

	utils.SendJSON(w, map[string]interface{}{
		"presets":   views,
		"last_used": h.exportService.LastRangeKey(userID),
	}, http.StatusOK)
}

func (h *ExportHandler) HandleExportProperty(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}
	propertyID := r.PathValue("id")

	dateRange, rangeKey, err := resolveRange(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.exportService.ExportProperty(userID, propertyID, dateRange, rangeKey)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, "Property not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Property export failed", "userID", userID, "propertyID", propertyID, "error", err)
		utils.SendJSONError(w, "Export failed. Please try again.", http.StatusInternalServerError)
		return
	}
	writeResult(w, result)
}

func (h *ExportHandler) HandleExportPortfolio(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	dateRange, rangeKey, err := resolveRange(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.exportService.ExportPortfolio(userID, dateRange, rangeKey)
	if err != nil {
		logger.L.Error("Portfolio export failed", "userID", userID, "error", err)
		utils.SendJSONError(w, "Export failed. Please try again.", http.StatusInternalServerError)
		return
	}
	writeResult(w, result)
}

// HandleGetPortfolioSummary serves the dashboard's per-property roll-ups.
func (h *ExportHandler) HandleGetPortfolioSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	dateRange, _, err := resolveRange(r)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	summaries, err := h.exportService.PortfolioSummaries(userID, dateRange)
	if err != nil {
		utils.SendJSONError(w, "Failed to compute portfolio summary", http.StatusInternalServerError)
		return
	}

	if etag, err := utils.GenerateETag(summaries); err == nil {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}
	utils.SendJSON(w, summaries, http.StatusOK)
}
