package farmapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gethsun1/project-mocha-demo/internal/domain"
	"github.com/gethsun1/project-mocha-demo/internal/ports"
)

// Handler serves farm snapshots over HTTP as a thin cache layer in front of
// the ledger reader. Every response carries no-cache headers: the
// orchestrator must never act on stale capacity data, so intermediaries are
// told not to hold the body.
type Handler struct {
	ledger ports.LedgerReader
	mux    *http.ServeMux
}

func NewHandler(ledger ports.LedgerReader) *Handler {
	h := &Handler{ledger: ledger, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /farm", h.getFarm)
	h.mux.HandleFunc("GET /farms", h.listFarms)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) getFarm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "farm id is required")
		return
	}

	snap, err := h.ledger.FarmSnapshot(r.Context(), id)
	if err != nil {
		slog.Warn("farmapi: snapshot read failed", "farm", id, "err", err)
		writeError(w, http.StatusBadGateway, "failed to read farm data")
		return
	}
	if snap.TreeCapacity == 0 {
		writeError(w, http.StatusNotFound, "farm not found")
		return
	}
	if snap.CurrentTrees > snap.TreeCapacity {
		// Registry inconsistency; refuse to serve numbers nobody should
		// make a purchase decision on.
		slog.Warn("farmapi: inconsistent snapshot",
			"farm", id, "current", snap.CurrentTrees, "capacity", snap.TreeCapacity)
		writeError(w, http.StatusBadGateway, "farm data inconsistent")
		return
	}

	// Stats failures degrade to zeros; the snapshot itself is authoritative.
	stats, err := h.ledger.FarmStats(r.Context(), id)
	if err != nil {
		slog.Warn("farmapi: stats read failed", "farm", id, "err", err)
		stats = domain.FarmStats{}
	}

	writeJSON(w, http.StatusOK, toFarmJSON(snap, stats))
}

func (h *Handler) listFarms(w http.ResponseWriter, r *http.Request) {
	ids, err := h.ledger.AllFarms(r.Context())
	if err != nil {
		slog.Warn("farmapi: list farms failed", "err", err)
		writeError(w, http.StatusBadGateway, "failed to list farms")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"farms": ids})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("farmapi: encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
