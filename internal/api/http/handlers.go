package http

import (
	"fmt"
	"net/http"

	"github.com/setexpand/setexpand/internal/api"
	seterrors "github.com/setexpand/setexpand/internal/errors"
	"github.com/setexpand/setexpand/internal/keyword"
)

// KeywordResponse is the /keyword response.
type KeywordResponse struct {
	Tables    []keyword.Table `json:"tables"`
	RequestID string          `json:"request_id"`
}

// HealthResponse is the /health response.
type HealthResponse struct {
	Status string `json:"status"`
}

// Handler serves the set-expansion API.
type Handler struct {
	svc *api.Service
}

// NewHandler creates a handler over svc.
func NewHandler(svc *api.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers every endpoint on a new mux wrapped in the default
// middleware chain plus any extra middleware, outermost first.
func (h *Handler) Routes(extra ...func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/keyword", h.method(http.MethodGet, h.keyword))
	mux.HandleFunc("/seed-set", h.method(http.MethodGet, h.seedSet))
	mux.HandleFunc("/dot-op", h.method(http.MethodGet, h.dotOp))
	mux.HandleFunc("/delete", h.method(http.MethodGet, h.deleteCols))
	mux.HandleFunc("/swap", h.method(http.MethodGet, h.swap))
	mux.HandleFunc("/session", h.method(http.MethodDelete, h.deleteSession))
	mux.HandleFunc("/stats", h.method(http.MethodGet, h.stats))
	mux.HandleFunc("/health", h.method(http.MethodGet, h.health))

	chain := append(append([]func(http.Handler) http.Handler{}, extra...), DefaultMiddleware())
	return ChainMiddleware(chain...)(mux)
}

func (h *Handler) method(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
				Error:     "method not allowed",
				Code:      seterrors.CodeInvalidInput,
				RequestID: GetRequestID(r.Context()),
			})
			return
		}
		fn(w, r)
	}
}

// keyword handles GET /keyword?keyword=a&keyword=b.
func (h *Handler) keyword(w http.ResponseWriter, r *http.Request) {
	tables, err := h.svc.Keyword(r.Context(), r.URL.Query()["keyword"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, KeywordResponse{Tables: tables, RequestID: GetRequestID(r.Context())})
}

// seedSet handles GET /seed-set?tableIDs=..&rowIDs=..[&session=].
func (h *Handler) seedSet(w http.ResponseWriter, r *http.Request) {
	refs, err := rowRefs(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.svc.PostSeedSet(r.Context(), r.URL.Query().Get("session"), refs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// dotOp handles GET /dot-op?session=&dotOp=&sliders=&unique=&rowsReturned=.
func (h *Handler) dotOp(w http.ResponseWriter, r *http.Request) {
	req := api.DotOpRequest{DotOp: r.URL.Query().Get("dotOp")}
	var err error
	if req.SessionID, err = sessionParam(r); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Sliders, err = intsParam(r, "sliders"); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Unique, err = intsParam(r, "unique"); err != nil {
		writeError(w, r, err)
		return
	}
	if req.RowsReturned, err = intParam(r, "rowsReturned"); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := h.svc.DotOp(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// deleteCols handles GET /delete?session=&del=1&del=2.
func (h *Handler) deleteCols(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cols, err := intsParam(r, "del")
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.svc.DeleteColumns(r.Context(), id, cols)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// swap handles GET /swap?session=&rowIDs=a&rowIDs=b&colIDs=c&colIDs=d.
func (h *Handler) swap(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := intsParam(r, "rowIDs")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cols, err := intsParam(r, "colIDs")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(rows) != 2 || len(cols) != 2 {
		writeError(w, r, seterrors.NewInvalidInput(
			fmt.Sprintf("swap needs two rowIDs and two colIDs, got %d and %d", len(rows), len(cols))))
		return
	}

	view, err := h.svc.SwapCells(r.Context(), id, rows[0], cols[0], rows[1], cols[1])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// deleteSession handles DELETE /session?session=.
func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessionParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.DeleteSession(id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// stats handles GET /stats.
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

// health handles GET /health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Health(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
