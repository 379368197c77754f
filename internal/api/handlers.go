package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/orrery/internal/journal"
	"github.com/starford/orrery/internal/scantree"
	"github.com/starford/orrery/internal/service"
)

// maxRecordBytes bounds a single ingested journal record.
const maxRecordBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *service.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// systemKey extracts the {key} URL parameter: a system address or a name.
// Names may arrive URL-encoded (e.g. Col%20285%20Sector).
func systemKey(r *http.Request) string {
	raw := chi.URLParam(r, "key")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListSystems handles GET /api/systems.
//
//	@Summary		List known systems
//	@Tags			systems
//	@Produce		json
//	@Success		200	{object}	SystemListResponse
//	@Security		BearerAuth
//	@Router			/systems [get]
func (h *Handler) ListSystems(w http.ResponseWriter, r *http.Request) {
	systems := h.svc.Systems(r.Context())
	if systems == nil {
		systems = []scantree.SystemInfo{}
	}
	writeJSON(w, http.StatusOK, SystemListResponse{Systems: systems, Total: len(systems)})
}

// GetSystem handles GET /api/systems/{key}.
//
//	@Summary		Get the scan tree of a system
//	@Tags			systems
//	@Produce		json
//	@Param			key	path		string	true	"System address or name"
//	@Success		200	{object}	scantree.SystemView
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/systems/{key} [get]
func (h *Handler) GetSystem(w http.ResponseWriter, r *http.Request) {
	tree, err := h.svc.System(r.Context(), systemKey(r))
	if err != nil {
		writeError(w, "get system", err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// GetStats handles GET /api/systems/{key}/stats.
//
//	@Summary		Aggregate counts and estimated value of a system
//	@Tags			systems
//	@Produce		json
//	@Param			key	path		string	true	"System address or name"
//	@Param			web	query		bool	false	"Include web-sourced bodies"
//	@Success		200	{object}	scantree.Stats
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/systems/{key}/stats [get]
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	web, _ := strconv.ParseBool(r.URL.Query().Get("web"))
	st, err := h.svc.Stats(r.Context(), systemKey(r), web)
	if err != nil {
		writeError(w, "get stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetBarycentres handles GET /api/systems/{key}/barycentres.
//
//	@Summary		Reconciled display tree with bodies grouped under barycentres
//	@Tags			systems
//	@Produce		json
//	@Param			key	path		string	true	"System address or name"
//	@Success		200	{object}	BarycentreResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/systems/{key}/barycentres [get]
func (h *Handler) GetBarycentres(w http.ResponseWriter, r *http.Request) {
	key := systemKey(r)
	roots, err := h.svc.Barycentres(r.Context(), key)
	if err != nil {
		writeError(w, "get barycentres", err)
		return
	}
	if roots == nil {
		roots = []*scantree.NodeView{}
	}
	writeJSON(w, http.StatusOK, BarycentreResponse{System: key, Roots: roots})
}

// FindBody handles GET /api/systems/{key}/bodies.
//
//	@Summary		Find a body by full or custom name
//	@Tags			bodies
//	@Produce		json
//	@Param			key		path		string	true	"System address or name"
//	@Param			name	query		string	true	"Full designation or custom name"
//	@Param			custom	query		bool	false	"Match the custom name"
//	@Success		200		{object}	scantree.NodeView
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/systems/{key}/bodies [get]
func (h *Handler) FindBody(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	custom, _ := strconv.ParseBool(q.Get("custom"))
	node, err := h.svc.FindBody(r.Context(), systemKey(r), q.Get("name"), custom)
	if err != nil {
		writeError(w, "find body", err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// ImportBodies handles POST /api/systems/{key}/bodies.
//
//	@Summary		Import bodies from a web catalogue
//	@Tags			bodies
//	@Accept			json
//	@Produce		json
//	@Param			key		path		string				true	"System address or name"
//	@Param			body	body		ImportBodiesRequest	true	"Bodies to import"
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/systems/{key}/bodies [post]
func (h *Handler) ImportBodies(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 20<<20)
	var req ImportBodiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	src, _ := journal.ParseDataSource(req.Source)

	res, err := h.svc.ImportBodies(r.Context(), scantree.ParseKey(systemKey(r)), src, req.Bodies)
	if err != nil {
		writeError(w, "import bodies", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// IngestEvent handles POST /api/events.
//
//	@Summary		Ingest one journal record
//	@Tags			events
//	@Accept			json
//	@Produce		json
//	@Param			body	body		object	true	"Journal record"
//	@Success		200		{object}	IngestResponse	"Attached or duplicate"
//	@Success		202		{object}	IngestResponse	"Deferred"
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/events [post]
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRecordBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	res, err := h.svc.Ingest(r.Context(), raw)
	if err != nil {
		writeError(w, "ingest event", err)
		return
	}
	status := http.StatusOK
	if res.Outcome == scantree.Deferred.String() {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

// Pending handles GET /api/pending.
//
//	@Summary		Deferred queue size by event kind
//	@Tags			events
//	@Produce		json
//	@Success		200	{object}	PendingResponse
//	@Security		BearerAuth
//	@Router			/pending [get]
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	pending := h.svc.Pending(r.Context())
	total := 0
	for _, n := range pending {
		total += n
	}
	writeJSON(w, http.StatusOK, PendingResponse{Pending: pending, Total: total})
}
