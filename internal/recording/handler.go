package recording

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"record-gateway/internal/archive"
	"record-gateway/internal/platform/metrics"
	"record-gateway/internal/record"
	"record-gateway/internal/serdes"
)

const maxBodyBytes = 1 << 20

// ArchiveLister reads archived status documents.
type ArchiveLister interface {
	List(ctx context.Context, vhost, app string) ([]archive.Entry, error)
}

// Handler exposes the recording API using go-chi.
type Handler struct {
	svc          *Service
	archive      ArchiveLister
	log          *slog.Logger
	metrics      *metrics.Metrics
	defaultVHost string
}

// NewHandler returns a Handler. archive and m may be nil (e.g. in tests).
func NewHandler(svc *Service, arc ArchiveLister, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, archive: arc, log: log, metrics: m}
}

// WithDefaultVHost enables the /v1/apps/{app} routes, which address apps
// of vhost without naming it in the path.
func (h *Handler) WithDefaultVHost(vhost string) *Handler {
	h.defaultVHost = vhost
	return h
}

// Routes registers the recording endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/v1/vhosts/{vhost}/apps/{app}", h.appRoutes)
	if h.defaultVHost != "" {
		r.Route("/v1/apps/{app}", h.appRoutes)
	}
}

func (h *Handler) appRoutes(r chi.Router) {
	r.Route("/records", func(r chi.Router) {
		r.Get("/", h.ListRecords)
		r.Post("/start", h.StartRecord)
		r.Post("/stop", h.StopRecord)
		r.Get("/{record_id}", h.GetRecord)
		r.Delete("/{record_id}", h.RemoveRecord)
	})
	r.Get("/archive", h.ListArchive)
}

// place returns the vhost and app addressed by r.
func (h *Handler) place(r *http.Request) (string, string) {
	vhost := chi.URLParam(r, "vhost")
	if vhost == "" {
		vhost = h.defaultVHost
	}
	return vhost, chi.URLParam(r, "app")
}

// envelope is the response wrapper shared by every endpoint.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Response   any    `json:"response,omitempty"`
}

// StartRecord handles POST /v1/vhosts/{vhost}/apps/{app}/records/start.
func (h *Handler) StartRecord(w http.ResponseWriter, r *http.Request) {
	vhost, app := h.place(r)

	body, ok := h.readObject(w, r)
	if !ok {
		return
	}

	rec := serdes.RecordFromJSON(body)
	if err := h.svc.Start(r.Context(), vhost, app, rec); err != nil {
		status := statusFor(err)
		h.reject(err, status)
		if status >= http.StatusInternalServerError {
			h.log.Error("start record failed",
				slog.String("vhost", vhost),
				slog.String("app", app),
				slog.String("id", rec.ID()),
				slog.String("error", err.Error()))
		} else {
			h.log.Info("start record rejected",
				slog.String("vhost", vhost),
				slog.String("app", app),
				slog.String("id", rec.ID()),
				slog.String("error", err.Error()))
		}
		writeError(w, status, err)
		return
	}

	h.log.Info("record started",
		slog.String("vhost", vhost),
		slog.String("app", app),
		slog.String("id", rec.ID()),
		slog.String("stream", rec.Request().StreamName))
	if h.metrics != nil {
		h.metrics.IncStarted()
	}
	writeJSON(w, http.StatusOK, serdes.JSONFromRecord(rec))
}

// StopRecord handles POST /v1/vhosts/{vhost}/apps/{app}/records/stop.
// Body: { "id": "<record id>" }.
func (h *Handler) StopRecord(w http.ResponseWriter, r *http.Request) {
	vhost, app := h.place(r)

	body, ok := h.readObject(w, r)
	if !ok {
		return
	}

	id := serdes.RecordFromJSON(body).ID()
	rec, err := h.svc.Stop(r.Context(), vhost, app, id)
	if err != nil {
		status := statusFor(err)
		h.reject(err, status)
		h.log.Info("stop record rejected",
			slog.String("vhost", vhost),
			slog.String("app", app),
			slog.String("id", id),
			slog.String("error", err.Error()))
		writeError(w, status, err)
		return
	}

	h.log.Info("record stopped",
		slog.String("vhost", vhost),
		slog.String("app", app),
		slog.String("id", id),
		slog.String("state", rec.State().String()))
	if h.metrics != nil {
		h.metrics.IncStopped()
	}
	writeJSON(w, http.StatusOK, serdes.JSONFromRecord(rec))
}

// ListRecords handles GET /v1/vhosts/{vhost}/apps/{app}/records[?id=].
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	vhost, app := h.place(r)

	recs := h.svc.List(vhost, app)
	if id := r.URL.Query().Get("id"); id != "" {
		rec, err := h.svc.Get(vhost, app, id)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		recs = []*record.Record{rec}
	}
	writeJSON(w, http.StatusOK, serdes.RecordListJSON(recs))
}

// GetRecord handles GET /v1/vhosts/{vhost}/apps/{app}/records/{record_id}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	vhost, app := h.place(r)
	rec, err := h.svc.Get(vhost, app, chi.URLParam(r, "record_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, serdes.JSONFromRecord(rec))
}

// RemoveRecord handles DELETE /v1/vhosts/{vhost}/apps/{app}/records/{record_id}.
func (h *Handler) RemoveRecord(w http.ResponseWriter, r *http.Request) {
	vhost, app := h.place(r)
	id := chi.URLParam(r, "record_id")
	if err := h.svc.Remove(vhost, app, id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	h.log.Info("record removed",
		slog.String("vhost", vhost),
		slog.String("app", app),
		slog.String("id", id))
	writeJSON(w, http.StatusOK, nil)
}

// ListArchive handles GET /v1/vhosts/{vhost}/apps/{app}/archive.
func (h *Handler) ListArchive(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusNotFound, errors.New("archive is not enabled"))
		return
	}
	vhost, app := h.place(r)
	entries, err := h.archive.List(r.Context(), vhost, app)
	if err != nil {
		h.log.Error("list archive failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	docs := make([]json.RawMessage, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, json.RawMessage(e.Document))
	}
	writeJSON(w, http.StatusOK, docs)
}

// readObject reads the request body and parses it as a JSON object. On
// failure it writes a 400 response and returns false.
func (h *Handler) readObject(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.log.Debug("read request body failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, errors.New("could not read request body"))
		return nil, false
	}

	v, err := serdes.ParseJSON(data)
	if err != nil {
		h.log.Debug("invalid request body", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("request body must be a JSON object"))
		return nil, false
	}
	return obj, true
}

func (h *Handler) reject(err error, status int) {
	if h.metrics == nil || status >= http.StatusInternalServerError {
		return
	}
	h.metrics.IncRejected(rejectReason(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRecordExists), errors.Is(err, ErrNotRecording), errors.Is(err, ErrStillRecording):
		return http.StatusConflict
	case errors.Is(err, ErrStreamNameRequired), errors.Is(err, ErrSplitConflict),
		errors.Is(err, ErrInvalidInterval), errors.Is(err, ErrIDRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrRecordNotFound):
		return "not_found"
	case errors.Is(err, ErrRecordExists):
		return "duplicate_id"
	case errors.Is(err, ErrNotRecording):
		return "not_recording"
	case errors.Is(err, ErrStreamNameRequired):
		return "stream_name_required"
	case errors.Is(err, ErrSplitConflict):
		return "split_conflict"
	case errors.Is(err, ErrInvalidInterval):
		return "invalid_interval"
	case errors.Is(err, ErrIDRequired):
		return "id_required"
	default:
		return "other"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		StatusCode: status,
		Message:    http.StatusText(status),
		Response:   v,
	})
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		StatusCode: status,
		Message:    err.Error(),
	})
}
