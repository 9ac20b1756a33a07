package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/clientops/internal/adminpanel"
	"github.com/rpattn/clientops/internal/clients"
	"github.com/rpattn/clientops/internal/domain"
	"github.com/rpattn/clientops/internal/export"
	"github.com/rpattn/clientops/internal/graphql"
	"github.com/rpattn/clientops/internal/ingestion"
	"github.com/rpattn/clientops/internal/middleware"
	"github.com/rpattn/clientops/internal/repository"
	"github.com/rpattn/clientops/internal/tickets"
	"github.com/rpattn/clientops/internal/watchlist"
	"github.com/rpattn/clientops/pkg/validator"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"
)

// HealthFunc reports whether the backing store is reachable.
type HealthFunc func(ctx context.Context) error

// Services bundles the domain services the API serves.
type Services struct {
	ClientRepo repository.ClientRepository
	Clients    *clients.Service
	Records    *watchlist.Service
	Tickets    *tickets.Service
	Panel      *adminpanel.Service
	Import     *ingestion.Service
	Export     *export.Service
	GraphQL    *graphql.Executor
}

type Handler struct {
	services    Services
	corsOrigins []string
	rateLimiter *middleware.RateLimiter
	health      HealthFunc
}

// Option configures the handler.
type Option func(*Handler)

// WithCORSOrigins sets the allowed browser origins.
func WithCORSOrigins(origins []string) Option {
	return func(h *Handler) {
		h.corsOrigins = origins
	}
}

// WithRateLimiter limits requests per client address. A nil limiter disables limiting.
func WithRateLimiter(limiter *middleware.RateLimiter) Option {
	return func(h *Handler) {
		h.rateLimiter = limiter
	}
}

// WithHealth sets the store check behind /healthz.
func WithHealth(health HealthFunc) Option {
	return func(h *Handler) {
		h.health = health
	}
}

func NewHandler(services Services, opts ...Option) *Handler {
	h := &Handler{
		services:    services,
		corsOrigins: []string{"http://localhost:3000"},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.rateLimiter.Middleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   h.corsOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Export-Rows"},
	}).Handler)
	r.Use(middleware.EngineerMiddleware)
	r.Use(middleware.DataLoaderMiddleware(h.services.ClientRepo))

	r.Get("/healthz", h.healthz)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/clients", h.listClients)
		r.Post("/clients", h.createClient)
		r.Get("/clients/{clientID}", h.getClient)
		r.Put("/clients/{clientID}", h.updateClient)
		r.Get("/clients/{clientID}/details", h.getClientDetails)

		r.Get("/records", h.listRecords)
		r.Post("/records", h.createRecord)
		r.Method(http.MethodPost, "/records/import", ingestion.NewHTTPHandler(h.services.Import))
		r.Method(http.MethodPost, "/records/import/preview", ingestion.NewPreviewHandler(h.services.Import))
		r.Get("/records/import/logs", h.listImportLogs)
		r.Get("/records/{recordID}", h.getRecord)
		r.Post("/records/{recordID}/toggle", h.toggleRecord)
		r.Delete("/records/{recordID}", h.deleteRecord)

		r.Get("/tickets", h.listTickets)
		r.Post("/tickets", h.submitTicket)
		r.Get("/tickets/{ticketID}", h.getTicket)

		r.Get("/admin-panel", h.getAdminPanel)
		r.Method(http.MethodGet, "/export/{dataset}", export.NewHTTPHandler(h.services.Export))
	})

	r.Handle("/query", graphql.NewServer(h.services.GraphQL))
	r.Get("/playground", graphql.PlaygroundHandler("/query"))

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			log.Printf("[HTTP] health check failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// clients

func (h *Handler) listClients(w http.ResponseWriter, r *http.Request) {
	page, err := h.services.Clients.List(r.Context(), domain.ListQueryFromValues(r.URL.Query()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) createClient(w http.ResponseWriter, r *http.Request) {
	var input domain.ClientInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	client, err := h.services.Clients.Onboard(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

func (h *Handler) getClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "clientID")
	if err != nil {
		writeError(w, err)
		return
	}
	client, err := h.services.Clients.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (h *Handler) updateClient(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "clientID")
	if err != nil {
		writeError(w, err)
		return
	}
	var input domain.ClientInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	client, err := h.services.Clients.Update(r.Context(), id, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

func (h *Handler) getClientDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "clientID")
	if err != nil {
		writeError(w, err)
		return
	}
	details, err := h.services.Clients.Details(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details.Summarize())
}

// records

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	filter, err := recordFilterFromValues(values)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.services.Records.List(r.Context(), watchlist.Query{
		Filter: filter,
		List:   domain.ListQueryFromValues(values),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) listImportLogs(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	records, err := recordFilterFromValues(values)
	if err != nil {
		writeError(w, err)
		return
	}
	filter := domain.ImportLogFilter{
		ClientID: records.ClientID,
		Kind:     records.Kind,
		FileName: strings.TrimSpace(values.Get("fileName")),
	}
	if filter.Limit, err = queryInt(values.Get("limit"), "limit"); err != nil {
		writeError(w, err)
		return
	}
	if filter.Offset, err = queryInt(values.Get("offset"), "offset"); err != nil {
		writeError(w, err)
		return
	}

	logs, err := h.services.Import.Logs(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var input domain.WatchRecordInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	record, err := h.services.Records.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "recordID")
	if err != nil {
		writeError(w, err)
		return
	}
	record, err := h.services.Records.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) toggleRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "recordID")
	if err != nil {
		writeError(w, err)
		return
	}
	record, err := h.services.Records.Toggle(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "recordID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.services.Records.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// tickets

func (h *Handler) listTickets(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	clientID, err := queryUUID(values.Get("clientId"), "clientId")
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.services.Tickets.List(r.Context(), values.Get("date"), clientID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

func (h *Handler) submitTicket(w http.ResponseWriter, r *http.Request) {
	var input tickets.Input
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	ticket, err := h.services.Tickets.Submit(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) getTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "ticketID")
	if err != nil {
		writeError(w, err)
		return
	}
	ticket, err := h.services.Tickets.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// admin panel

func (h *Handler) getAdminPanel(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	panel, err := h.services.Panel.Build(r.Context(), values.Get("date"), values.Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, panel)
}

// helpers

type badRequestError struct {
	message string
}

func (e badRequestError) Error() string {
	return e.message
}

func badRequest(format string, args ...any) error {
	return badRequestError{message: fmt.Sprintf(format, args...)}
}

func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return badRequest("invalid payload: %v", err)
	}
	return nil
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, badRequest("invalid %s", param)
	}
	return id, nil
}

func queryUUID(raw, name string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, badRequest("invalid %s", name)
	}
	return &id, nil
}

func queryInt(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, badRequest("%s must be a non-negative integer", name)
	}
	return value, nil
}

func recordFilterFromValues(values map[string][]string) (domain.RecordFilter, error) {
	get := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	var filter domain.RecordFilter
	clientID, err := queryUUID(get("clientId"), "clientId")
	if err != nil {
		return filter, err
	}
	filter.ClientID = clientID

	if raw := get("kind"); raw != "" {
		kind := domain.ParseRecordKind(raw)
		if !kind.Valid() {
			return filter, badRequest("unknown record kind %q", raw)
		}
		filter.Kind = kind
	}
	if raw := get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, badRequest("active must be a boolean")
		}
		filter.Active = &active
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps service errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	if validationErr, ok := validator.AsError(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Errors,
		})
		return
	}

	var badReq badRequestError
	switch {
	case errors.As(err, &badReq):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": badReq.message})
	case errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, repository.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "conflict"})
	default:
		log.Printf("[HTTP] request failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
