package export

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/clientops/internal/domain"
	"github.com/rpattn/clientops/pkg/validator"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler serves GET /export/{dataset} downloads.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service. The route must declare a {dataset} parameter.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dataset, err := ParseDataset(chi.URLParam(r, "dataset"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	values := r.URL.Query()
	format, err := ParseFormat(values.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := Request{
		Dataset: dataset,
		Format:  format,
		List:    domain.ListQueryFromValues(values),
		Date:    strings.TrimSpace(values.Get("date")),
	}
	if raw := strings.TrimSpace(values.Get("clientId")); raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid clientId: %v", err))
			return
		}
		req.ClientID = &clientID
	}

	file, err := h.service.Export(r.Context(), req)
	if err != nil {
		if validationErr, ok := validator.AsError(err); ok {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":  validationErr.Error(),
				"fields": validationErr.Errors,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	w.Header().Set("X-Export-Rows", strconv.Itoa(file.Rows))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
