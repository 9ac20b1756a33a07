package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rpattn/clientops/internal/repository"
	"github.com/rpattn/clientops/pkg/validator"

	"github.com/google/uuid"
)

const maxUploadBytes = 32 << 20

// Handler exposes record import as an HTTP endpoint.
type Handler struct {
	service *Service
	preview bool
}

// NewHTTPHandler wraps the service with a multipart POST endpoint taking
// file, clientId and kind.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

// NewPreviewHandler reports the detected layout of an upload without importing it.
func NewPreviewHandler(service *Service) http.Handler {
	return &Handler{service: service, preview: true}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid form data: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file required: %v", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read file: %v", err))
		return
	}

	var headerRowIndex *int
	if raw := strings.TrimSpace(r.FormValue("headerRowIndex")); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "headerRowIndex must be an integer")
			return
		}
		headerRowIndex = &idx
	}

	if h.preview {
		limit, _ := strconv.Atoi(r.FormValue("limit"))
		result, err := h.service.Preview(r.Context(), PreviewRequest{
			FileName:       header.Filename,
			HeaderRowIndex: headerRowIndex,
			Limit:          limit,
			Data:           bytes.NewReader(data),
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	clientIDRaw := strings.TrimSpace(r.FormValue("clientId"))
	clientID, err := uuid.Parse(clientIDRaw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid client id: %v", err))
		return
	}

	summary, err := h.service.Import(r.Context(), Request{
		ClientID:       clientID,
		Kind:           r.FormValue("kind"),
		FileName:       header.Filename,
		HeaderRowIndex: headerRowIndex,
		Data:           bytes.NewReader(data),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func writeServiceError(w http.ResponseWriter, err error) {
	if validationErr, ok := validator.AsError(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  validationErr.Error(),
			"fields": validationErr.Errors,
		})
		return
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
