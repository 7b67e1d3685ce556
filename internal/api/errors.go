package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-logr/logr"

	"github.com/imamik/stratus/internal/orchestration"
	"github.com/imamik/stratus/internal/platform"
	"github.com/imamik/stratus/internal/provisioning"
	"github.com/imamik/stratus/internal/store"
)

// Error codes carried in ErrorResponse.
const (
	CodeBadRequest     = "bad_request"
	CodeValidation     = "validation"
	CodeNotFound       = "not_found"
	CodePluginNotFound = "plugin_not_found"
	CodeBusy           = "busy"
	CodeInvalidState   = "invalid_state"
	CodeUnsupported    = "unsupported"
	CodeInternal       = "internal"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	ClusterID string `json:"clusterId,omitempty"`
}

// Classify maps err to an HTTP status and error code.
func Classify(err error) (int, string) {
	var verr *orchestration.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, provisioning.ErrPluginNotFound):
		return http.StatusNotFound, CodePluginNotFound
	case errors.Is(err, store.ErrNotFound), errors.Is(err, platform.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, orchestration.ErrClusterBusy):
		return http.StatusConflict, CodeBusy
	case errors.Is(err, orchestration.ErrInvalidState):
		return http.StatusConflict, CodeInvalidState
	case errors.Is(err, orchestration.ErrImagesUnsupported), errors.Is(err, orchestration.ErrConversionUnsupported):
		return http.StatusNotImplemented, CodeUnsupported
	}
	return http.StatusInternalServerError, CodeInternal
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := Classify(err)
	resp := ErrorResponse{Code: code, Message: err.Error()}

	var verr *orchestration.ValidationError
	if errors.As(err, &verr) {
		resp.ClusterID = verr.ClusterID
	}
	if status == http.StatusInternalServerError {
		logr.FromContextOrDiscard(r.Context()).Error(err, "request failed", "method", r.Method, "path", r.URL.Path)
	}
	writeJSON(w, status, resp)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: CodeBadRequest, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v and answers 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}
