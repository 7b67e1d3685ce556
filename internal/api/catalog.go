package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	plugins, err := s.svc.ListPlugins(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, plugins)
}

func (s *Server) getPlugin(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.GetPlugin(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "version"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// convertConfig stores the engine's translation of a native configuration
// file, sent as the raw request body, as the cluster template ?template=.
func (s *Server) convertConfig(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	tmpl, err := s.svc.ConvertClusterTemplate(r.Context(),
		chi.URLParam(r, "name"), chi.URLParam(r, "version"), r.URL.Query().Get("template"), data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tmpl)
}

// RegisterImageRequest is the body of POST /v1/images/{id}.
type RegisterImageRequest struct {
	Username    string `json:"username"`
	Description string `json:"description,omitempty"`
}

// TagsRequest is the body of the tag and untag routes.
type TagsRequest struct {
	Tags []string `json:"tags"`
}

// listImages filters by every ?tag= given; comma-separated values are split.
func (s *Server) listImages(w http.ResponseWriter, r *http.Request) {
	var tags []string
	for _, v := range r.URL.Query()["tag"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	images, err := s.svc.ListImages(r.Context(), tags)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.svc.GetImage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) findImage(w http.ResponseWriter, r *http.Request) {
	img, err := s.svc.FindImage(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) registerImage(w http.ResponseWriter, r *http.Request) {
	var req RegisterImageRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" {
		badRequest(w, "username is required")
		return
	}
	img, err := s.svc.RegisterImage(r.Context(), chi.URLParam(r, "id"), req.Username, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) unregisterImage(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.UnregisterImage(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) tagImage(w http.ResponseWriter, r *http.Request) {
	var req TagsRequest
	if !decode(w, r, &req) {
		return
	}
	img, err := s.svc.TagImage(r.Context(), chi.URLParam(r, "id"), req.Tags)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) untagImage(w http.ResponseWriter, r *http.Request) {
	var req TagsRequest
	if !decode(w, r, &req) {
		return
	}
	img, err := s.svc.UntagImage(r.Context(), chi.URLParam(r, "id"), req.Tags)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}
