package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/imamik/stratus/api/v1alpha1"
)

func (s *Server) listClusterTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.svc.ListClusterTemplates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) createClusterTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl v1alpha1.ClusterTemplate
	if !decode(w, r, &tmpl) {
		return
	}
	created, err := s.svc.CreateClusterTemplate(r.Context(), &tmpl)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getClusterTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.svc.GetClusterTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (s *Server) deleteClusterTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteClusterTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listNodeGroupTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.svc.ListNodeGroupTemplates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) createNodeGroupTemplate(w http.ResponseWriter, r *http.Request) {
	var tmpl v1alpha1.NodeGroupTemplate
	if !decode(w, r, &tmpl) {
		return
	}
	created, err := s.svc.CreateNodeGroupTemplate(r.Context(), &tmpl)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getNodeGroupTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.svc.GetNodeGroupTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

func (s *Server) deleteNodeGroupTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteNodeGroupTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
