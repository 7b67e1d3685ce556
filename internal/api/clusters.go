package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/provisioning"
)

func (s *Server) listClusters(w http.ResponseWriter, r *http.Request) {
	clusters, err := s.svc.ListClusters(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clusters)
}

func (s *Server) createCluster(w http.ResponseWriter, r *http.Request) {
	var spec v1alpha1.ClusterSpec
	if !decode(w, r, &spec) {
		return
	}
	cluster, err := s.svc.CreateCluster(r.Context(), spec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, cluster)
}

func (s *Server) getCluster(w http.ResponseWriter, r *http.Request) {
	cluster, err := s.svc.GetCluster(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cluster)
}

func (s *Server) scaleCluster(w http.ResponseWriter, r *http.Request) {
	var req v1alpha1.ScalingRequest
	if !decode(w, r, &req) {
		return
	}
	cluster, err := s.svc.ScaleCluster(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, cluster)
}

func (s *Server) terminateCluster(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.TerminateCluster(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if s.events != nil {
		s.events.Forget(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// clusterEvents returns the recorded events of a cluster. ?after=n skips
// the first n events so pollers only receive what is new.
func (s *Server) clusterEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.svc.GetCluster(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	events := []provisioning.Event{}
	if s.events != nil {
		events = append(events, s.events.Events(id)...)
	}
	if v := r.URL.Query().Get("after"); v != "" {
		after, err := strconv.Atoi(v)
		if err != nil || after < 0 {
			badRequest(w, "after must be a non-negative integer")
			return
		}
		events = events[min(after, len(events)):]
	}
	writeJSON(w, http.StatusOK, events)
}
