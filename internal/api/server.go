package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imamik/stratus/api/v1alpha1"
	"github.com/imamik/stratus/internal/metrics"
	"github.com/imamik/stratus/internal/provisioning"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Service is the orchestrator surface the API exposes.
type Service interface {
	CreateCluster(ctx context.Context, spec v1alpha1.ClusterSpec) (*v1alpha1.Cluster, error)
	ScaleCluster(ctx context.Context, id string, request v1alpha1.ScalingRequest) (*v1alpha1.Cluster, error)
	TerminateCluster(ctx context.Context, id string) error
	GetCluster(ctx context.Context, id string) (*v1alpha1.Cluster, error)
	ListClusters(ctx context.Context) ([]*v1alpha1.Cluster, error)

	CreateClusterTemplate(ctx context.Context, tmpl *v1alpha1.ClusterTemplate) (*v1alpha1.ClusterTemplate, error)
	GetClusterTemplate(ctx context.Context, id string) (*v1alpha1.ClusterTemplate, error)
	ListClusterTemplates(ctx context.Context) ([]*v1alpha1.ClusterTemplate, error)
	DeleteClusterTemplate(ctx context.Context, id string) error
	ConvertClusterTemplate(ctx context.Context, plugin, version, name string, data []byte) (*v1alpha1.ClusterTemplate, error)

	CreateNodeGroupTemplate(ctx context.Context, tmpl *v1alpha1.NodeGroupTemplate) (*v1alpha1.NodeGroupTemplate, error)
	GetNodeGroupTemplate(ctx context.Context, id string) (*v1alpha1.NodeGroupTemplate, error)
	ListNodeGroupTemplates(ctx context.Context) ([]*v1alpha1.NodeGroupTemplate, error)
	DeleteNodeGroupTemplate(ctx context.Context, id string) error

	ListPlugins(ctx context.Context) ([]v1alpha1.PluginInfo, error)
	GetPlugin(ctx context.Context, name, version string) (*v1alpha1.PluginVersionInfo, error)

	ListImages(ctx context.Context, tags []string) ([]v1alpha1.Image, error)
	GetImage(ctx context.Context, id string) (*v1alpha1.Image, error)
	FindImage(ctx context.Context, name string) (*v1alpha1.Image, error)
	RegisterImage(ctx context.Context, id, username, description string) (*v1alpha1.Image, error)
	UnregisterImage(ctx context.Context, id string) error
	TagImage(ctx context.Context, id string, tags []string) (*v1alpha1.Image, error)
	UntagImage(ctx context.Context, id string, tags []string) (*v1alpha1.Image, error)
}

// Server routes HTTP requests to a Service.
type Server struct {
	svc           Service
	events        *provisioning.EventLog
	log           logr.Logger
	enableMetrics bool
}

// Option configures a Server.
type Option func(*Server)

// WithEvents serves the provisioning events recorded in log.
func WithEvents(log *provisioning.EventLog) Option {
	return func(s *Server) {
		s.events = log
	}
}

// WithLogger sets the request logger.
func WithLogger(l logr.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithMetrics enables request counting and the /metrics route.
func WithMetrics(enabled bool) Option {
	return func(s *Server) {
		s.enableMetrics = enabled
	}
}

// New returns a Server for svc.
func New(svc Service, opts ...Option) *Server {
	s := &Server{svc: svc, log: logr.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.enableMetrics {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/clusters", func(r chi.Router) {
			r.Get("/", s.listClusters)
			r.Post("/", s.createCluster)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getCluster)
				r.Delete("/", s.terminateCluster)
				r.Post("/scale", s.scaleCluster)
				r.Get("/events", s.clusterEvents)
			})
		})

		r.Route("/cluster-templates", func(r chi.Router) {
			r.Get("/", s.listClusterTemplates)
			r.Post("/", s.createClusterTemplate)
			r.Get("/{id}", s.getClusterTemplate)
			r.Delete("/{id}", s.deleteClusterTemplate)
		})
		r.Route("/node-group-templates", func(r chi.Router) {
			r.Get("/", s.listNodeGroupTemplates)
			r.Post("/", s.createNodeGroupTemplate)
			r.Get("/{id}", s.getNodeGroupTemplate)
			r.Delete("/{id}", s.deleteNodeGroupTemplate)
		})

		r.Route("/plugins", func(r chi.Router) {
			r.Get("/", s.listPlugins)
			r.Get("/{name}/{version}", s.getPlugin)
			r.Post("/{name}/{version}/convert", s.convertConfig)
		})

		r.Route("/images", func(r chi.Router) {
			r.Get("/", s.listImages)
			r.Get("/by-name/{name}", s.findImage)
			r.Get("/{id}", s.getImage)
			r.Post("/{id}", s.registerImage)
			r.Delete("/{id}", s.unregisterImage)
			r.Post("/{id}/tag", s.tagImage)
			r.Post("/{id}/untag", s.untagImage)
		})
	})

	return r
}

// logRequests attaches a request-scoped logger to the context and logs
// each request once it was served.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := s.log.WithValues("request", middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(logr.NewContext(r.Context(), log)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		log.V(1).Info("request served",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start).Round(time.Microsecond).String(),
		)
		if s.enableMetrics {
			metrics.RecordHTTPRequest(route, r.Method, strconv.Itoa(status))
		}
	})
}
