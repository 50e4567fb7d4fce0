// Package httpapi exposes the domain mapping manager over HTTP.
//
// Management routes live under /v1 and may require a bearer token.
// /health/live, /health/ready, /metrics and /tls/ask stay public; the last
// one answers the on-demand TLS "ask" hook of edge proxies.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/customdomains/middlewares"
	"github.com/dmitrymomot/customdomains/pkg/cdnapi"
	"github.com/dmitrymomot/customdomains/pkg/certinspect"
	"github.com/dmitrymomot/customdomains/pkg/dnsverify"
	"github.com/dmitrymomot/customdomains/pkg/domainmap"
	"github.com/dmitrymomot/customdomains/pkg/health"
	"github.com/dmitrymomot/customdomains/pkg/logger"
	"github.com/dmitrymomot/customdomains/pkg/proxyconf"
)

// Service is the manager surface served by the API. *domainmap.Manager
// implements it.
type Service interface {
	AddDomain(ctx context.Context, ownerID int64, rawDomain string) (*domainmap.AddResult, error)
	Get(ctx context.Context, id string) (*domainmap.Mapping, error)
	List(ctx context.Context, f domainmap.ListFilter) ([]*domainmap.Mapping, error)
	Instructions(mp *domainmap.Mapping) domainmap.Instructions
	VerifyDomain(ctx context.Context, id string) (*domainmap.VerifyResult, error)
	Propagation(ctx context.Context, id string) (*dnsverify.PropagationResult, error)
	ApproveDomain(ctx context.Context, id string) (*domainmap.ApproveResult, error)
	RejectDomain(ctx context.Context, id, reason string) (*domainmap.Mapping, error)
	MarkLive(ctx context.Context, id string) (*domainmap.Mapping, error)
	DeleteDomain(ctx context.Context, id string) error
	GenerateProxyConfig(ctx context.Context, id string) (*proxyconf.Config, error)
	IsServable(ctx context.Context, host string) (bool, error)

	SetupCertificate(ctx context.Context, id string, provider domainmap.Provider) (*domainmap.CertificateResult, error)
	AutoProvision(ctx context.Context, id string) (*domainmap.CertificateResult, error)
	InspectCertificate(ctx context.Context, id string) (*certinspect.Result, error)
	SyncCertificate(ctx context.Context, id string) (*domainmap.SyncResult, error)
	ManagedCertificateStatus(ctx context.Context, id string) (*cdnapi.SSLStatus, error)

	TransferDomain(ctx context.Context, in domainmap.TransferInput) (*domainmap.Mapping, error)
	RequestTransfer(ctx context.Context, in domainmap.RequestTransferInput) (*domainmap.TransferRequest, error)
	ApproveTransferRequest(ctx context.Context, requestID, actor string) (*domainmap.Mapping, error)
	RejectTransferRequest(ctx context.Context, requestID, actor, reason string) (*domainmap.TransferRequest, error)
	ListTransferRequests(ctx context.Context, mappingID string) ([]*domainmap.TransferRequest, error)
	TransferHistory(ctx context.Context, mappingID string) ([]*domainmap.TransferLog, error)
}

var _ Service = (*domainmap.Manager)(nil)

// Server builds the HTTP handler.
type Server struct {
	svc        Service
	log        *slog.Logger
	metrics    http.Handler
	observers  []middlewares.RequestObserver
	checks     health.Checks
	healthOpts []health.Option
	apiToken   string
	timeout    time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for access logs and failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics mounts h at /metrics and reports every request to observe.
func WithMetrics(h http.Handler, observe middlewares.RequestObserver) Option {
	return func(s *Server) {
		s.metrics = h
		if observe != nil {
			s.observers = append(s.observers, observe)
		}
	}
}

// WithReadiness sets the checks behind /health/ready.
func WithReadiness(checks health.Checks, opts ...health.Option) Option {
	return func(s *Server) {
		s.checks = checks
		s.healthOpts = opts
	}
}

// WithAPIToken protects /v1 with a bearer token.
func WithAPIToken(token string) Option {
	return func(s *Server) {
		s.apiToken = token
	}
}

// WithRequestTimeout bounds /v1 requests. Certificate inspection can take
// up to 30s, so keep it above that.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.timeout = d
	}
}

// New creates a Server for svc.
func New(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		log:     logger.NewNope(),
		timeout: 45 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	onError := errorWriter(s.log)

	r := chi.NewRouter()
	r.Use(
		middlewares.RequestID(),
		middlewares.Logging(s.log, s.observers...),
		middlewares.Recover(
			middlewares.WithRecoverLogger(s.log),
			middlewares.WithRecoverErrorWriter(onError),
		),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		onError(w, r, &HTTPError{Status: http.StatusNotFound, Kind: string(domainmap.KindNotFound), Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		onError(w, r, &HTTPError{Status: http.StatusMethodNotAllowed, Kind: "method_not_allowed", Message: "method not allowed"})
	})

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(s.checks, s.healthOpts...))
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/tls/ask", s.handle(s.tlsAsk))

	r.Route("/v1", func(r chi.Router) {
		r.Use(
			middlewares.BearerToken(s.apiToken, onError),
			middlewares.Timeout(s.timeout, onError),
		)

		r.Route("/mappings", func(r chi.Router) {
			r.Get("/", s.handle(s.listMappings))
			r.Post("/", s.handle(s.addMapping))

			r.Route("/{id}", func(r chi.Router) {
				r.Use(s.withMapping)

				r.Get("/", s.handle(s.getMapping))
				r.Delete("/", s.handle(s.deleteMapping))
				r.Get("/instructions", s.handle(s.instructions))
				r.Post("/verify", s.handle(s.verify))
				r.Get("/propagation", s.handle(s.propagation))
				r.Post("/approve", s.handle(s.approve))
				r.Post("/reject", s.handle(s.reject))
				r.Post("/live", s.handle(s.markLive))
				r.Get("/proxy-config", s.handle(s.proxyConfig))

				r.Get("/certificate", s.handle(s.inspectCertificate))
				r.Post("/certificate", s.handle(s.setupCertificate))
				r.Post("/certificate/sync", s.handle(s.syncCertificate))
				r.Get("/certificate/managed", s.handle(s.managedCertificate))

				r.Post("/transfer", s.handle(s.transfer))
				r.Get("/transfers", s.handle(s.transferHistory))
				r.Get("/transfer-requests", s.handle(s.listTransferRequests))
				r.Post("/transfer-requests", s.handle(s.requestTransfer))
			})
		})

		r.Post("/transfer-requests/{id}/approve", s.handle(s.approveTransferRequest))
		r.Post("/transfer-requests/{id}/reject", s.handle(s.rejectTransferRequest))
	})

	return r
}

// handlerFunc is a handler that reports failures instead of writing them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) handle(fn handlerFunc) http.HandlerFunc {
	onError := errorWriter(s.log)
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			onError(w, r, err)
		}
	}
}

// withMapping tags the request context with the mapping id for logging.
func (s *Server) withMapping(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithMapping(r.Context(), urlParam(r, "id"), "")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) tlsAsk(w http.ResponseWriter, r *http.Request) error {
	host := r.URL.Query().Get("domain")
	if host == "" {
		return badRequest("query parameter \"domain\" is required", nil)
	}
	ok, err := s.svc.IsServable(r.Context(), host)
	if err != nil {
		return err
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return nil
	}
	w.WriteHeader(http.StatusOK)
	return nil
}
