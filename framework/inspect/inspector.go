// Package inspect serves a read-only HTTP view of a container facade.
//
//	GET    /services/{id}       {"data": {"id": "mailer", "type": "*app.Mailer"}}
//	GET    /services/{id}?exists {"data": {"id": "mailer", "exists": true}}, builds nothing
//	GET    /parameters/{name}   {"data": {"name": "db.host", "value": "localhost"}}
//	GET    /metrics             Prometheus exposition
//	POST|PUT|PATCH|DELETE on /services/{id} or /parameters/{name}
//	                            405 UNSUPPORTED_MUTATION
package inspect

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	dierrors "github.com/km-arc/go-dibridge/framework/errors"
	gohttp "github.com/km-arc/go-dibridge/framework/http"
	"github.com/km-arc/go-dibridge/framework/routing"
)

// Facade is what the inspector reads from. *container.Adapter implements it.
type Facade interface {
	Get(id string) (any, error)
	Has(id string) bool
	GetParameter(name string) (any, error)
	HasParameter(name string) bool
	Set(id string, service any) error
	SetParameter(name string, value any) error
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(i *Inspector) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithMetrics shares a Metrics instance, e.g. one the kernel also records
// transforms into.
func WithMetrics(m *Metrics) Option {
	return func(i *Inspector) {
		if m != nil {
			i.metrics = m
		}
	}
}

// Inspector exposes a Facade over HTTP.
type Inspector struct {
	facade  Facade
	metrics *Metrics
	logger  *zap.Logger
}

// New creates an Inspector over facade.
func New(facade Facade, opts ...Option) *Inspector {
	i := &Inspector{facade: facade, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	if i.metrics == nil {
		i.metrics = NewMetrics()
	}
	return i
}

// Metrics returns the inspector's collectors.
func (i *Inspector) Metrics() *Metrics { return i.metrics }

// Mount registers the inspector routes on r.
func (i *Inspector) Mount(r *routing.Router) {
	r.Get("/services/{id}", i.service)
	r.Get("/parameters/{name}", i.parameter)
	r.Writes("/services/{id}", i.setService)
	r.Writes("/parameters/{name}", i.setParameter)
	r.Handle("/metrics", i.metrics.Handler())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		gohttp.NewResponse(w).NotFound()
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		gohttp.NewResponse(w).MethodNotAllowed()
	})
}

// Handler returns a router with only the inspector routes.
func (i *Inspector) Handler() http.Handler {
	r := routing.New()
	r.Middleware(routing.RequestLogger(i.logger))
	i.Mount(r)
	return r
}

// ── Handlers ──────────────────────────────────────────────────────────────────

func (i *Inspector) service(w http.ResponseWriter, req *http.Request) {
	in := gohttp.NewRequest(req)
	id := in.RouteParam("id")
	res := gohttp.NewResponse(w)

	if in.QueryBool("exists") {
		exists := i.facade.Has(id)
		i.metrics.lookup("existence", hit(exists))
		res.Success(map[string]any{"id": id, "exists": exists})
		return
	}

	v, err := i.facade.Get(id)
	if err != nil {
		i.metrics.lookup("service", result(err))
		i.logger.Debug("service lookup failed", zap.String("service", id), zap.Error(err))
		res.Fail(err)
		return
	}
	i.metrics.lookup("service", "hit")
	res.Success(map[string]any{"id": id, "type": fmt.Sprintf("%T", v)})
}

func (i *Inspector) parameter(w http.ResponseWriter, req *http.Request) {
	name := routing.Param(req, "name")
	res := gohttp.NewResponse(w)

	v, err := i.facade.GetParameter(name)
	if err != nil {
		i.metrics.lookup("parameter", result(err))
		res.Fail(err)
		return
	}
	i.metrics.lookup("parameter", "hit")
	res.Success(map[string]any{"name": name, "value": v})
}

func (i *Inspector) setService(w http.ResponseWriter, req *http.Request) {
	in := gohttp.NewRequest(req)
	payload, err := in.Payload()
	if err != nil {
		gohttp.NewResponse(w).Error(http.StatusBadRequest, err.Error())
		return
	}
	i.reject(w, i.facade.Set(in.RouteParam("id"), payload))
}

func (i *Inspector) setParameter(w http.ResponseWriter, req *http.Request) {
	in := gohttp.NewRequest(req)
	payload, err := in.Payload()
	if err != nil {
		gohttp.NewResponse(w).Error(http.StatusBadRequest, err.Error())
		return
	}
	i.reject(w, i.facade.SetParameter(in.RouteParam("name"), payload))
}

// reject answers a mutation. A facade that accepted it would be a bug; it
// is reported as a server error.
func (i *Inspector) reject(w http.ResponseWriter, err error) {
	res := gohttp.NewResponse(w)
	if err == nil {
		i.logger.Error("facade accepted a mutation")
		res.ServerError("mutation was not rejected")
		return
	}
	i.metrics.lookup("mutation", "rejected")
	res.Fail(err)
}

func hit(ok bool) string {
	if ok {
		return "hit"
	}
	return "miss"
}

func result(err error) string {
	if dierrors.IsNotFound(err) {
		return "miss"
	}
	return "error"
}
