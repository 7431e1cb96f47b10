package container

import (
	dierrors "github.com/km-arc/go-dibridge/framework/errors"
)

// Adapter is the read-only view one side of the bridge gets of the other
// side's container. Lookups are forwarded; every mutation fails with
// UnsupportedMutationError because the wrapped container's lifecycle is
// owned elsewhere.
//
//	facade := container.NewAdapter(runtimeContainer)
//	mailer, err := facade.Get("mailer")
//	err = facade.Set("mailer", m)   // UnsupportedMutationError
//
// An Adapter is safe for concurrent readers when the wrapped container is.
type Adapter struct {
	inner ReadOnly
}

// NewAdapter wraps inner.
func NewAdapter(inner ReadOnly) *Adapter {
	return &Adapter{inner: inner}
}

// Get returns the service id, or ServiceNotFoundError when Has(id) is false.
func (a *Adapter) Get(id string) (any, error) {
	if !a.inner.Has(id) {
		return nil, dierrors.ServiceNotFound(id)
	}
	return a.inner.Get(id)
}

func (a *Adapter) Has(id string) bool {
	return a.inner.Has(id)
}

// GetParameter returns the parameter name, or ParameterNotFoundError when
// HasParameter(name) is false.
func (a *Adapter) GetParameter(name string) (any, error) {
	if !a.inner.HasParameter(name) {
		return nil, dierrors.ParameterNotFound(name)
	}
	return a.inner.GetParameter(name)
}

func (a *Adapter) HasParameter(name string) bool {
	return a.inner.HasParameter(name)
}

// ── Mutations ─────────────────────────────────────────────────────────────────

func (a *Adapter) Set(id string, service any) error {
	return dierrors.UnsupportedMutation("Set").WithService(id)
}

func (a *Adapter) SetParameter(name string, value any) error {
	return dierrors.UnsupportedMutation("SetParameter").WithService(name)
}

func (a *Adapter) Initialized(id string) (bool, error) {
	return false, dierrors.UnsupportedMutation("Initialized").WithService(id)
}
