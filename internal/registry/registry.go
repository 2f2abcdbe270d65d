// Package registry implements ServiceRegistry: a name-based dispatcher
// through which modules call each other over a uniform, msgpack-encodable
// request/response envelope rather than direct function references — the
// same envelope shape extends to a real transport (HTTP/gRPC) without
// touching a single call site.
package registry

import (
	"context"
	"sync"

	"github.com/cutflow/core/internal/errs"
	"github.com/vmihailenco/msgpack/v5"
)

// Envelope is the wire shape of a request: {method, path, data, headers}.
// Data is already msgpack-encoded by the caller.
type Envelope struct {
	Method  string
	Path    string
	Data    []byte
	Headers map[string]string
}

// ErrorEnvelope is the wire shape of a failed Result.
type ErrorEnvelope struct {
	Code    string
	Message string
}

// Result is the wire shape of a response: {success, data?, error?}.
type Result struct {
	Success bool
	Data    []byte
	Error   *ErrorEnvelope
}

const (
	codeServiceNotFound = "SERVICE_NOT_FOUND"
	codePathNotFound    = "NOT_FOUND"
)

// Handler answers one envelope for one registered (service, path) pair.
type Handler func(ctx context.Context, env Envelope) Result

// Registry is the dispatcher. A process normally constructs one singleton
// instance; tests construct isolated instances freely since Registry
// holds no package-level state.
type Registry struct {
	mu       sync.RWMutex
	services map[string]map[string]Handler
}

func New() *Registry {
	return &Registry{services: make(map[string]map[string]Handler)}
}

// Register wires handler under serviceName/path, replacing any handler
// already registered there.
func (r *Registry) Register(serviceName, path string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.services[serviceName] == nil {
		r.services[serviceName] = make(map[string]Handler)
	}
	r.services[serviceName][path] = handler
}

// Dispatch routes env to the handler registered for (serviceName,
// env.Path). An unknown service fails SERVICE_NOT_FOUND; a known service
// with an unregistered path fails NOT_FOUND.
func (r *Registry) Dispatch(ctx context.Context, serviceName string, env Envelope) Result {
	r.mu.RLock()
	paths, serviceExists := r.services[serviceName]
	var handler Handler
	var pathExists bool
	if serviceExists {
		handler, pathExists = paths[env.Path]
	}
	r.mu.RUnlock()

	if !serviceExists {
		return Result{Error: &ErrorEnvelope{Code: codeServiceNotFound, Message: "service not registered: " + serviceName}}
	}
	if !pathExists {
		return Result{Error: &ErrorEnvelope{Code: codePathNotFound, Message: "path not registered: " + env.Path}}
	}
	return handler(ctx, env)
}

// Call is the typed client side of a round trip: it encodes req, routes
// through reg, and decodes the response into Res.
func Call[Req any, Res any](ctx context.Context, reg *Registry, serviceName, method, path string, req Req, headers map[string]string) (Res, *errs.Error) {
	var zero Res

	data, err := msgpack.Marshal(req)
	if err != nil {
		return zero, errs.WrapInternal(err)
	}

	result := reg.Dispatch(ctx, serviceName, Envelope{Method: method, Path: path, Data: data, Headers: headers})
	if !result.Success {
		if result.Error == nil {
			return zero, errs.New(errs.Internal, "registry call failed with no error detail")
		}
		return zero, errs.New(errs.Code(result.Error.Code), result.Error.Message)
	}

	if len(result.Data) == 0 {
		return zero, nil
	}
	if err := msgpack.Unmarshal(result.Data, &zero); err != nil {
		return zero, errs.WrapInternal(err)
	}
	return zero, nil
}

// Handle is the typed server side: it registers a handler that decodes
// the envelope into Req, invokes fn, and encodes the result.
func Handle[Req any, Res any](reg *Registry, serviceName, path string, fn func(ctx context.Context, req Req) (Res, *errs.Error)) {
	reg.Register(serviceName, path, func(ctx context.Context, env Envelope) Result {
		var req Req
		if len(env.Data) > 0 {
			if err := msgpack.Unmarshal(env.Data, &req); err != nil {
				return Result{Error: &ErrorEnvelope{Code: string(errs.Validation), Message: "malformed request payload"}}
			}
		}

		res, svcErr := fn(ctx, req)
		if svcErr != nil {
			return Result{Error: &ErrorEnvelope{Code: string(svcErr.Code), Message: svcErr.Message}}
		}

		data, err := msgpack.Marshal(res)
		if err != nil {
			return Result{Error: &ErrorEnvelope{Code: string(errs.Internal), Message: "failed to encode response"}}
		}
		return Result{Success: true, Data: data}
	})
}
