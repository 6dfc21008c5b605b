// Package dispatch maps queued operations onto remote backend calls.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"offlinesync/internal/metrics"
	"offlinesync/internal/models"

	"github.com/rs/zerolog"
)

// ErrUnsupportedOperation is returned for a known entity that has no route
// for the requested type and action.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// Backend performs one remote call. remote.Client satisfies it.
type Backend interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

type payload interface {
	Validate() error
}

type identified interface {
	payload
	EntityID() string
}

// binding is a typed handler erased to raw JSON at the table boundary.
type binding struct {
	validate func(raw json.RawMessage) error
	send     func(ctx context.Context, b Backend, raw json.RawMessage) error
}

type routeKey struct {
	entity string
	op     models.OperationType
	action string
}

type Dispatcher struct {
	backend  Backend
	routes   map[routeKey]binding
	entities map[string]struct{}
	logger   *zerolog.Logger
}

func NewDispatcher(backend Backend, logger *zerolog.Logger) *Dispatcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	d := &Dispatcher{
		backend:  backend,
		routes:   make(map[routeKey]binding),
		entities: make(map[string]struct{}),
		logger:   logger,
	}
	registerRoutes(d)
	return d
}

func (d *Dispatcher) handle(entity string, op models.OperationType, action string, b binding) {
	d.routes[routeKey{entity: entity, op: op, action: action}] = b
	d.entities[entity] = struct{}{}
}

// Known reports whether entity has at least one route.
func (d *Dispatcher) Known(entity string) bool {
	_, ok := d.entities[entity]
	return ok
}

// Entities lists the routed entity tags in sorted order.
func (d *Dispatcher) Entities() []string {
	out := make([]string, 0, len(d.entities))
	for e := range d.entities {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

func (d *Dispatcher) lookup(entity string, op models.OperationType, action string) (binding, bool) {
	if b, ok := d.routes[routeKey{entity: entity, op: op, action: action}]; ok {
		return b, true
	}
	if action == "" {
		return binding{}, false
	}
	b, ok := d.routes[routeKey{entity: entity, op: op}]
	return b, ok
}

// Validate checks an item before it is queued. Unknown entities pass: they
// are consumed without effect at dispatch time.
func (d *Dispatcher) Validate(item models.QueueItem) error {
	if !item.Type.Valid() {
		return fmt.Errorf("%w: type %q", ErrUnsupportedOperation, item.Type)
	}
	if !d.Known(item.Entity) {
		return nil
	}
	action := item.ResolveAction()
	b, ok := d.lookup(item.Entity, item.Type, action)
	if !ok {
		return unsupported(item.Entity, item.Type, action)
	}
	return b.validate(item.Payload)
}

// Dispatch applies item to the backend. An unknown entity is logged and
// reported as success so the caller drops it from the queue.
func (d *Dispatcher) Dispatch(ctx context.Context, item models.QueueItem) error {
	if !d.Known(item.Entity) {
		d.logger.Warn().
			Str("id", item.ID).
			Str("entity", item.Entity).
			Str("type", string(item.Type)).
			Msg("Unknown entity, operation discarded")
		metrics.IncDispatch(item.Entity, metrics.ResultUnroutable)
		return nil
	}

	action := item.ResolveAction()
	b, ok := d.lookup(item.Entity, item.Type, action)
	if !ok {
		metrics.IncDispatch(item.Entity, metrics.ResultFailure)
		return unsupported(item.Entity, item.Type, action)
	}
	if err := b.send(ctx, d.backend, item.Payload); err != nil {
		metrics.IncDispatch(item.Entity, metrics.ResultFailure)
		return fmt.Errorf("dispatch %s %s: %w", item.Entity, describe(item.Type, action), err)
	}
	metrics.IncDispatch(item.Entity, metrics.ResultSuccess)
	return nil
}

func unsupported(entity string, op models.OperationType, action string) error {
	return fmt.Errorf("%w: %s %s", ErrUnsupportedOperation, entity, describe(op, action))
}

func describe(op models.OperationType, action string) string {
	if action == "" {
		return string(op)
	}
	return string(op) + ":" + action
}

func decode[T payload](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, fmt.Errorf("%w: empty payload", models.ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", models.ErrInvalidPayload, err)
	}
	if err := v.Validate(); err != nil {
		return v, err
	}
	return v, nil
}

func decodeIdentified[T identified](raw json.RawMessage) (T, error) {
	v, err := decode[T](raw)
	if err != nil {
		return v, err
	}
	if strings.TrimSpace(v.EntityID()) == "" {
		return v, fmt.Errorf("%w: id is required", models.ErrInvalidPayload)
	}
	return v, nil
}

// create posts the payload to base.
func create[T payload](base string) binding {
	return binding{
		validate: func(raw json.RawMessage) error {
			_, err := decode[T](raw)
			return err
		},
		send: func(ctx context.Context, b Backend, raw json.RawMessage) error {
			v, err := decode[T](raw)
			if err != nil {
				return err
			}
			return b.Do(ctx, http.MethodPost, base, v, nil)
		},
	}
}

// onRecord calls method on base/{id}[/suffix], with or without a body.
func onRecord[T identified](method, base, suffix string, withBody bool) binding {
	return binding{
		validate: func(raw json.RawMessage) error {
			_, err := decodeIdentified[T](raw)
			return err
		},
		send: func(ctx context.Context, b Backend, raw json.RawMessage) error {
			v, err := decodeIdentified[T](raw)
			if err != nil {
				return err
			}
			path := base + "/" + url.PathEscape(v.EntityID())
			if suffix != "" {
				path += "/" + suffix
			}
			var body any
			if withBody {
				body = v
			}
			return b.Do(ctx, method, path, body, nil)
		},
	}
}

func update[T identified](base string) binding {
	return onRecord[T](http.MethodPut, base, "", true)
}

func remove(base string) binding {
	return onRecord[models.EntityRef](http.MethodDelete, base, "", false)
}

func act(base, name string) binding {
	return onRecord[models.EntityRef](http.MethodPost, base, name, true)
}

func setStatus(base string) binding {
	return onRecord[models.StatusChange](http.MethodPatch, base, "status", true)
}
