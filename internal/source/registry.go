package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"tender-writer/internal/domain"
	"tender-writer/internal/fault"
)

// Handler describes one portal: the routing keys that select it, how to
// decode its payload and how to build its sub-record.
type Handler struct {
	Type    domain.SourceType
	Aliases []string
	New     func() Variant
	Detail  func(Variant) (domain.Detail, error)
}

// Decode parses body into a fresh variant of this handler's shape.
func (h Handler) Decode(body []byte) (Variant, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, null) {
		return nil, fault.Malformed("decode "+string(h.Type), errors.New("empty body"))
	}
	v := h.New()
	if err := json.Unmarshal(trimmed, v); err != nil {
		return nil, fault.Malformed("decode "+string(h.Type), err)
	}
	return v, nil
}

type Registry struct {
	byKey  map[string]Handler
	byType map[domain.SourceType]Handler
}

// NewRegistry indexes handlers by alias. Duplicate aliases or source types
// are programming errors and panic.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{
		byKey:  make(map[string]Handler),
		byType: make(map[domain.SourceType]Handler),
	}
	for _, h := range handlers {
		if h.New == nil || h.Detail == nil {
			panic(fmt.Sprintf("source: handler %q is incomplete", h.Type))
		}
		if _, dup := r.byType[h.Type]; dup {
			panic(fmt.Sprintf("source: %q registered twice", h.Type))
		}
		r.byType[h.Type] = h
		for _, a := range h.Aliases {
			k := normalizeKey(a)
			if prev, dup := r.byKey[k]; dup {
				panic(fmt.Sprintf("source: alias %q claimed by %q and %q", k, prev.Type, h.Type))
			}
			r.byKey[k] = h
		}
	}
	return r
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// Resolve finds the handler for a routing key, ignoring case.
func (r *Registry) Resolve(routingKey string) (Handler, error) {
	h, ok := r.byKey[normalizeKey(routingKey)]
	if !ok {
		return Handler{}, fault.Unsupported("resolve", routingKey)
	}
	return h, nil
}

func (r *Registry) Decode(routingKey string, body []byte) (Variant, error) {
	h, err := r.Resolve(routingKey)
	if err != nil {
		return nil, err
	}
	return h.Decode(body)
}

// Handler looks up a handler by the source type a variant reports.
func (r *Registry) Handler(t domain.SourceType) (Handler, bool) {
	h, ok := r.byType[t]
	return h, ok
}

// Keys returns every registered routing key, sorted.
func (r *Registry) Keys() []string {
	out := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
