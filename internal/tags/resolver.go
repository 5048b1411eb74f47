// Package tags resolves tag names to shared tag records.
package tags

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tender-writer/internal/domain"
)

// Lookup finds existing tags whose names match case-insensitively.
type Lookup interface {
	FindTags(ctx context.Context, names []string) ([]domain.Tag, error)
}

type Resolver struct {
	NewID func() string
}

func NewResolver() *Resolver {
	return &Resolver{NewID: uuid.NewString}
}

// Resolve returns one tag per distinct name, in first-occurrence order.
// Names that differ only by case collapse into one tag. The store is asked
// at most once; names it does not know are minted in scope with the casing
// first seen.
func (r *Resolver) Resolve(ctx context.Context, lookup Lookup, names []string, scope *Scope) ([]domain.Tag, error) {
	var (
		order   []string
		spell   = make(map[string]string)
		missing []string
	)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		k := domain.TagKey(n)
		if _, seen := spell[k]; seen {
			continue
		}
		spell[k] = n
		order = append(order, k)
		if _, ok := scope.Get(n); !ok {
			missing = append(missing, n)
		}
	}

	if len(missing) > 0 {
		found, err := lookup.FindTags(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("find tags: %w", err)
		}
		for _, t := range found {
			if _, ok := spell[domain.TagKey(t.Name)]; ok {
				scope.remember(t)
			}
		}
	}

	out := make([]domain.Tag, 0, len(order))
	for _, k := range order {
		t, ok := scope.Get(k)
		if !ok {
			t = domain.Tag{ID: r.NewID(), Name: spell[k]}
			scope.create(t)
		}
		out = append(out, t)
	}
	return out, nil
}
