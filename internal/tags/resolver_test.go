package tags

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender-writer/internal/domain"
)

type fakeLookup struct {
	tags  []domain.Tag
	calls int
	asked [][]string
	err   error
}

func (f *fakeLookup) FindTags(_ context.Context, names []string) ([]domain.Tag, error) {
	f.calls++
	f.asked = append(f.asked, names)
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Tag
	for _, t := range f.tags {
		for _, n := range names {
			if strings.EqualFold(t.Name, n) {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("new-%d", n)
	}
}

func TestResolveCollapsesCaseVariants(t *testing.T) {
	r := &Resolver{NewID: seqIDs()}
	lookup := &fakeLookup{}
	scope := NewScope()

	got, err := r.Resolve(context.Background(), lookup, []string{"Roads", "roads", "Bridges", "ROADS"}, scope)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, domain.Tag{ID: "new-1", Name: "Roads"}, got[0])
	assert.Equal(t, domain.Tag{ID: "new-2", Name: "Bridges"}, got[1])
	assert.Equal(t, got, scope.Created())
	assert.Equal(t, 1, lookup.calls)
}

func TestResolveReusesStoredTags(t *testing.T) {
	r := &Resolver{NewID: seqIDs()}
	lookup := &fakeLookup{tags: []domain.Tag{{ID: "t-1", Name: "roads"}}}
	scope := NewScope()

	got, err := r.Resolve(context.Background(), lookup, []string{"Construction", "ROADS"}, scope)
	require.NoError(t, err)

	assert.Equal(t, []domain.Tag{{ID: "new-1", Name: "Construction"}, {ID: "t-1", Name: "roads"}}, got)
	assert.Equal(t, []domain.Tag{{ID: "new-1", Name: "Construction"}}, scope.Created())
}

func TestResolveScopeAvoidsSecondCreate(t *testing.T) {
	r := &Resolver{NewID: seqIDs()}
	lookup := &fakeLookup{}
	scope := NewScope()

	first, err := r.Resolve(context.Background(), lookup, []string{"Water"}, scope)
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), lookup, []string{"water", "Power"}, scope)
	require.NoError(t, err)

	assert.Equal(t, first[0], second[0])
	assert.Len(t, scope.Created(), 2)
	// only the unseen name goes to the store
	assert.Equal(t, []string{"Power"}, lookup.asked[1])
}

func TestResolveSkipsStoreWhenNothingMissing(t *testing.T) {
	r := NewResolver()
	lookup := &fakeLookup{}

	got, err := r.Resolve(context.Background(), lookup, []string{" ", ""}, NewScope())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, lookup.calls)
}

func TestResolvePropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	_, err := NewResolver().Resolve(context.Background(), &fakeLookup{err: boom}, []string{"x"}, NewScope())
	assert.ErrorIs(t, err, boom)
}
