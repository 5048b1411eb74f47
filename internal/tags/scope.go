package tags

import "tender-writer/internal/domain"

// Scope maps tag names to tags for one unit of work. It is not safe for
// concurrent use and must not outlive its unit.
type Scope struct {
	byKey   map[string]domain.Tag
	created []domain.Tag
}

func NewScope() *Scope {
	return &Scope{byKey: make(map[string]domain.Tag)}
}

func (s *Scope) Get(name string) (domain.Tag, bool) {
	t, ok := s.byKey[domain.TagKey(name)]
	return t, ok
}

func (s *Scope) remember(t domain.Tag) {
	s.byKey[domain.TagKey(t.Name)] = t
}

func (s *Scope) create(t domain.Tag) {
	s.remember(t)
	s.created = append(s.created, t)
}

// Created lists tags minted in this scope that still need inserting.
func (s *Scope) Created() []domain.Tag {
	return s.created
}
