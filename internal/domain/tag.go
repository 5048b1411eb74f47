package domain

import "strings"

type Tag struct {
	ID   string
	Name string
}

// TagKey is the case-insensitive identity of a tag name.
func TagKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
