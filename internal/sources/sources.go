// Package sources assembles the registry of every supported portal.
package sources

import (
	"tender-writer/internal/source"
	"tender-writer/internal/source/eskom"
	"tender-writer/internal/source/etender"
	"tender-writer/internal/source/sanral"
	"tender-writer/internal/source/sars"
	"tender-writer/internal/source/transnet"
)

// Registry returns a registry with all portals wired in. Adding a portal
// means adding its handler here.
func Registry() *source.Registry {
	return source.NewRegistry(
		etender.Handler(),
		eskom.Handler(),
		transnet.Handler(),
		sars.Handler(),
		sanral.Handler(),
	)
}
