package service

import (
	"github.com/starford/orrery/internal/scantree"
	"github.com/starford/orrery/internal/sse"
)

// Notifier adapts engine changes into SSE system updates.
func Notifier(b *sse.Broker) func(scantree.Change) {
	return func(c scantree.Change) {
		b.PublishSystemUpdate(sse.SystemUpdate{
			System:  c.System.Name,
			Address: c.System.Address,
			Event:   string(c.Kind),
			Created: c.Created,
		})
	}
}
