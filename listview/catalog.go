// ABOUTME: Session-local catalog of known status labels
// ABOUTME: Seeded with the default pipeline stages and extendable at runtime, never persisted
package listview

import (
	"slices"
	"strings"
	"sync"
)

// DefaultStatuses seeds every new Catalog.
var DefaultStatuses = []string{
	"Lead",
	"Proposal/Tender",
	"Won Contracts",
	"Negotiation",
	"Contact Made",
	"Meeting/Presentation",
	"Lost Contracts",
}

// Catalog is an ordered set of status labels owned by one session.
type Catalog struct {
	mu     sync.RWMutex
	labels []string
}

// NewCatalog returns a catalog holding DefaultStatuses followed by extra.
func NewCatalog(extra ...string) *Catalog {
	c := &Catalog{labels: slices.Clone(DefaultStatuses)}
	for _, label := range extra {
		c.Add(label)
	}
	return c
}

// Labels returns a copy of the labels in insertion order.
func (c *Catalog) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.labels)
}

// Contains reports whether label is already known.
func (c *Catalog) Contains(label string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Contains(c.labels, label)
}

// Add appends label unless it is blank or already present.
func (c *Catalog) Add(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if slices.Contains(c.labels, label) {
		return false
	}
	c.labels = append(c.labels, label)
	return true
}

// Len returns the number of labels.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.labels)
}
