package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Latest is a bounded most-recent-wins cache keyed by patient id. Old
// patients fall out LRU-style so a long-lived process stays flat on
// memory.
type Latest[V any] struct {
	c *lru.Cache[string, V]
}

func NewLatest[V any](size int) *Latest[V] {
	if size <= 0 {
		size = 512
	}
	c, err := lru.New[string, V](size)
	if err != nil {
		panic(err)
	}
	return &Latest[V]{c: c}
}

// Put replaces the patient's cached value.
func (l *Latest[V]) Put(patientID string, v V) {
	l.c.Add(patientID, v)
}

// Get returns the patient's cached value if present.
func (l *Latest[V]) Get(patientID string) (V, bool) {
	return l.c.Get(patientID)
}
