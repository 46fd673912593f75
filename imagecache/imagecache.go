// Copyright 2023 Fortio Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package imagecache manages segment/game icons behind an opaque ImageId
// handle
// haven't been "visited" (returned from Cache) recently enough, with a
// retention floor of 2*visited+5 so a GC never evicts everything that's
// currently on screen.
package imagecache // import "splitcore.dev/splitcore/imagecache"

import (
	"container/list"
	"crypto/sha256"
	"sync"

	"fortio.org/log"
)

// ImageId is a 32-byte strong hash identifying an image's content.
type ImageId [sha256.Size]byte

// HashBytes computes the ImageId for a raw image blob.
func HashBytes(b []byte) ImageId {
	return ImageId(sha256.Sum256(b))
}

// IsZero reports whether this is the absent/"no icon" id.
func (id ImageId) IsZero() bool {
	return id == ImageId{}
}

type entry struct {
	id ImageId
	data []byte
	visited bool
	listElem *list.Element
}

// Cache is an LRU-ish store keyed by ImageId. It is safe for concurrent use.
type Cache struct {
	mu sync.Mutex
	order *list.List // most recently inserted or hit at front
	entries map[ImageId]*entry
}

// New creates an empty image cache.
func New() *Cache {
	return &Cache{
		order: list.New(),
		entries: make(map[ImageId]*entry),
	}
}

// Cache returns the bytes for id, calling build to produce and store them if
// absent. Every call (hit or miss) marks the entry visited
func (c *Cache) Cache(id ImageId, build func() ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	if e, ok := c.entries[id]; ok {
		e.visited = true
		c.order.MoveToFront(e.listElem)
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	data, err := build()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		// Raced with another builder; keep the first result, just mark visited.
		e.visited = true
		c.order.MoveToFront(e.listElem)
		return e.data, nil
	}
	e := &entry{id: id, data: data, visited: true}
	e.listElem = c.order.PushFront(e)
	c.entries[id] = e
	return data, nil
}

// Len reports the current number of cached images.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GC sweeps the cache, keeping every visited image and discarding
// least-recently-visited unvisited ones down to a floor of 2*visited+5,
//
func (c *Cache) GC() (kept, evicted int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	visited := 0
	for _, e := range c.entries {
		if e.visited {
			visited++
		}
	}
	floor := 2*visited + 5

	// Walk from back (least recently touched) evicting unvisited entries
	// until we hit the retention floor.
	total := len(c.entries)
	for total > floor {
		back := c.order.Back()
		if back == nil {
			break
		}
		e := back.Value.(*entry)
		if e.visited {
			// Everything remaining toward the front is also visited or
			// more recent; nothing more to evict this sweep.
			break
		}
		c.order.Remove(back)
		delete(c.entries, e.id)
		total--
		evicted++
	}
	for _, e := range c.entries {
		e.visited = false
	}
	log.LogVf("imagecache: GC kept=%d evicted=%d floor=%d", len(c.entries), evicted, floor)
	return len(c.entries), evicted
}
