// File: internal/session/store.go
// Package session
// Author: momentics <momentics@gmail.com>
//
// Sharded registry of live connections keyed by connection identity.

package session

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-arena/api"
	"github.com/momentics/hioload-arena/internal/transport"
)

// DefaultShards is used when NewRegistry is given a non-positive count.
const DefaultShards = 16

// Registry maps connection identities to their transport handles.
type Registry struct {
	shards []*registryShard
	mask   uint32
	size   int64
}

type registryShard struct {
	mu    sync.RWMutex
	conns map[api.ConnID]*transport.Socket
}

// NewRegistry constructs a registry with shardCount shards, rounded up to a
// power of two.
func NewRegistry(shardCount int) *Registry {
	if shardCount <= 0 {
		shardCount = DefaultShards
	}
	m := nextPowerOfTwo(uint32(shardCount))
	shards := make([]*registryShard, m)
	for i := range shards {
		shards[i] = &registryShard{conns: make(map[api.ConnID]*transport.Socket)}
	}
	return &Registry{shards: shards, mask: m - 1}
}

// shard picks the shard for id. Identities are sequential, so the low bits
// already spread evenly.
func (r *Registry) shard(id api.ConnID) *registryShard {
	return r.shards[uint32(id)&r.mask]
}

// Set stores sock under id. An existing entry is replaced silently; the
// caller must have closed the previous handle.
func (r *Registry) Set(id api.ConnID, sock *transport.Socket) {
	sh := r.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.conns[id]; !ok {
		atomic.AddInt64(&r.size, 1)
	}
	sh.conns[id] = sock
}

// Get returns the handle for id, or false if id is not registered.
func (r *Registry) Get(id api.ConnID) (*transport.Socket, bool) {
	sh := r.shard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.conns[id]
	return s, ok
}

// Delete removes id if present. It does not close the handle.
func (r *Registry) Delete(id api.ConnID) {
	sh := r.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.conns[id]; ok {
		delete(sh.conns, id)
		atomic.AddInt64(&r.size, -1)
	}
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	return int(atomic.LoadInt64(&r.size))
}

// Range calls fn for every entry until fn returns false. The set of entries
// is snapshotted first, so fn may modify the registry or suspend.
func (r *Registry) Range(fn func(api.ConnID, *transport.Socket) bool) {
	type pair struct {
		id   api.ConnID
		sock *transport.Socket
	}
	snapshot := make([]pair, 0, r.Len())
	for _, sh := range r.shards {
		sh.mu.RLock()
		for id, s := range sh.conns {
			snapshot = append(snapshot, pair{id, s})
		}
		sh.mu.RUnlock()
	}
	for _, p := range snapshot {
		if !fn(p.id, p.sock) {
			return
		}
	}
}

// IDAllocator hands out connection identities in increasing order.
type IDAllocator struct {
	next uint32
}

// Next returns a fresh identity.
func (a *IDAllocator) Next() api.ConnID {
	return api.ConnID(atomic.AddUint32(&a.next, 1) - 1)
}

// nextPowerOfTwo returns the next power-of-two >= v.
func nextPowerOfTwo(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}
