package subscription

import (
	"slices"
	"strings"
	"sync"
)

// Registry stores subscriptions indexed by path and by ID.
type Registry struct {
	mu sync.RWMutex

	config Config

	// Subscriptions per path, in subscription order
	byPath map[string][]*Subscription

	byID map[uint32]*Subscription
}

// NewRegistry creates an empty registry with default configuration.
func NewRegistry() *Registry {
	return NewRegistryWithConfig(DefaultConfig())
}

// NewRegistryWithConfig creates an empty registry with custom configuration.
func NewRegistryWithConfig(config Config) *Registry {
	if config.MaxSubscriptions <= 0 {
		config.MaxSubscriptions = DefaultMaxSubscriptions
	}
	return &Registry{
		config: config,
		byPath: make(map[string][]*Subscription),
		byID:   make(map[uint32]*Subscription),
	}
}

// Subscribe records that sub is interested in path and everything below it.
// Subscribing the same pair twice returns the existing entry with
// created set to false.
func (r *Registry) Subscribe(path string, sub Subscriber) (s Subscription, created bool, err error) {
	if path == "" || strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") {
		return Subscription{}, false, ErrInvalidPath
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byPath[path] {
		if existing.Subscriber == sub {
			return *existing, false, nil
		}
	}
	if len(r.byID) >= r.config.MaxSubscriptions {
		return Subscription{}, false, ErrResourceExhausted
	}

	entry := &Subscription{ID: nextID(), Path: path, Subscriber: sub}
	r.byPath[path] = append(r.byPath[path], entry)
	r.byID[entry.ID] = entry
	return *entry, true, nil
}

// Unsubscribe removes the (path, sub) entry. It reports whether an entry
// was removed; removing an absent entry is not an error.
func (r *Registry) Unsubscribe(path string, sub Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byPath[path] {
		if existing.Subscriber == sub {
			r.remove(existing)
			return true
		}
	}
	return false
}

// Cancel removes a subscription by ID.
func (r *Registry) Cancel(id uint32) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byID[id]
	if !ok {
		return Subscription{}, ErrSubscriptionNotFound
	}
	r.remove(entry)
	return *entry, nil
}

// Get returns a subscription by ID.
func (r *Registry) Get(id uint32) (Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byID[id]
	if !ok {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return *entry, nil
}

// remove deletes entry from both indexes. Caller holds the write lock.
func (r *Registry) remove(entry *Subscription) {
	delete(r.byID, entry.ID)
	subs := r.byPath[entry.Path]
	for i, s := range subs {
		if s == entry {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(r.byPath, entry.Path)
	} else {
		r.byPath[entry.Path] = subs
	}
}

// Covering returns the subscriptions whose path is path itself or one of its
// ancestors. Ancestors are visited from the root down and each subscriber
// appears once, with the outermost subscription that covers the path.
func (r *Registry) Covering(path string) []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.byID) == 0 {
		return nil
	}

	var out []Subscription
	seen := make(map[Subscriber]struct{})
	visit := func(prefix string) {
		for _, s := range r.byPath[prefix] {
			if _, dup := seen[s.Subscriber]; dup {
				continue
			}
			seen[s.Subscriber] = struct{}{}
			out = append(out, *s)
		}
	}
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			visit(path[:i])
		}
	}
	visit(path)
	return out
}

// DropPeer removes every subscription held by a remote peer and returns how
// many were removed.
func (r *Registry) DropPeer(peer string) int {
	return r.removeWhere(func(s *Subscription) bool {
		return s.Subscriber.Peer == peer && peer != ""
	})
}

// Prune removes local subscriptions whose path no longer exists. Remote
// interests stay: they name paths of the peer's catalog and apply again once
// a reload brings the path back.
func (r *Registry) Prune(exists func(path string) bool) int {
	return r.removeWhere(func(s *Subscription) bool {
		return !s.Subscriber.IsRemote() && !exists(s.Path)
	})
}

func (r *Registry) removeWhere(match func(*Subscription) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var doomed []*Subscription
	for _, s := range r.byID {
		if match(s) {
			doomed = append(doomed, s)
		}
	}
	for _, s := range doomed {
		r.remove(s)
	}
	return len(doomed)
}

// Paths returns the paths sub is subscribed to, in subscription order.
func (r *Registry) Paths(sub Subscriber) []string {
	return r.paths(func(s Subscriber) bool { return s == sub })
}

// LocalPaths returns every path with at least one local subscriber, in
// subscription order. These are the interests announced to peers.
func (r *Registry) LocalPaths() []string {
	return r.paths(func(s Subscriber) bool { return !s.IsRemote() })
}

func (r *Registry) paths(match func(Subscriber) bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []uint32
	for id, s := range r.byID {
		if match(s.Subscriber) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	var out []string
	seen := make(map[string]struct{})
	for _, id := range ids {
		p := r.byID[id].Path
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ClearAll removes all subscriptions.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byPath = make(map[string][]*Subscription)
	r.byID = make(map[uint32]*Subscription)
}

// Count returns the number of subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// HasLocal reports whether any local subscriber holds path itself.
func (r *Registry) HasLocal(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.byPath[path] {
		if !s.Subscriber.IsRemote() {
			return true
		}
	}
	return false
}

// Counts returns the number of local and remote entries.
func (r *Registry) Counts() (local, remote int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.byID {
		if s.Subscriber.IsRemote() {
			remote++
		} else {
			local++
		}
	}
	return local, remote
}
