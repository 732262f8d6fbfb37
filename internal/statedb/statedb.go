// Package statedb holds the active IPFIX template set published by the
// external state database, and the watcher contract the decoder actor
// consumes it through.
package statedb

import (
	"sync"

	"github.com/sonic-net/countersyncd/internal/ipfix"
)

// TemplateKey is the composite key a template is addressed by: the spec
// treats (publisher_key, template_id) as a composite key (see SPEC_FULL.md
// §B.1), which maps directly onto a comparable Go struct usable as a map key.
type TemplateKey struct {
	PublisherKey string
	TemplateID   uint16
}

// Entry is the active template plus its accompanying object-name table.
type Entry struct {
	Template    ipfix.Template
	ObjectNames []string
}

// Update is one change to the template Store: Store.Apply creates or
// replaces the entry for Key, or removes it when Withdrawn is set. The
// State-DB Watcher (S) publishes creations and replacements only; it never
// sets Withdrawn.
type Update struct {
	Key      TemplateKey
	Entry    Entry // zero value with Withdrawn=true on removal
	Withdrawn bool
}

// Raw is the tuple the external state-database subscription delivers (spec
// §6): an opaque publisher key, the raw IPFIX Template Set blob, and the
// accompanying object-name table. S decodes Blob into an Entry before
// publishing an Update to I.
type Raw struct {
	PublisherKey string
	TemplateBlob []byte
	ObjectNames  []string
}

// Watcher is the external collaborator contract for the state database
// (spec §1, §6): "a subscription channel delivering tuples". Concrete
// implementations (a real swss/redis state-db client, or a test fixture)
// satisfy this by pushing Raw values as they arrive; S reads from Updates()
// and turns each Raw into a decoded Update.
type Watcher interface {
	// Updates returns the channel of raw template publications. The channel
	// is closed when the subscription ends (clean shutdown signal, spec §7).
	Updates() <-chan Raw
	// Close releases the underlying subscription.
	Close() error
}

// Store is the active template map owned by the IPFIX Decoder actor (I).
// Replacement is atomic per key and never blocks lookups of other keys,
// mirroring the teacher's sharded-map idiom
// (engine/internal/ratelimit/limiter.go's domainShard) collapsed to a single
// shard since the whole map is updated at template-ingest rates (rare)
// rather than per-packet rates (frequent) — a single RWMutex is the right
// granularity here, not 16 shards sized for per-request contention.
type Store struct {
	mu      sync.RWMutex
	entries map[TemplateKey]Entry
	// byTemplateID indexes entries by template_id alone, since Data Set
	// lookup (spec §4.4 step 2) matches Set ID against template_id across
	// any publisher key.
	byTemplateID map[uint16][]TemplateKey
}

// NewStore returns an empty template store.
func NewStore() *Store {
	return &Store{
		entries:      make(map[TemplateKey]Entry),
		byTemplateID: make(map[uint16][]TemplateKey),
	}
}

// Apply applies a template update: replaces (or inserts) the entry for
// update.Key, or removes it if update.Withdrawn. Replacement of one key never
// blocks or invalidates lookups for any other key (spec §4.4 "Template
// ingest").
func (s *Store) Apply(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.Withdrawn {
		s.removeLocked(u.Key)
		return
	}
	if _, existed := s.entries[u.Key]; !existed {
		s.byTemplateID[u.Key.TemplateID] = appendUnique(s.byTemplateID[u.Key.TemplateID], u.Key)
	}
	s.entries[u.Key] = u.Entry
}

func (s *Store) removeLocked(key TemplateKey) {
	if _, ok := s.entries[key]; !ok {
		return
	}
	delete(s.entries, key)
	keys := s.byTemplateID[key.TemplateID]
	for i, k := range keys {
		if k == key {
			s.byTemplateID[key.TemplateID] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
}

func appendUnique(keys []TemplateKey, key TemplateKey) []TemplateKey {
	for _, k := range keys {
		if k == key {
			return keys
		}
	}
	return append(keys, key)
}

// Lookup finds any active entry whose template_id matches setID, regardless
// of publisher key (spec §4.4 step 2: "Locate a template whose template_id
// == Set ID. If none exists across any publisher key..."). When more than
// one publisher registered the same template_id, the most recently applied
// one for the first matching key is returned — the spec leaves
// publisher_key/template_id uniqueness unenforced (§9 Open Questions) and
// the pipeline has no ordering signal to prefer one over another.
func (s *Store) Lookup(setID uint16) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.byTemplateID[setID]
	if len(keys) == 0 {
		return Entry{}, false
	}
	return s.entries[keys[0]], true
}

// Snapshot returns the number of active template entries, for diagnostics.
func (s *Store) Snapshot() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
