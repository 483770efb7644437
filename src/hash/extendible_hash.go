package hash

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// ExtendibleHash is a concurrent hash table using extendible hashing: a
// power-of-two directory over fixed-capacity buckets. A full bucket is split,
// doubling the directory when the bucket's local depth has caught up with the
// global depth. The directory never shrinks.
type ExtendibleHash[K comparable, V any] struct {
	bucketSize  int
	globalDepth int
	numBuckets  int
	numEntries  int
	directory   []*bucket[K, V]
	hash        func(K) uint64
	mu          sync.RWMutex
}

// bucket entries are guarded by mu; the directory latch alone is not enough
// because Find drops it before scanning.
type bucket[K comparable, V any] struct {
	keys       []K
	values     []V
	localDepth int
	mu         sync.RWMutex
}

func (b *bucket[K, V]) indexOf(key K) (int, bool) {
	for i := range b.keys {
		if b.keys[i] == key {
			return i, true
		}
	}
	return 0, false
}

func NewExtendibleHash[K comparable, V any](bucketSize int, hash func(K) uint64) *ExtendibleHash[K, V] {
	if bucketSize <= 0 {
		log.Fatalf("Bucket size must be positive, got %d.", bucketSize)
	}
	return &ExtendibleHash[K, V]{
		bucketSize: bucketSize,
		numBuckets: 1,
		directory:  []*bucket[K, V]{{}},
		hash:       hash,
	}
}

// bucketOf must be called with the directory latch held.
func (h *ExtendibleHash[K, V]) bucketOf(key K) *bucket[K, V] {
	mask := uint64(1)<<h.globalDepth - 1
	return h.directory[h.hash(key)&mask]
}

// Find returns the value stored under key. It holds the directory latch only
// long enough to locate the bucket, so concurrent finds never block each
// other and a find never blocks behind a long scan of an unrelated bucket.
func (h *ExtendibleHash[K, V]) Find(key K) (V, bool) {
	h.mu.RLock()
	b := h.bucketOf(key)
	b.mu.RLock()
	h.mu.RUnlock()
	defer b.mu.RUnlock()

	if i, ok := b.indexOf(key); ok {
		return b.values[i], true
	}
	var zero V
	return zero, false
}

// Remove deletes the entry for key, reporting whether one existed. Buckets
// are never merged and the directory keeps its size.
func (h *ExtendibleHash[K, V]) Remove(key K) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	b := h.bucketOf(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	i, ok := b.indexOf(key)
	if !ok {
		return false
	}
	last := len(b.keys) - 1
	b.keys[i] = b.keys[last]
	b.keys = b.keys[:last]
	b.values[i] = b.values[last]
	b.values = b.values[:last]
	h.numEntries--
	return true
}

// Insert stores value under key, overwriting any previous value. A full
// target bucket is split, repeatedly if the keys keep colliding on their low
// hash bits.
func (h *ExtendibleHash[K, V]) Insert(key K, value V) {
	h.mu.Lock()
	defer h.mu.Unlock()

	b := h.bucketOf(key)
	if i, ok := b.indexOf(key); ok {
		b.mu.Lock()
		b.values[i] = value
		b.mu.Unlock()
		return
	}

	for len(b.keys) == h.bucketSize {
		if h.unsplittable(b, key) {
			log.Fatalf("Extendible hash: more than %d keys share one hash value.", h.bucketSize)
		}
		h.splitBucket(b)
		b = h.bucketOf(key)
	}

	b.mu.Lock()
	b.keys = append(b.keys, key)
	b.values = append(b.values, value)
	b.mu.Unlock()
	h.numEntries++
}

// unsplittable reports the degenerate overflow: every key in the full bucket
// carries the same full hash as the incoming key, so no split can ever
// separate them.
func (h *ExtendibleHash[K, V]) unsplittable(b *bucket[K, V], key K) bool {
	target := h.hash(key)
	for i := range b.keys {
		if h.hash(b.keys[i]) != target {
			return false
		}
	}
	return true
}

// splitBucket raises b's local depth by one, doubling the directory first if
// b already uses every directory bit, and redistributes b's entries between b
// and a fresh sibling bucket. Must be called with the directory latch held
// exclusively.
func (h *ExtendibleHash[K, V]) splitBucket(b *bucket[K, V]) {
	if b.localDepth == h.globalDepth {
		// Mirror the directory: each old slot is duplicated at
		// slot | 1<<globalDepth, still pointing at the same bucket.
		h.directory = append(h.directory, h.directory...)
		h.globalDepth++
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.localDepth++
	sibling := &bucket[K, V]{localDepth: b.localDepth}
	h.numBuckets++

	// Slots previously pointing at b whose new distinguishing bit is set now
	// point at the sibling.
	highBit := uint64(1) << (b.localDepth - 1)
	for i := range h.directory {
		if h.directory[i] == b && uint64(i)&highBit != 0 {
			h.directory[i] = sibling
		}
	}

	keys, values := b.keys, b.values
	b.keys, b.values = nil, nil
	for i := range keys {
		if h.hash(keys[i])&highBit != 0 {
			sibling.keys = append(sibling.keys, keys[i])
			sibling.values = append(sibling.values, values[i])
		} else {
			b.keys = append(b.keys, keys[i])
			b.values = append(b.values, values[i])
		}
	}
}

func (h *ExtendibleHash[K, V]) GetGlobalDepth() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.globalDepth
}

// GetLocalDepth returns the local depth of the bucket referenced by the given
// directory slot.
func (h *ExtendibleHash[K, V]) GetLocalDepth(slot int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.directory[slot].localDepth
}

func (h *ExtendibleHash[K, V]) GetNumBuckets() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.numBuckets
}

func (h *ExtendibleHash[K, V]) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.numEntries
}
