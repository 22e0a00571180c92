package containers

import (
	"fmt"
	"hash/maphash"
	"iter"

	"github.com/cespare/xxhash/v2"

	"github.com/quickwritereader/attrscope/types"
)

// DefaultBucketCount is small and prime to spread short key sets.
const DefaultBucketCount = 11

// HashFunc hashes a key.
type HashFunc[K comparable] func(key K) uint64

// KeyEqualFunc compares two keys.
type KeyEqualFunc[K comparable] func(a, b K) bool

var hashSeed = maphash.MakeSeed()

// DefaultHash uses xxhash for strings and maphash for any other comparable key.
func DefaultHash[K comparable](key K) uint64 {
	if s, ok := any(key).(string); ok {
		return xxhash.Sum64String(s)
	}
	return maphash.Comparable(hashSeed, key)
}

func defaultKeyEqual[K comparable](a, b K) bool { return a == b }

// Pair is one key/value entry. Its address is stable for the life of the entry.
type Pair[K comparable, V any] struct {
	Key   K
	Value V
}

type chainNode[K comparable, V any] struct {
	pair Pair[K, V]
	next *chainNode[K, V]
}

// chain is a singly linked bucket.
type chain[K comparable, V any] struct {
	head *chainNode[K, V]
}

// HashMap is a separate-chaining hash table.
type HashMap[K comparable, V any] struct {
	buckets *Vector[chain[K, V]]
	size    int
	hash    HashFunc[K]
	equal   KeyEqualFunc[K]
}

// MapOption customizes a HashMap at construction.
type MapOption[K comparable, V any] func(*HashMap[K, V])

// WithHash sets the hash functor.
func WithHash[K comparable, V any](h HashFunc[K]) MapOption[K, V] {
	return func(m *HashMap[K, V]) { m.hash = h }
}

// WithKeyEqual sets the key equality functor.
func WithKeyEqual[K comparable, V any](eq KeyEqualFunc[K]) MapOption[K, V] {
	return func(m *HashMap[K, V]) { m.equal = eq }
}

// NewHashMap creates a map with bucketCount buckets (DefaultBucketCount if < 1).
func NewHashMap[K comparable, V any](bucketCount int, opts ...MapOption[K, V]) *HashMap[K, V] {
	if bucketCount < 1 {
		bucketCount = DefaultBucketCount
	}
	m := &HashMap[K, V]{
		hash:  DefaultHash[K],
		equal: defaultKeyEqual[K],
	}
	for _, o := range opts {
		o(m)
	}
	m.buckets = NewVector[chain[K, V]](bucketCount)
	m.buckets.Resize(bucketCount)
	return m
}

func (m *HashMap[K, V]) Size() int        { return m.size }
func (m *HashMap[K, V]) IsEmpty() bool    { return m.size == 0 }
func (m *HashMap[K, V]) BucketCount() int { return m.buckets.Size() }

// LoadFactor is entries per bucket.
func (m *HashMap[K, V]) LoadFactor() float64 {
	return float64(m.size) / float64(m.buckets.Size())
}

func (m *HashMap[K, V]) bucketIndex(key K) int {
	return int(m.hash(key) % uint64(m.buckets.Size()))
}

func (m *HashMap[K, V]) bucket(i int) *chain[K, V] {
	return &m.buckets.data[i]
}

func (m *HashMap[K, V]) lookup(key K) (int, *chainNode[K, V]) {
	bi := m.bucketIndex(key)
	for n := m.bucket(bi).head; n != nil; n = n.next {
		if m.equal(n.pair.Key, key) {
			return bi, n
		}
	}
	return bi, nil
}

// Insert adds key/value unless key is present. On a hit the stored value is
// left untouched and inserted is false.
func (m *HashMap[K, V]) Insert(key K, value V) (it MapIterator[K, V], inserted bool) {
	bi, n := m.lookup(key)
	if n != nil {
		return MapIterator[K, V]{owner: m, bucket: bi, node: n}, false
	}
	n = &chainNode[K, V]{pair: Pair[K, V]{Key: key, Value: value}}
	b := m.bucket(bi)
	if b.head == nil {
		b.head = n
	} else {
		tail := b.head
		for tail.next != nil {
			tail = tail.next
		}
		tail.next = n
	}
	m.size++
	return MapIterator[K, V]{owner: m, bucket: bi, node: n}, true
}

// Index returns the value slot for key, inserting a zero value when absent.
func (m *HashMap[K, V]) Index(key K) *V {
	var zero V
	it, _ := m.Insert(key, zero)
	return &it.node.pair.Value
}

// Find returns an iterator to key, or End().
func (m *HashMap[K, V]) Find(key K) MapIterator[K, V] {
	bi, n := m.lookup(key)
	if n == nil {
		return m.End()
	}
	return MapIterator[K, V]{owner: m, bucket: bi, node: n}
}

// FindPair returns the stored entry for key, or nil.
func (m *HashMap[K, V]) FindPair(key K) *Pair[K, V] {
	_, n := m.lookup(key)
	if n == nil {
		return nil
	}
	return &n.pair
}

// At returns the value slot for key.
func (m *HashMap[K, V]) At(key K) (*V, error) {
	p := m.FindPair(key)
	if p == nil {
		return nil, fmt.Errorf("HashMap.At: key %v: %w", key, types.ErrNotFound)
	}
	return &p.Value, nil
}

func (m *HashMap[K, V]) ContainsKey(key K) bool {
	return m.FindPair(key) != nil
}

// Remove unlinks key from its chain.
func (m *HashMap[K, V]) Remove(key K) bool {
	b := m.bucket(m.bucketIndex(key))
	var prev *chainNode[K, V]
	for n := b.head; n != nil; prev, n = n, n.next {
		if !m.equal(n.pair.Key, key) {
			continue
		}
		if prev == nil {
			b.head = n.next
		} else {
			prev.next = n.next
		}
		n.next = nil
		m.size--
		return true
	}
	return false
}

// Clear drops every entry and keeps the bucket count.
func (m *HashMap[K, V]) Clear() {
	for i := range m.buckets.data {
		m.buckets.data[i].head = nil
	}
	m.size = 0
}

// Resize rehashes every entry into bucketCount buckets. Entry addresses
// survive the rehash.
func (m *HashMap[K, V]) Resize(bucketCount int) {
	if bucketCount < 1 {
		bucketCount = 1
	}
	old := m.buckets
	m.buckets = NewVector[chain[K, V]](bucketCount)
	m.buckets.Resize(bucketCount)
	for i := range old.data {
		n := old.data[i].head
		for n != nil {
			next := n.next
			n.next = nil
			b := m.bucket(m.bucketIndex(n.pair.Key))
			if b.head == nil {
				b.head = n
			} else {
				tail := b.head
				for tail.next != nil {
					tail = tail.next
				}
				tail.next = n
			}
			n = next
		}
	}
}

// Keys returns keys in bucket order.
func (m *HashMap[K, V]) Keys() []K {
	out := make([]K, 0, m.size)
	for k := range m.All() {
		out = append(out, k)
	}
	return out
}

// All iterates entries in bucket order.
func (m *HashMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for i := range m.buckets.data {
			for n := m.buckets.data[i].head; n != nil; n = n.next {
				if !yield(n.pair.Key, n.pair.Value) {
					return
				}
			}
		}
	}
}

func (m *HashMap[K, V]) Begin() MapIterator[K, V] {
	for i := range m.buckets.data {
		if h := m.buckets.data[i].head; h != nil {
			return MapIterator[K, V]{owner: m, bucket: i, node: h}
		}
	}
	return m.End()
}

func (m *HashMap[K, V]) End() MapIterator[K, V] {
	return MapIterator[K, V]{owner: m, bucket: m.buckets.Size()}
}

// MapIterator walks buckets then chains. The zero value is unbound.
type MapIterator[K comparable, V any] struct {
	owner  *HashMap[K, V]
	bucket int
	node   *chainNode[K, V]
}

func (it MapIterator[K, V]) Bound() bool { return it.owner != nil }

// Pair dereferences the iterator.
func (it MapIterator[K, V]) Pair() (*Pair[K, V], error) {
	if it.owner == nil {
		return nil, fmt.Errorf("MapIterator.Pair: %w", types.ErrUnboundIterator)
	}
	if it.node == nil {
		return nil, fmt.Errorf("MapIterator.Pair: end of map: %w", types.ErrOutOfRange)
	}
	return &it.node.pair, nil
}

// Next advances to the following entry or End().
func (it *MapIterator[K, V]) Next() error {
	if it.owner == nil {
		return fmt.Errorf("MapIterator.Next: %w", types.ErrUnboundIterator)
	}
	if it.node == nil {
		return nil
	}
	if it.node.next != nil {
		it.node = it.node.next
		return nil
	}
	it.node = nil
	for it.bucket++; it.bucket < it.owner.buckets.Size(); it.bucket++ {
		if h := it.owner.buckets.data[it.bucket].head; h != nil {
			it.node = h
			return nil
		}
	}
	return nil
}

// Equal compares positions within the same map.
func (it MapIterator[K, V]) Equal(other MapIterator[K, V]) (bool, error) {
	if it.owner == nil || other.owner == nil || it.owner != other.owner {
		return false, fmt.Errorf("MapIterator.Equal: %w", types.ErrUnboundIterator)
	}
	return it.node == other.node, nil
}
