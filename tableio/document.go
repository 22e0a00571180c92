// Package tableio reads and writes table documents: JSON or msgpack
// objects that describe the attributes of a scope tree.
//
// A document maps attribute names to descriptors:
//
//	{
//	  "Health":   {"type": "integer", "value": 100},
//	  "Path":     {"type": "vector", "value": ["vec4(0, 0, 0, 1)", "vec4(1, 0, 0, 1)"]},
//	  "Monsters": {"type": "table", "class": "Monster", "value": [{...}, {...}]}
//	}
//
// Objects keep their key order, so attributes are appended in document
// order.
package tableio

import (
	"bytes"
	"fmt"
	"iter"
	"reflect"

	json "github.com/goccy/go-json"

	"github.com/quickwritereader/attrscope/containers"
	"github.com/quickwritereader/attrscope/types"
)

type node struct {
	key   string
	value any
	prev  *node
	next  *node
}

// Document is an insertion-ordered object. Values are nil, bool, string,
// numbers, []any or *Document.
type Document struct {
	index *containers.HashMap[string, *node]
	head  *node
	tail  *node
}

// Field is a key/value pair for NewDocument.
type Field struct {
	Key   string
	Value any
}

// F builds a Field inline.
func F(k string, v any) Field {
	return Field{Key: k, Value: v}
}

func NewDocument(fields ...Field) *Document {
	d := &Document{index: containers.NewHashMap[string, *node](containers.DefaultBucketCount)}
	for _, f := range fields {
		d.Set(f.Key, f.Value)
	}
	return d
}

func (d *Document) Len() int {
	if d.index == nil {
		return 0
	}
	return d.index.Size()
}

// Set inserts key at the end or updates it in place.
func (d *Document) Set(key string, value any) {
	if d.index == nil {
		*d = *NewDocument()
	}
	if n, ok := d.lookup(key); ok {
		n.value = value
		return
	}
	n := &node{key: key, value: value}
	d.index.Insert(key, n)
	if d.tail == nil {
		d.head, d.tail = n, n
	} else {
		n.prev = d.tail
		d.tail.next = n
		d.tail = n
	}
}

func (d *Document) lookup(key string) (*node, bool) {
	if d.index == nil {
		return nil, false
	}
	n, err := d.index.At(key)
	if err != nil {
		return nil, false
	}
	return *n, true
}

func (d *Document) Get(key string) (any, bool) {
	n, ok := d.lookup(key)
	if !ok {
		return nil, false
	}
	return n.value, true
}

// GetAs returns key's value when it holds a U.
func GetAs[U any](d *Document, key string) (U, bool) {
	v, ok := d.Get(key)
	if !ok {
		var zero U
		return zero, false
	}
	u, ok := v.(U)
	return u, ok
}

func (d *Document) Delete(key string) {
	n, ok := d.lookup(key)
	if !ok {
		return
	}
	d.index.Remove(key)
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
}

// Keys returns keys in insertion order
func (d *Document) Keys() []string {
	keys := make([]string, 0, d.Len())
	for n := d.head; n != nil; n = n.next {
		keys = append(keys, n.key)
	}
	return keys
}

// All iterates key/value pairs in insertion order.
func (d *Document) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for n := d.head; n != nil; n = n.next {
			if !yield(n.key, n.value) {
				return
			}
		}
	}
}

// Equal compares keys in order and values deeply. Numbers must have the
// same Go type.
func (d *Document) Equal(other *Document) bool {
	if d.Len() != other.Len() {
		return false
	}
	n1, n2 := d.head, other.head
	for n1 != nil && n2 != nil {
		if n1.key != n2.key || !valuesEqual(n1.value, n2.value) {
			return false
		}
		n1, n2 = n1.next, n2.next
	}
	return true
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case *Document:
		bv, ok := b.(*Document)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valuesEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// MarshalJSON encodes the document as a JSON object in insertion order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, d, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving the order of every nested
// object.
func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	doc, err := decodeJSONObject(dec)
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

func decodeJSONObject(dec *json.Decoder) (*Document, error) {
	t, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("tableio: expected object, got %v: %w", t, types.ErrTypeMismatch)
	}
	return decodeJSONMembers(dec)
}

// decodeJSONMembers reads members up to and including the closing brace.
func decodeJSONMembers(dec *json.Decoder) (*Document, error) {
	doc := NewDocument()
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := t.(string)
		if !ok {
			return nil, fmt.Errorf("tableio: expected string key, got %v: %w", t, types.ErrTypeMismatch)
		}
		val, err := decodeJSONValue(dec)
		if err != nil {
			return nil, fmt.Errorf("tableio: %q: %w", key, err)
		}
		doc.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	t, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := t.(json.Delim)
	if !ok {
		return t, nil
	}
	switch delim {
	case '{':
		return decodeJSONMembers(dec)
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("tableio: unexpected %v: %w", delim, types.ErrTypeMismatch)
}
