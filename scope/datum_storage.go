package scope

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/quickwritereader/attrscope/rtti"
	"github.com/quickwritereader/attrscope/types"
)

// elemOps is the per-type behaviour of one datum element type.
type elemOps[T any] struct {
	typ    types.DatumType
	equal  func(a, b T) bool
	format func(v T) string
	parse  func(s string) (T, error) // nil: no textual form
}

var (
	integerOps = &elemOps[int32]{
		typ:    types.TypeInteger,
		equal:  func(a, b int32) bool { return a == b },
		format: func(v int32) string { return strconv.FormatInt(int64(v), 10) },
		parse:  parseInteger,
	}
	floatOps = &elemOps[float32]{
		typ:    types.TypeFloat,
		equal:  func(a, b float32) bool { return a == b },
		format: formatFloat,
		parse:  parseFloat,
	}
	stringOps = &elemOps[string]{
		typ:    types.TypeString,
		equal:  func(a, b string) bool { return a == b },
		format: func(v string) string { return v },
		parse:  func(s string) (string, error) { return s, nil },
	}
	vectorOps = &elemOps[mgl32.Vec4]{
		typ:    types.TypeVector,
		equal:  func(a, b mgl32.Vec4) bool { return a == b },
		format: FormatVector,
		parse:  ParseVector,
	}
	matrixOps = &elemOps[mgl32.Mat4]{
		typ:    types.TypeMatrix,
		equal:  func(a, b mgl32.Mat4) bool { return a == b },
		format: FormatMatrix,
		parse:  ParseMatrix,
	}
	tableOps = &elemOps[*Scope]{typ: types.TypeTable}
	pointerOps = &elemOps[rtti.RTTI]{
		typ: types.TypePointer,
		equal: func(a, b rtti.RTTI) bool {
			if a == nil || b == nil {
				return a == nil && b == nil
			}
			return a.Equals(b)
		},
		format: func(v rtti.RTTI) string {
			if v == nil {
				return "nullptr"
			}
			return v.String()
		},
	}
)

// Table behaviour recurses into Scope, so it is wired after package
// variable initialization.
func init() {
	tableOps.equal = func(a, b *Scope) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a == b || a.Equal(b)
	}
	tableOps.format = func(v *Scope) string {
		if v == nil {
			return "null"
		}
		return v.String()
	}
}

// storage is the type-erased element array behind a Datum.
type storage interface {
	kind() types.DatumType
	size() int
	capacity() int
	reserve(n int)
	shrink()
	resize(n int)
	removeAt(i int)
	clone() storage
	equalTo(o storage) bool
	format(i int) string
	parseAt(s string, i int) error
}

type column[T any] struct {
	s   []T
	ops *elemOps[T]
}

func newColumn[T any](ops *elemOps[T], capacity int) storage {
	return &column[T]{s: make([]T, 0, capacity), ops: ops}
}

// aliasColumn wraps memory owned by someone else. len == cap == n.
func aliasColumn[T any](ops *elemOps[T], s []T) storage {
	return &column[T]{s: s[:len(s):len(s)], ops: ops}
}

func aliasRaw[T any](ops *elemOps[T], p unsafe.Pointer, n int) storage {
	return aliasColumn(ops, unsafe.Slice((*T)(p), n))
}

func (c *column[T]) kind() types.DatumType { return c.ops.typ }
func (c *column[T]) size() int             { return len(c.s) }
func (c *column[T]) capacity() int         { return cap(c.s) }

func (c *column[T]) reserve(n int) {
	if n <= cap(c.s) {
		return
	}
	grown := make([]T, len(c.s), n)
	copy(grown, c.s)
	c.s = grown
}

func (c *column[T]) shrink() {
	if cap(c.s) == len(c.s) {
		return
	}
	s := make([]T, len(c.s))
	copy(s, c.s)
	c.s = s
}

func (c *column[T]) resize(n int) {
	if n <= len(c.s) {
		clear(c.s[n:])
		c.s = c.s[:n]
		return
	}
	c.reserve(n)
	old := len(c.s)
	c.s = c.s[:n]
	clear(c.s[old:])
}

func (c *column[T]) removeAt(i int) {
	copy(c.s[i:], c.s[i+1:])
	var zero T
	c.s[len(c.s)-1] = zero
	c.s = c.s[:len(c.s)-1]
}

func (c *column[T]) clone() storage {
	s := make([]T, len(c.s), cap(c.s))
	copy(s, c.s)
	return &column[T]{s: s, ops: c.ops}
}

func (c *column[T]) equalTo(o storage) bool {
	oc, ok := o.(*column[T])
	if !ok || len(oc.s) != len(c.s) {
		return false
	}
	for i := range c.s {
		if !c.ops.equal(c.s[i], oc.s[i]) {
			return false
		}
	}
	return true
}

func (c *column[T]) format(i int) string {
	return c.ops.format(c.s[i])
}

func (c *column[T]) parseAt(s string, i int) error {
	if c.ops.parse == nil {
		return fmt.Errorf("parse %s from string: %w", c.ops.typ, types.ErrTypeMismatch)
	}
	v, err := c.ops.parse(s)
	if err != nil {
		return err
	}
	c.s[i] = v
	return nil
}

// Dispatch tables indexed by DatumType.
var makeStorage = [...]func(capacity int) storage{
	types.TypeInteger: func(n int) storage { return newColumn(integerOps, n) },
	types.TypeFloat:   func(n int) storage { return newColumn(floatOps, n) },
	types.TypeString:  func(n int) storage { return newColumn(stringOps, n) },
	types.TypeVector:  func(n int) storage { return newColumn(vectorOps, n) },
	types.TypeMatrix:  func(n int) storage { return newColumn(matrixOps, n) },
	types.TypeTable:   func(n int) storage { return newColumn(tableOps, n) },
	types.TypePointer: func(n int) storage { return newColumn(pointerOps, n) },
}

var aliasStorage = [...]func(p unsafe.Pointer, n int) storage{
	types.TypeInteger: func(p unsafe.Pointer, n int) storage { return aliasRaw(integerOps, p, n) },
	types.TypeFloat:   func(p unsafe.Pointer, n int) storage { return aliasRaw(floatOps, p, n) },
	types.TypeString:  func(p unsafe.Pointer, n int) storage { return aliasRaw(stringOps, p, n) },
	types.TypeVector:  func(p unsafe.Pointer, n int) storage { return aliasRaw(vectorOps, p, n) },
	types.TypeMatrix:  func(p unsafe.Pointer, n int) storage { return aliasRaw(matrixOps, p, n) },
	types.TypeTable:   func(p unsafe.Pointer, n int) storage { return aliasRaw(tableOps, p, n) },
	types.TypePointer: func(p unsafe.Pointer, n int) storage { return aliasRaw(pointerOps, p, n) },
}

func parseInteger(s string) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse integer %q: %v: %w", s, err, types.ErrTypeMismatch)
	}
	return int32(v), nil
}

func parseFloat(s string) (float32, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return 0, fmt.Errorf("parse float %q: %v: %w", s, err, types.ErrTypeMismatch)
	}
	return float32(v), nil
}

func formatFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

// FormatVector renders v as vec4(x, y, z, w).
func FormatVector(v mgl32.Vec4) string {
	return "vec4(" + joinFloats(v[:]) + ")"
}

// FormatMatrix renders m column by column as mat4x4((c0), (c1), (c2), (c3)).
func FormatMatrix(m mgl32.Mat4) string {
	var b strings.Builder
	b.WriteString("mat4x4(")
	for c := 0; c < 4; c++ {
		if c > 0 {
			b.WriteString(", ")
		}
		col := m.Col(c)
		b.WriteString("(")
		b.WriteString(joinFloats(col[:]))
		b.WriteString(")")
	}
	b.WriteString(")")
	return b.String()
}

func joinFloats(fs []float32) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = formatFloat(f)
	}
	return strings.Join(parts, ", ")
}

// ParseVector accepts the FormatVector form or four bare numbers.
func ParseVector(s string) (mgl32.Vec4, error) {
	var v mgl32.Vec4
	vals, err := parseFloats(s, "vec4", len(v))
	if err != nil {
		return v, err
	}
	copy(v[:], vals)
	return v, nil
}

// ParseMatrix accepts the FormatMatrix form or sixteen bare numbers, column-major.
func ParseMatrix(s string) (mgl32.Mat4, error) {
	var m mgl32.Mat4
	vals, err := parseFloats(s, "mat4x4", len(m))
	if err != nil {
		return m, err
	}
	copy(m[:], vals)
	return m, nil
}

func parseFloats(s, prefix string, want int) ([]float32, error) {
	body := strings.TrimSpace(s)
	body = strings.TrimPrefix(body, prefix)
	fields := strings.FieldsFunc(body, func(r rune) bool {
		return r == '(' || r == ')' || r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) != want {
		return nil, fmt.Errorf("parse %s %q: want %d components, got %d: %w", prefix, s, want, len(fields), types.ErrTypeMismatch)
	}
	out := make([]float32, want)
	for i, f := range fields {
		v, err := parseFloat(f)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", prefix, s, err)
		}
		out[i] = v
	}
	return out, nil
}
