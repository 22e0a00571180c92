package tableio

import (
	"io"

	"github.com/quickwritereader/attrscope/logger"
	"github.com/quickwritereader/attrscope/scope"
	"github.com/quickwritereader/attrscope/types"
)

// Writer turns scopes back into documents.
type Writer struct {
	Format Format
	Indent int
}

// Write encodes s to w in the writer's format.
func (wr Writer) Write(w io.Writer, s *scope.Scope) error {
	doc, err := EncodeScope(s)
	if err != nil {
		return err
	}
	return Encode(w, doc, wr.Format, wr.Indent)
}

// EncodeScope builds the document describing s. The "this" entry, Pointer
// datums and still-Unknown datums have no document form and are left out.
func EncodeScope(s *scope.Scope) (*Document, error) {
	doc := NewDocument()
	for _, e := range s.Entries() {
		d := &e.Value
		if e.Key == scope.ThisName || d.Type() == types.TypePointer || d.Type() == types.TypeUnknown {
			continue
		}
		desc := NewDocument(F(KeyType, d.Type().String()))
		if d.Type() == types.TypeTable {
			class, values, err := encodeTable(e.Key, d.Tables())
			if err != nil {
				return nil, err
			}
			if class != scope.ScopeClass.Name() {
				desc.Set(KeyClass, class)
			}
			desc.Set(KeyValue, collapse(values))
		} else {
			values, err := encodeElements(d)
			if err != nil {
				return nil, err
			}
			desc.Set(KeyValue, collapse(values))
		}
		doc.Set(e.Key, desc)
	}
	return doc, nil
}

func encodeTable(name string, children []*scope.Scope) (string, []any, error) {
	class := scope.ScopeClass.Name()
	values := make([]any, 0, len(children))
	for i, child := range children {
		if child == nil {
			continue
		}
		c := child.Node().Class().Name()
		if i == 0 {
			class = c
		} else if c != class {
			logger.Log.WithField("table", name).Warnf("mixed classes %s and %s, writing %s", class, c, class)
		}
		childDoc, err := EncodeScope(child)
		if err != nil {
			return "", nil, err
		}
		values = append(values, childDoc)
	}
	return class, values, nil
}

func encodeElements(d *scope.Datum) ([]any, error) {
	values := make([]any, 0, d.Size())
	switch d.Type() {
	case types.TypeInteger:
		for _, v := range d.Integers() {
			values = append(values, int64(v))
		}
	case types.TypeFloat:
		for _, v := range d.Floats() {
			values = append(values, v)
		}
	case types.TypeString:
		for _, v := range d.Strings() {
			values = append(values, v)
		}
	default:
		for i := 0; i < d.Size(); i++ {
			text, err := d.ToString(i)
			if err != nil {
				return nil, err
			}
			values = append(values, text)
		}
	}
	return values, nil
}

// collapse writes single values bare.
func collapse(values []any) any {
	if len(values) == 1 {
		return values[0]
	}
	return values
}
