package tableio

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/quickwritereader/attrscope/factory"
	"github.com/quickwritereader/attrscope/logger"
	"github.com/quickwritereader/attrscope/scope"
	"github.com/quickwritereader/attrscope/types"
)

// Descriptor keys.
const (
	KeyType  = "type"
	KeyValue = "value"
	KeyClass = "class"
)

// Reader populates scopes from documents, creating child nodes through
// Nodes.
type Reader struct {
	Nodes *factory.Factory[scope.Node]
}

func NewReader() *Reader {
	return &Reader{Nodes: factory.Scopes}
}

// Load creates a node of class and populates it from doc.
func (r *Reader) Load(class string, doc *Document) (scope.Node, error) {
	n, err := r.Nodes.Create(class)
	if err != nil {
		return nil, err
	}
	if err := r.Populate(n.BaseScope(), doc); err != nil {
		return nil, err
	}
	return n, nil
}

// Populate appends every attribute of doc to target. Existing attributes
// are reused: field-backed ones are overwritten element by element, owned
// ones are appended to, and existing table children are filled before new
// ones are created.
func (r *Reader) Populate(target *scope.Scope, doc *Document) error {
	for name, raw := range doc.All() {
		if name == scope.ThisName {
			continue
		}
		desc, ok := raw.(*Document)
		if !ok {
			return fmt.Errorf("tableio: %q: descriptor is %T: %w", name, raw, types.ErrTypeMismatch)
		}
		if err := r.populateAttribute(target, name, desc); err != nil {
			return fmt.Errorf("tableio: %q: %w", name, err)
		}
	}
	return nil
}

func (r *Reader) populateAttribute(target *scope.Scope, name string, desc *Document) error {
	typeName, ok := GetAs[string](desc, KeyType)
	if !ok {
		return fmt.Errorf("missing %q: %w", KeyType, types.ErrInvalidOperation)
	}
	typ, err := types.ParseDatumType(typeName)
	if err != nil {
		return err
	}
	value, _ := desc.Get(KeyValue)
	values := asList(value)

	if typ == types.TypeTable {
		class, ok := GetAs[string](desc, KeyClass)
		if !ok || class == "" {
			class = scope.ScopeClass.Name()
		}
		return r.populateTable(target, name, class, values)
	}

	d, err := target.Append(name)
	if err != nil {
		return err
	}
	if err := d.SetType(typ); err != nil {
		return err
	}
	for i, v := range values {
		text, err := scalarText(v)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		if d.IsExternal() {
			err = d.SetFromString(text, i)
		} else {
			err = d.PushBackFromString(text)
		}
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func (r *Reader) populateTable(target *scope.Scope, name, class string, values []any) error {
	var existing []*scope.Scope
	if d := target.Find(name); d != nil {
		existing = d.Tables()
	}
	for i, v := range values {
		childDoc, ok := v.(*Document)
		if !ok {
			return fmt.Errorf("element %d: table entry is %T: %w", i, v, types.ErrTypeMismatch)
		}
		var child *scope.Scope
		switch {
		case i < len(existing):
			child = existing[i]
		case class == scope.ScopeClass.Name():
			c, err := target.AppendScope(name)
			if err != nil {
				return err
			}
			child = c
		default:
			n, err := r.Nodes.Create(class)
			if err != nil {
				return err
			}
			if err := target.Adopt(n, name); err != nil {
				return err
			}
			child = n.BaseScope()
		}
		if err := r.Populate(child, childDoc); err != nil {
			return err
		}
	}
	logger.Log.WithFields(logrus.Fields{
		"table":    name,
		"class":    class,
		"children": len(values),
	}).Debug("populated table")
	return nil
}

func asList(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	}
	return []any{v}
}

func scalarText(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	}
	return "", fmt.Errorf("value %v of type %T has no datum form: %w", v, v, types.ErrTypeMismatch)
}
