package tableio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	jsoniter "github.com/json-iterator/go"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/quickwritereader/attrscope/types"
)

// Format names a document encoding.
type Format string

const (
	FormatAuto    Format = "auto"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatJSON, FormatMsgpack:
		return f, nil
	case "":
		return FormatAuto, nil
	}
	return "", fmt.Errorf("tableio: unknown format %q: %w", s, types.ErrInvalidOperation)
}

// FormatForPath guesses the encoding from a file extension.
func FormatForPath(path string) Format {
	switch {
	case strings.HasSuffix(path, ".json"):
		return FormatJSON
	case strings.HasSuffix(path, ".msgpack"), strings.HasSuffix(path, ".mpk"):
		return FormatMsgpack
	}
	return FormatAuto
}

// Decode reads one document. FormatAuto treats input starting with '{'
// (after white space) as JSON and anything else as msgpack.
func Decode(r io.Reader, format Format) (*Document, error) {
	if format == FormatAuto {
		br := bufio.NewReader(r)
		format = sniff(br)
		r = br
	}
	switch format {
	case FormatJSON:
		return DecodeJSON(r)
	case FormatMsgpack:
		return DecodeMsgpack(r)
	}
	return nil, fmt.Errorf("tableio: cannot decode format %q: %w", format, types.ErrInvalidOperation)
}

func sniff(br *bufio.Reader) Format {
	for i := 1; ; i++ {
		b, err := br.Peek(i)
		if err != nil || len(b) < i {
			return FormatMsgpack
		}
		switch c := b[i-1]; c {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return FormatJSON
		default:
			return FormatMsgpack
		}
	}
}

func DecodeJSON(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	doc, err := decodeJSONObject(dec)
	if err != nil {
		return nil, fmt.Errorf("tableio: decode json: %w", err)
	}
	return doc, nil
}

// DecodeMsgpack reads a msgpack map. Maps decode into Documents in wire
// order; integers come back as int64 or uint64 and floats as float64.
func DecodeMsgpack(r io.Reader) (*Document, error) {
	dec := msgpack.NewDecoder(r)
	dec.UseLooseInterfaceDecoding(true)
	dec.SetMapDecoder(decodeMsgpackMap)
	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return nil, fmt.Errorf("tableio: decode msgpack: %w", err)
	}
	doc, ok := v.(*Document)
	if !ok {
		return nil, fmt.Errorf("tableio: decode msgpack: top level is %T: %w", v, types.ErrTypeMismatch)
	}
	return doc, nil
}

func decodeMsgpackMap(dec *msgpack.Decoder) (interface{}, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, err
	}
	doc := NewDocument()
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return nil, err
		}
		val, err := dec.DecodeInterfaceLoose()
		if err != nil {
			return nil, fmt.Errorf("%q: %w", key, err)
		}
		doc.Set(key, val)
	}
	return doc, nil
}

// Encode writes doc in format; FormatAuto means JSON.
func Encode(w io.Writer, doc *Document, format Format, indent int) error {
	switch format {
	case FormatJSON, FormatAuto:
		return WriteJSON(w, doc, indent)
	case FormatMsgpack:
		return WriteMsgpack(w, doc)
	}
	return fmt.Errorf("tableio: cannot encode format %q: %w", format, types.ErrInvalidOperation)
}

// WriteJSON streams doc as JSON, indenting nested levels by indent spaces
// when indent > 0.
func WriteJSON(w io.Writer, doc *Document, indent int) error {
	cfg := jsoniter.Config{IndentionStep: indent, EscapeHTML: false}.Froze()
	stream := jsoniter.NewStream(cfg, w, 4096)
	writeJSONValue(stream, doc)
	if stream.Error != nil {
		return fmt.Errorf("tableio: write json: %w", stream.Error)
	}
	if indent > 0 {
		stream.WriteRaw("\n")
	}
	return stream.Flush()
}

func writeJSONValue(stream *jsoniter.Stream, v any) {
	switch val := v.(type) {
	case *Document:
		stream.WriteObjectStart()
		first := true
		for k, item := range val.All() {
			if !first {
				stream.WriteMore()
			}
			first = false
			stream.WriteObjectField(k)
			writeJSONValue(stream, item)
		}
		stream.WriteObjectEnd()
	case []any:
		stream.WriteArrayStart()
		for i, item := range val {
			if i > 0 {
				stream.WriteMore()
			}
			writeJSONValue(stream, item)
		}
		stream.WriteArrayEnd()
	case json.Number:
		stream.WriteRaw(val.String())
	case string:
		stream.WriteString(val)
	case int32:
		stream.WriteInt32(val)
	case int64:
		stream.WriteInt64(val)
	case uint64:
		stream.WriteUint64(val)
	case float32:
		stream.WriteFloat32(val)
	case float64:
		stream.WriteFloat64(val)
	default:
		stream.WriteVal(val)
	}
}

// WriteMsgpack encodes doc as nested msgpack maps in document order.
func WriteMsgpack(w io.Writer, doc *Document) error {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := writeMsgpackValue(enc, doc); err != nil {
		return fmt.Errorf("tableio: write msgpack: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeMsgpackValue(enc *msgpack.Encoder, v any) error {
	switch val := v.(type) {
	case *Document:
		if err := enc.EncodeMapLen(val.Len()); err != nil {
			return err
		}
		for k, item := range val.All() {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := writeMsgpackValue(enc, item); err != nil {
				return err
			}
		}
		return nil
	case []any:
		if err := enc.EncodeArrayLen(len(val)); err != nil {
			return err
		}
		for _, item := range val {
			if err := writeMsgpackValue(enc, item); err != nil {
				return err
			}
		}
		return nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return enc.EncodeInt(i)
		}
		f, err := val.Float64()
		if err != nil {
			return err
		}
		return enc.EncodeFloat64(f)
	}
	return enc.Encode(v)
}
