// Package json reads and writes JSON through peek and wip, with no knowledge of the
// concrete Go types involved.
package json

import (
	"bytes"
	"encoding/base64"
	"io"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/format/internal/tree"
	"github.com/wippyai/go-facet/peek"
	"github.com/wippyai/go-facet/shape"
	"github.com/wippyai/go-facet/wip"
)

// Options configure encoding and decoding.
type Options struct {
	// Indent, when set, writes one value per line indented by this string.
	Indent string

	// DenyUnknownFields rejects object keys that name no field.
	DenyUnknownFields bool
}

// DefaultOptions returns compact output and lenient decoding.
func DefaultOptions() Options {
	return Options{}
}

// Serialize writes the value behind p to w.
func Serialize(p peek.Peek, w io.Writer, opts Options) error {
	n, err := tree.FromPeek(p)
	if err != nil {
		return err
	}
	enc := &encoder{indent: opts.Indent}
	enc.value(n, 0)
	if _, err := w.Write(enc.buf.Bytes()); err != nil {
		return errors.Wrap(errors.PhaseSerialize, errors.KindGeneric, err, "write")
	}
	return nil
}

// Marshal encodes v compactly.
func Marshal[T any](v *T) ([]byte, error) {
	var b bytes.Buffer
	if err := Serialize(peek.New(v), &b, DefaultOptions()); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// MarshalIndent encodes v with one value per line.
func MarshalIndent[T any](v *T, indent string) ([]byte, error) {
	var b bytes.Buffer
	if err := Serialize(peek.New(v), &b, Options{Indent: indent}); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// DeserializeShape decodes data into a new value of shape s.
func DeserializeShape(s *shape.Shape, data []byte, opts Options) (*wip.HeapValue, error) {
	n, err := parse(data)
	if err != nil {
		return nil, err
	}
	return tree.Decode(s, n, writeOptions(opts))
}

// Deserialize fills the current frame of w from data and leaves it open.
func Deserialize(w *wip.Wip, data []byte, opts Options) error {
	n, err := parse(data)
	if err != nil {
		return err
	}
	return tree.Into(w, n, writeOptions(opts))
}

// Unmarshal decodes data into a T.
func Unmarshal[T any](data []byte) (T, error) {
	return UnmarshalWith[T](data, DefaultOptions())
}

// UnmarshalWith decodes data into a T with opts.
func UnmarshalWith[T any](data []byte, opts Options) (T, error) {
	var zero T
	hv, err := DeserializeShape(shape.Of[T](), data, opts)
	if err != nil {
		return zero, err
	}
	return wip.Materialize[T](hv)
}

func writeOptions(opts Options) tree.WriteOptions {
	return tree.WriteOptions{
		DenyUnknownFields: opts.DenyUnknownFields,
		BytesFromString:   base64.StdEncoding.DecodeString,
	}
}
