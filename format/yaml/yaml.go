// Package yaml reads and writes YAML documents through peek and wip.
//
// Values go through a yaml.Node tree, so key order follows field order on output
// and tags decide scalar kinds on input. Byte slices are written as !!binary.
package yaml

import (
	"bytes"
	"encoding/base64"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/format/internal/tree"
	"github.com/wippyai/go-facet/peek"
	"github.com/wippyai/go-facet/shape"
	"github.com/wippyai/go-facet/wip"
)

// Options configure encoding and decoding.
type Options struct {
	// Indent is the number of spaces per nesting level.
	Indent int

	// DenyUnknownFields rejects mapping keys that name no field.
	DenyUnknownFields bool
}

func DefaultOptions() Options {
	return Options{Indent: 2}
}

// Serialize writes the value behind p to w as a single document.
func Serialize(p peek.Peek, w io.Writer, opts Options) error {
	n, err := tree.FromPeek(p)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	if opts.Indent > 0 {
		enc.SetIndent(opts.Indent)
	}
	if err := enc.Encode(toYAML(n)); err != nil {
		return errors.Wrap(errors.PhaseSerialize, errors.KindGeneric, err, "yaml encode")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(errors.PhaseSerialize, errors.KindGeneric, err, "yaml flush")
	}
	return nil
}

func Marshal[T any](v *T) ([]byte, error) {
	var b bytes.Buffer
	if err := Serialize(peek.New(v), &b, DefaultOptions()); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// DeserializeShape decodes the first document in data into a new value of shape s.
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

func Unmarshal[T any](data []byte) (T, error) {
	return UnmarshalWith[T](data, DefaultOptions())
}

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
