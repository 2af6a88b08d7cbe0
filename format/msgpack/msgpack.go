// Package msgpack reads and writes MessagePack through peek and wip.
//
// Structs are maps keyed by serialized field name. Payloads may optionally be wrapped
// in a zstd frame; decoding detects the frame by its magic number.
package msgpack

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/format/internal/tree"
	"github.com/wippyai/go-facet/peek"
	"github.com/wippyai/go-facet/shape"
	"github.com/wippyai/go-facet/wip"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Options configure encoding and decoding.
type Options struct {
	// Compress wraps the encoded payload in a zstd frame.
	Compress bool
	Level    zstd.EncoderLevel

	// DenyUnknownFields rejects map keys that name no field.
	DenyUnknownFields bool
}

func DefaultOptions() Options {
	return Options{Level: zstd.SpeedDefault}
}

// Serialize writes the value behind p to w.
func Serialize(p peek.Peek, w io.Writer, opts Options) error {
	n, err := tree.FromPeek(p)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	if err := encode(enc, n); err != nil {
		return errors.Wrap(errors.PhaseSerialize, errors.KindGeneric, err, "msgpack encode")
	}
	out := buf.Bytes()
	if opts.Compress {
		level := opts.Level
		if level == 0 {
			level = zstd.SpeedDefault
		}
		zw, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		if err != nil {
			return errors.Wrap(errors.PhaseSerialize, errors.KindGeneric, err, "zstd writer")
		}
		out = zw.EncodeAll(out, nil)
		if err := zw.Close(); err != nil {
			return errors.Wrap(errors.PhaseSerialize, errors.KindGeneric, err, "zstd close")
		}
	}
	if _, err := w.Write(out); err != nil {
		return errors.Wrap(errors.PhaseSerialize, errors.KindGeneric, err, "write")
	}
	return nil
}

func Marshal[T any](v *T) ([]byte, error) {
	return MarshalWith(v, DefaultOptions())
}

func MarshalWith[T any](v *T, opts Options) ([]byte, error) {
	var b bytes.Buffer
	if err := Serialize(peek.New(v), &b, opts); err != nil {
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
		BytesFromString:   func(s string) ([]byte, error) { return []byte(s), nil },
	}
}

func parse(data []byte) (*tree.Node, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		zr, err := zstd.NewReader(nil)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDeserialize, errors.KindGeneric, err, "zstd reader")
		}
		defer zr.Close()
		data, err = zr.DecodeAll(data, nil)
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDeserialize, errors.KindInvalidData, err, "zstd frame")
		}
	}
	r := bytes.NewReader(data)
	n, err := decode(msgpack.NewDecoder(r))
	if err != nil {
		return nil, err
	}
	if r.Len() > 0 {
		return nil, errors.InvalidData(errors.PhaseDeserialize, nil, "trailing data after value")
	}
	return n, nil
}
