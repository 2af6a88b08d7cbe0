package main

import (
	"fmt"
	"io"

	"github.com/wippyai/go-facet/format/json"
	"github.com/wippyai/go-facet/format/msgpack"
	"github.com/wippyai/go-facet/format/yaml"
	"github.com/wippyai/go-facet/peek"
	"github.com/wippyai/go-facet/shape"
	"github.com/wippyai/go-facet/wip"
)

type codecOptions struct {
	indent   string
	strict   bool
	compress bool
}

type codec struct {
	decode func(s *shape.Shape, data []byte, o codecOptions) (*wip.HeapValue, error)
	encode func(p peek.Peek, w io.Writer, o codecOptions) error
}

var codecs = map[string]codec{
	"json": {
		decode: func(s *shape.Shape, data []byte, o codecOptions) (*wip.HeapValue, error) {
			return json.DeserializeShape(s, data, json.Options{DenyUnknownFields: o.strict})
		},
		encode: func(p peek.Peek, w io.Writer, o codecOptions) error {
			if err := json.Serialize(p, w, json.Options{Indent: o.indent}); err != nil {
				return err
			}
			_, err := io.WriteString(w, "\n")
			return err
		},
	},
	"yaml": {
		decode: func(s *shape.Shape, data []byte, o codecOptions) (*wip.HeapValue, error) {
			opts := yaml.DefaultOptions()
			opts.DenyUnknownFields = o.strict
			return yaml.DeserializeShape(s, data, opts)
		},
		encode: func(p peek.Peek, w io.Writer, _ codecOptions) error {
			return yaml.Serialize(p, w, yaml.DefaultOptions())
		},
	},
	"msgpack": {
		decode: func(s *shape.Shape, data []byte, o codecOptions) (*wip.HeapValue, error) {
			opts := msgpack.DefaultOptions()
			opts.DenyUnknownFields = o.strict
			return msgpack.DeserializeShape(s, data, opts)
		},
		encode: func(p peek.Peek, w io.Writer, o codecOptions) error {
			opts := msgpack.DefaultOptions()
			opts.Compress = o.compress
			return msgpack.Serialize(p, w, opts)
		},
	},
}

func codecFor(name string) (codec, error) {
	c, ok := codecs[name]
	if !ok {
		return codec{}, fmt.Errorf("unknown format %q (want json, yaml or msgpack)", name)
	}
	return c, nil
}
