package json

import (
	"bytes"
	stdjson "encoding/json"
	"io"
	"strconv"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/format/internal/tree"
)

// parse reads one JSON document into a node tree, keeping object key order.
func parse(data []byte) (*tree.Node, error) {
	dec := stdjson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.InvalidData(errors.PhaseDeserialize, nil, "trailing data after JSON value")
	}
	return n, nil
}

func parseValue(dec *stdjson.Decoder) (*tree.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, syntaxError(err)
	}
	switch t := tok.(type) {
	case nil:
		return tree.NullNode(), nil
	case bool:
		return tree.BoolNode(t), nil
	case string:
		return tree.StringNode(t), nil
	case stdjson.Number:
		return number(t)
	case stdjson.Delim:
		switch t {
		case '[':
			n := tree.SeqNode()
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				n.Items = append(n.Items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, syntaxError(err)
			}
			return n, nil
		case '{':
			n := tree.MapNode()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, syntaxError(err)
				}
				key, _ := kt.(string)
				v, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				n.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, syntaxError(err)
			}
			return n, nil
		}
	}
	return nil, errors.InvalidData(errors.PhaseDeserialize, nil, "unexpected token")
}

// number keeps integers exact: int64 when they fit, then uint64, then float64.
func number(num stdjson.Number) (*tree.Node, error) {
	if i, err := num.Int64(); err == nil {
		return tree.IntNode(i), nil
	}
	if u, err := strconv.ParseUint(string(num), 10, 64); err == nil {
		return tree.UintNode(u), nil
	}
	f, err := num.Float64()
	if err != nil {
		return nil, errors.ParseFailed("number", string(num), err)
	}
	return tree.FloatNode(f), nil
}

func syntaxError(err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return errors.Wrap(errors.PhaseDeserialize, errors.KindInvalidData, err, "malformed JSON")
}
