package msgpack

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/format/internal/tree"
)

func encode(enc *msgpack.Encoder, n *tree.Node) error {
	switch n.Kind {
	case tree.Null:
		return enc.EncodeNil()
	case tree.Bool:
		return enc.EncodeBool(n.Bool)
	case tree.Int:
		return enc.EncodeInt(n.Int)
	case tree.Uint:
		return enc.EncodeUint(n.Uint)
	case tree.Float:
		return enc.EncodeFloat64(n.Float)
	case tree.String:
		return enc.EncodeString(n.Str)
	case tree.Bytes:
		return enc.EncodeBytes(n.Bytes)
	case tree.Seq:
		if err := enc.EncodeArrayLen(len(n.Items)); err != nil {
			return err
		}
		for _, item := range n.Items {
			if err := encode(enc, item); err != nil {
				return err
			}
		}
		return nil
	case tree.Map:
		if err := enc.EncodeMapLen(len(n.Entries)); err != nil {
			return err
		}
		for _, e := range n.Entries {
			if err := encode(enc, e.Key); err != nil {
				return err
			}
			if err := encode(enc, e.Value); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("node kind %s", n.Kind)
}

func decode(dec *msgpack.Decoder) (*tree.Node, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return nil, malformed(err)
	}
	switch {
	case c == msgpcode.Nil:
		if err := dec.DecodeNil(); err != nil {
			return nil, malformed(err)
		}
		return tree.NullNode(), nil

	case c == msgpcode.True || c == msgpcode.False:
		b, err := dec.DecodeBool()
		if err != nil {
			return nil, malformed(err)
		}
		return tree.BoolNode(b), nil

	case msgpcode.IsFixedNum(c),
		c == msgpcode.Int8, c == msgpcode.Int16, c == msgpcode.Int32, c == msgpcode.Int64:
		i, err := dec.DecodeInt64()
		if err != nil {
			return nil, malformed(err)
		}
		return tree.IntNode(i), nil

	case c == msgpcode.Uint8, c == msgpcode.Uint16, c == msgpcode.Uint32, c == msgpcode.Uint64:
		u, err := dec.DecodeUint64()
		if err != nil {
			return nil, malformed(err)
		}
		return tree.UintNode(u), nil

	case c == msgpcode.Float, c == msgpcode.Double:
		f, err := dec.DecodeFloat64()
		if err != nil {
			return nil, malformed(err)
		}
		return tree.FloatNode(f), nil

	case msgpcode.IsString(c):
		s, err := dec.DecodeString()
		if err != nil {
			return nil, malformed(err)
		}
		return tree.StringNode(s), nil

	case msgpcode.IsBin(c):
		b, err := dec.DecodeBytes()
		if err != nil {
			return nil, malformed(err)
		}
		return tree.BytesNode(b), nil

	case msgpcode.IsFixedArray(c), c == msgpcode.Array16, c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, malformed(err)
		}
		out := tree.SeqNode()
		for range n {
			item, err := decode(dec)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, item)
		}
		return out, nil

	case msgpcode.IsFixedMap(c), c == msgpcode.Map16, c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return nil, malformed(err)
		}
		out := tree.MapNode()
		for range n {
			k, err := decode(dec)
			if err != nil {
				return nil, err
			}
			v, err := decode(dec)
			if err != nil {
				return nil, err
			}
			out.Entries = append(out.Entries, tree.Entry{Key: k, Value: v})
		}
		return out, nil
	}
	return nil, errors.New(errors.PhaseDeserialize, errors.KindUnsupported).
		Detail("msgpack code 0x%02x", c).
		Build()
}

func malformed(err error) error {
	return errors.Wrap(errors.PhaseDeserialize, errors.KindInvalidData, err, "msgpack")
}
