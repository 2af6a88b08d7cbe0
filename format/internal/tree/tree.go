// Package tree is the format-neutral value model the format packages translate to and
// from. Reading walks a peek.Peek into a Node; writing drives a wip.Wip from a Node.
package tree

import (
	"strconv"
)

type Kind uint8

const (
	Null Kind = iota
	Bool
	Int
	Uint
	Float
	String
	Bytes
	Seq
	Map
)

var kindNames = [...]string{
	Null:   "null",
	Bool:   "bool",
	Int:    "int",
	Uint:   "uint",
	Float:  "float",
	String: "string",
	Bytes:  "bytes",
	Seq:    "sequence",
	Map:    "map",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Node is one value. Map entries keep their order.
type Node struct {
	Kind    Kind
	Bool    bool
	Int     int64
	Uint    uint64
	Float   float64
	Str     string
	Bytes   []byte
	Items   []*Node
	Entries []Entry
}

type Entry struct {
	Key   *Node
	Value *Node
}

func NullNode() *Node                { return &Node{Kind: Null} }
func BoolNode(b bool) *Node          { return &Node{Kind: Bool, Bool: b} }
func IntNode(v int64) *Node          { return &Node{Kind: Int, Int: v} }
func UintNode(v uint64) *Node        { return &Node{Kind: Uint, Uint: v} }
func FloatNode(v float64) *Node      { return &Node{Kind: Float, Float: v} }
func StringNode(s string) *Node      { return &Node{Kind: String, Str: s} }
func BytesNode(b []byte) *Node       { return &Node{Kind: Bytes, Bytes: b} }
func SeqNode(items ...*Node) *Node   { return &Node{Kind: Seq, Items: items} }
func MapNode(entries ...Entry) *Node { return &Node{Kind: Map, Entries: entries} }

// Set appends a string-keyed entry.
func (n *Node) Set(key string, v *Node) {
	n.Entries = append(n.Entries, Entry{Key: StringNode(key), Value: v})
}

// Get returns the value of the first entry whose key is the string key.
func (n *Node) Get(key string) (*Node, bool) {
	for _, e := range n.Entries {
		if e.Key.Kind == String && e.Key.Str == key {
			return e.Value, true
		}
	}
	return nil, false
}

// KeyText renders a map key as text, for formats whose keys are always strings.
func (n *Node) KeyText() string {
	switch n.Kind {
	case String:
		return n.Str
	case Bool:
		return strconv.FormatBool(n.Bool)
	case Int:
		return strconv.FormatInt(n.Int, 10)
	case Uint:
		return strconv.FormatUint(n.Uint, 10)
	case Float:
		return strconv.FormatFloat(n.Float, 'g', -1, 64)
	}
	return ""
}
