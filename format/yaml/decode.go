package yaml

import (
	"encoding/base64"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/format/internal/tree"
)

func parse(data []byte) (*tree.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.PhaseDeserialize, errors.KindInvalidData, err, "yaml syntax")
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return tree.NullNode(), nil
	}
	return fromYAML(doc.Content[0])
}

func fromYAML(n *yaml.Node) (*tree.Node, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return tree.NullNode(), nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.ScalarNode:
		return scalar(n)
	case yaml.SequenceNode:
		out := tree.SeqNode()
		for _, c := range n.Content {
			item, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, item)
		}
		return out, nil
	case yaml.MappingNode:
		out := tree.MapNode()
		if err := mapping(out, n); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, invalid(n, "unknown node kind %d", n.Kind)
}

// mapping appends the pairs of n to out. Merge keys contribute only keys not already set.
func mapping(out *tree.Node, n *yaml.Node) error {
	var merges []*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.ShortTag() == tagMerge {
			merges = append(merges, v)
			continue
		}
		kn, err := fromYAML(k)
		if err != nil {
			return err
		}
		vn, err := fromYAML(v)
		if err != nil {
			return err
		}
		out.Entries = append(out.Entries, tree.Entry{Key: kn, Value: vn})
	}
	for _, m := range merges {
		if err := merge(out, m); err != nil {
			return err
		}
	}
	return nil
}

func merge(out *tree.Node, m *yaml.Node) error {
	for m.Kind == yaml.AliasNode {
		m = m.Alias
	}
	switch m.Kind {
	case yaml.SequenceNode:
		for _, c := range m.Content {
			if err := merge(out, c); err != nil {
				return err
			}
		}
		return nil
	case yaml.MappingNode:
		src := tree.MapNode()
		if err := mapping(src, m); err != nil {
			return err
		}
		for _, e := range src.Entries {
			if _, ok := out.Get(e.Key.KeyText()); !ok {
				out.Entries = append(out.Entries, e)
			}
		}
		return nil
	}
	return invalid(m, "merge value must be a mapping")
}

func scalar(n *yaml.Node) (*tree.Node, error) {
	switch n.ShortTag() {
	case tagNull:
		return tree.NullNode(), nil
	case tagBool:
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, invalid(n, "bool %q", n.Value)
		}
		return tree.BoolNode(b), nil
	case tagInt:
		var i int64
		if err := n.Decode(&i); err == nil {
			return tree.IntNode(i), nil
		}
		var u uint64
		if err := n.Decode(&u); err != nil {
			return nil, invalid(n, "integer %q", n.Value)
		}
		return tree.UintNode(u), nil
	case tagFloat:
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, invalid(n, "float %q", n.Value)
		}
		return tree.FloatNode(f), nil
	case tagBinary:
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return nil, errors.Wrap(errors.PhaseDeserialize, errors.KindInvalidData, err, fmt.Sprintf("line %d: binary", n.Line))
		}
		return tree.BytesNode(b), nil
	}
	// !!str, !!timestamp and application tags keep their text.
	return tree.StringNode(n.Value), nil
}

func invalid(n *yaml.Node, format string, args ...any) error {
	return errors.InvalidData(errors.PhaseDeserialize, nil, fmt.Sprintf("line %d: ", n.Line)+fmt.Sprintf(format, args...))
}
