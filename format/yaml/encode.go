package yaml

import (
	"encoding/base64"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/go-facet/format/internal/tree"
)

const (
	tagNull   = "!!null"
	tagBool   = "!!bool"
	tagInt    = "!!int"
	tagFloat  = "!!float"
	tagStr    = "!!str"
	tagBinary = "!!binary"
	tagMerge  = "!!merge"
)

func toYAML(n *tree.Node) *yaml.Node {
	switch n.Kind {
	case tree.Null:
		return scalarNode(tagNull, "null")
	case tree.Bool:
		return scalarNode(tagBool, strconv.FormatBool(n.Bool))
	case tree.Int:
		return scalarNode(tagInt, strconv.FormatInt(n.Int, 10))
	case tree.Uint:
		return scalarNode(tagInt, strconv.FormatUint(n.Uint, 10))
	case tree.Float:
		return scalarNode(tagFloat, formatFloat(n.Float))
	case tree.String:
		return scalarNode(tagStr, n.Str)
	case tree.Bytes:
		return scalarNode(tagBinary, base64.StdEncoding.EncodeToString(n.Bytes))
	case tree.Seq:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.Items {
			out.Content = append(out.Content, toYAML(item))
		}
		return out
	}
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range n.Entries {
		out.Content = append(out.Content, toYAML(e.Key), toYAML(e.Value))
	}
	return out
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// formatFloat keeps a fractional part so whole floats read back as floats.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
