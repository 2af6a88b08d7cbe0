package pretty

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/go-facet/peek"
	"github.com/wippyai/go-facet/shape"
)

type level uint8

const (
	levelLow level = iota
	levelHigh
)

func init() {
	shape.RegisterEnum(shape.Case("low", levelLow), shape.Case("high", levelHigh))
}

type account struct {
	User     string
	Password string `facet:",sensitive"`
	Level    level
	Tags     []string
	Limits   map[string]uint32
	Ratio    *float64
	Key      []byte
}

type wrapper struct {
	_  struct{} `facet:",transparent"`
	ID uint64
}

type payment struct {
	_    struct{} `facet:",oneof"`
	Card *struct{ Number string }
	Cash *uint32
}

type tree struct {
	Name     string
	Children []tree
}

func TestSprint(t *testing.T) {
	ratio := 0.5
	a := account{
		User:     "alice",
		Password: "hunter2",
		Level:    levelHigh,
		Tags:     []string{"a", "b"},
		Limits:   map[string]uint32{"cpu": 2},
		Ratio:    &ratio,
		Key:      []byte{0xca, 0xfe},
	}
	want := `account {
  User: "alice",
  Password: [redacted],
  Level: high,
  Tags: [
    "a",
    "b",
  ],
  Limits: {
    "cpu": 2,
  },
  Ratio: Some(0.5),
  Key: 0xcafe,
}`
	assert.Equal(t, want, Sprint(&a))
	assert.NotContains(t, Sprint(&a), "hunter2")
}

func TestEmptyCollections(t *testing.T) {
	a := account{}
	out := Sprint(&a)
	assert.Contains(t, out, "Tags: [],")
	assert.Contains(t, out, "Limits: {},")
	assert.Contains(t, out, "Ratio: None,")
	assert.Contains(t, out, "Level: low,")
}

func TestTransparent(t *testing.T) {
	w := wrapper{ID: 42}
	assert.Equal(t, "42", Sprint(&w))
}

func TestVariants(t *testing.T) {
	cash := uint32(5)
	assert.Equal(t, "Cash(5)", Sprint(&payment{Cash: &cash}))

	card := payment{Card: &struct{ Number string }{Number: "4242"}}
	assert.Equal(t, "Card {\n  Number: \"4242\",\n}", Sprint(&card))
}

func TestIndentAndDepth(t *testing.T) {
	v := tree{Name: "root", Children: []tree{{Name: "leaf"}}}

	out := Format(peek.New(&v), Options{Indent: 4})
	assert.Contains(t, out, "\n    Name: \"root\",")

	out = Format(peek.New(&v), Options{Indent: 2, MaxDepth: 1})
	assert.Contains(t, out, "Children: [\n    ...,\n  ],")
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	n := uint16(7)
	require.NoError(t, Fprint(&buf, peek.New(&n), DefaultOptions()))
	assert.Equal(t, "7\n", buf.String())
}

func TestColorOnPlainWriter(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, ColorEnabled(&buf))

	s := "x"
	require.NoError(t, Fprint(&buf, peek.New(&s), Options{Color: true}))
	assert.Equal(t, "\"x\"\n", buf.String())
}

func TestFormatShape(t *testing.T) {
	out := FormatShape(shape.Of[account](), DefaultOptions())
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "account ("), lines[0])
	assert.Contains(t, out, "(sensitive) string")
	assert.Contains(t, out, "enum with 2 variants:")
	assert.Contains(t, out, "low = 0")
	assert.Contains(t, out, "high = 1")
	assert.Contains(t, out, "map from string to: uint32")
	assert.Contains(t, out, "option of: float64")
}

func TestFormatShapeRecursive(t *testing.T) {
	out := FormatShape(shape.Of[tree](), DefaultOptions())
	assert.Contains(t, out, "tree (already printed)")
}

func TestFormatShapeOneOf(t *testing.T) {
	out := FormatShape(shape.Of[payment](), DefaultOptions())
	assert.Contains(t, out, "Card { Number }")
	assert.Contains(t, out, "Cash(_)")
}
