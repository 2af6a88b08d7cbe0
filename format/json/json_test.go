package json

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/shape"
	"github.com/wippyai/go-facet/wip"
)

type person struct {
	Name string `facet:"name"`
	Age  uint64 `facet:"age"`
}

type level uint8

const (
	levelLow level = iota
	levelHigh
)

func init() {
	shape.RegisterEnum(shape.Case("low", levelLow), shape.Case("high", levelHigh))
}

type server struct {
	_        struct{} `facet:",rename_all=kebab-case"`
	HostName string
	Port     uint16
	Timeout  time.Duration
	Tags     []string          `facet:",default,skip_serializing_if=empty"`
	Labels   map[string]string `facet:",default,skip_serializing_if=empty"`
	Backup   *string
	Level    level
	Secret   []byte `facet:",default,skip_serializing_if=nil"`
}

type payment struct {
	_    struct{} `facet:",oneof"`
	Card *struct{ Number string }
	Cash *uint32
}

type strict struct {
	_ struct{} `facet:",deny_unknown_fields"`
	A int
}

func TestPersonRoundTrip(t *testing.T) {
	w, err := wip.Alloc[person]()
	require.NoError(t, err)
	require.NoError(t, w.FieldNamed("name"))
	require.NoError(t, wip.Put(w, "Alice"))
	require.NoError(t, w.Pop())
	require.NoError(t, w.FieldNamed("age"))
	require.NoError(t, wip.Put(w, uint64(30)))
	require.NoError(t, w.Pop())
	hv, err := w.Build()
	require.NoError(t, err)

	p, err := wip.Materialize[person](hv)
	require.NoError(t, err)
	require.Equal(t, person{Name: "Alice", Age: 30}, p)

	out, err := Marshal(&p)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Alice","age":30}`, string(out))

	back, err := Unmarshal[person](out)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestServerRoundTrip(t *testing.T) {
	backup := "10.0.0.2"
	in := server{
		HostName: "example.org",
		Port:     8080,
		Timeout:  90 * time.Second,
		Tags:     []string{"a", "b\n\"c\""},
		Backup:   &backup,
		Level:    levelHigh,
		Secret:   []byte{0, 1, 2},
	}
	out, err := Marshal(&in)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"host-name":"example.org","port":8080,"timeout":"1m30s","tags":["a","b\n\"c\""],"backup":"10.0.0.2","level":"high","secret":"AAEC"}`,
		string(out))

	back, err := Unmarshal[server](out)
	require.NoError(t, err)
	assert.Equal(t, in.HostName, back.HostName)
	assert.Equal(t, in.Timeout, back.Timeout)
	assert.Equal(t, in.Tags, back.Tags)
	assert.Equal(t, in.Secret, back.Secret)
	assert.Equal(t, levelHigh, back.Level)
	require.NotNil(t, back.Backup)
	assert.Equal(t, backup, *back.Backup)
}

func TestMissingOptionalFields(t *testing.T) {
	back, err := Unmarshal[server]([]byte(`{"host-name":"h","port":1,"timeout":"1s","level":"LOW","tags":null,"labels":{}}`))
	require.NoError(t, err)
	assert.Nil(t, back.Backup)
	assert.Equal(t, levelLow, back.Level)
}

func TestMissingRequiredField(t *testing.T) {
	_, err := Unmarshal[person]([]byte(`{"name":"Bob"}`))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindFieldMissing), err.Error())
}

func TestTypeMismatch(t *testing.T) {
	_, err := Unmarshal[person]([]byte(`{"name":"Bob","age":"old"}`))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvalidData), err.Error())

	_, err = Unmarshal[person]([]byte(`{"name":1,"age":2}`))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindTypeMismatch), err.Error())
}

func TestOneOf(t *testing.T) {
	cash := uint32(12)
	in := payment{Cash: &cash}
	out, err := Marshal(&in)
	require.NoError(t, err)
	assert.Equal(t, `{"Cash":12}`, string(out))

	back, err := Unmarshal[payment]([]byte(`{"card":{"Number":"4242"}}`))
	require.NoError(t, err)
	require.NotNil(t, back.Card)
	assert.Equal(t, "4242", back.Card.Number)
	assert.Nil(t, back.Cash)
}

func TestUnknownFields(t *testing.T) {
	_, err := Unmarshal[person]([]byte(`{"name":"a","age":1,"extra":[1,{"x":null}]}`))
	require.NoError(t, err)

	_, err = UnmarshalWith[person]([]byte(`{"name":"a","age":1,"extra":1}`), Options{DenyUnknownFields: true})
	assert.True(t, errors.IsKind(err, errors.KindFieldUnknown))

	_, err = Unmarshal[strict]([]byte(`{"A":1,"B":2}`))
	assert.True(t, errors.IsKind(err, errors.KindFieldUnknown))
}

func TestMalformed(t *testing.T) {
	for _, in := range []string{`{"name":`, `[1,2`, `{"a":1} x`, ``} {
		_, err := Unmarshal[person]([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestIndent(t *testing.T) {
	p := person{Name: "A", Age: 1}
	out, err := MarshalIndent(&p, "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"A\",\n  \"age\": 1\n}", string(out))
}

func TestMapsAndFloats(t *testing.T) {
	in := map[string]float64{"b": 2, "a": 0.5}
	out, err := Marshal(&in)
	require.NoError(t, err)
	assert.Equal(t, `{"a":0.5,"b":2.0}`, string(out))

	back, err := Unmarshal[map[string]float64](out)
	require.NoError(t, err)
	assert.Equal(t, in, back)
}

func TestDeserializeShape(t *testing.T) {
	hv, err := DeserializeShape(shape.Of[[]int8](), []byte(`[1,-2,3]`), DefaultOptions())
	require.NoError(t, err)
	defer hv.Drop()
	l, err := hv.Peek().List()
	require.NoError(t, err)
	assert.Equal(t, 3, l.Len())

	_, err = DeserializeShape(shape.Of[[]int8](), []byte(`[300]`), DefaultOptions())
	assert.True(t, errors.IsKind(err, errors.KindOverflow))
}
