package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/go-facet/peek"
)

func run(t *testing.T, stdin string, argv ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--no-color"}, argv...))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestTypes(t *testing.T) {
	out := run(t, "", "types")
	for _, name := range []string{"deploy", "event", "listener", "service"} {
		assert.Contains(t, out, name)
	}
}

func TestShapeCommand(t *testing.T) {
	out := run(t, "", "shape", "service")
	assert.True(t, strings.HasPrefix(out, "service ("), out)
	assert.Contains(t, out, "(sensitive) string")
	assert.Contains(t, out, "enum with 4 variants:")
}

func TestConvertSample(t *testing.T) {
	out := run(t, "", "convert", "--sample", "--type", "listener", "--to", "json", "--indent", "")
	assert.Equal(t, "{\"Address\":\"0.0.0.0\",\"Port\":8080,\"TLS\":null}\n", out)
}

func TestConvertJSONToYAML(t *testing.T) {
	in := `{"name":"api","timeout":"5s","labels":{"a":"b"}}`
	out := run(t, in, "convert", "--type", "service", "--from", "json", "--to", "yaml", "--sample=false")
	assert.Contains(t, out, "name: api\n")
	assert.Contains(t, out, "timeout: 5s\n")
	assert.Contains(t, out, "level: debug\n")
	assert.Contains(t, out, "  a: b\n")
}

func TestInspectRedacts(t *testing.T) {
	out := run(t, "", "inspect", "--type", "service", "--from", "")
	assert.Contains(t, out, "Token: [redacted]")
	assert.NotContains(t, out, "s3cr3t")
	assert.NotContains(t, out, "api.key")
}

func TestArgsCommand(t *testing.T) {
	out := run(t, "", "args", "--usage=false", "--", "api", "prod", "--replicas", "3", "--wait", "90s", "--dry-run")
	assert.Contains(t, out, `Service: "api"`)
	assert.Contains(t, out, `Target: "prod"`)
	assert.Contains(t, out, "Replicas: 3")
	assert.Contains(t, out, "Wait: 1m30s")
	assert.Contains(t, out, "DryRun: true")
}

func TestABICommand(t *testing.T) {
	out := run(t, "", "abi", "--type", "listener", "--from", "")
	assert.Contains(t, out, "layout: size=")
	assert.Contains(t, out, `Address: "0.0.0.0"`)
	assert.Contains(t, out, "Port: 8080")
}

func TestFlatten(t *testing.T) {
	s := sampleService()
	nodes := flatten(peek.New(&s))
	require.NotEmpty(t, nodes)
	assert.Equal(t, 0, nodes[0].depth)

	byPath := map[string]node{}
	for _, n := range nodes {
		byPath[n.path] = n
	}
	assert.True(t, byPath["Token"].secret)
	assert.Equal(t, `"api"`, byPath["Name"].value)
	assert.Equal(t, "info", byPath["Level"].value)
	assert.Equal(t, "2 items", byPath["Listen"].value)
	assert.Equal(t, "443", byPath["Listen[0].Port"].value)
	assert.True(t, byPath["Listen[0].TLS.Key"].secret)
	assert.Equal(t, "None", byPath["Listen[1].TLS"].value)
	assert.Equal(t, `"core"`, byPath[`Labels["team"]`].value)

	assert.True(t, byPath["Listen[0].Port"].matches("port"))
	assert.False(t, byPath["Listen[0].Port"].matches("labels"))
}
