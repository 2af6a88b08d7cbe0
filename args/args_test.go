package args

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/go-facet/errors"
)

type cli struct {
	Input   string `facet:",positional" doc:"file to read"`
	Output  string `facet:",positional,default"`
	Level   int32  `facet:",default"`
	DryRun  bool   `doc:"print actions only"`
	Verbose bool
	Timeout time.Duration `facet:"wait,default"`
	Name    string
}

type ranged struct {
	Min uint16
	Max uint16
}

func (r *ranged) Validate() error {
	if r.Min > r.Max {
		return fmt.Errorf("min %d above max %d", r.Min, r.Max)
	}
	return nil
}

type unparsable struct {
	Env map[string]string
}

func TestParse(t *testing.T) {
	got, err := Parse[cli]([]string{"in.txt", "--name", "job", "--level", "3", "--dry-run", "out.txt", "--wait", "5s"})
	require.NoError(t, err)
	assert.Equal(t, cli{
		Input:   "in.txt",
		Output:  "out.txt",
		Level:   3,
		DryRun:  true,
		Timeout: 5 * time.Second,
		Name:    "job",
	}, got)
}

func TestNameMatching(t *testing.T) {
	for _, flag := range []string{"--dry-run", "--dry_run", "--DryRun", "--dryrun"} {
		t.Run(flag, func(t *testing.T) {
			got, err := Parse[cli]([]string{"a", "--name", "n", flag})
			require.NoError(t, err)
			assert.True(t, got.DryRun)
		})
	}
}

func TestDefaults(t *testing.T) {
	got, err := Parse[cli]([]string{"a", "--name", "n"})
	require.NoError(t, err)
	assert.Equal(t, "a", got.Input)
	assert.Empty(t, got.Output)
	assert.Zero(t, got.Level)
	assert.False(t, got.DryRun)
	assert.False(t, got.Verbose)
}

func TestInlineValues(t *testing.T) {
	got, err := Parse[cli]([]string{"--name=x=y", "--level=-2", "--verbose=false", "--dry-run=true", "a"})
	require.NoError(t, err)
	assert.Equal(t, "x=y", got.Name)
	assert.Equal(t, int32(-2), got.Level)
	assert.False(t, got.Verbose)
	assert.True(t, got.DryRun)
}

func TestRepeatedFlagKeepsLast(t *testing.T) {
	got, err := Parse[cli]([]string{"a", "--name", "first", "--name", "second"})
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)
}

func TestDoubleDash(t *testing.T) {
	got, err := Parse[cli]([]string{"--name", "n", "--", "--input", "--output"})
	require.NoError(t, err)
	assert.Equal(t, "--input", got.Input)
	assert.Equal(t, "--output", got.Output)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		kind errors.Kind
	}{
		{"missing required", []string{"a"}, errors.KindFieldMissing},
		{"missing positional", []string{"--name", "n"}, errors.KindFieldMissing},
		{"unknown flag", []string{"a", "--name", "n", "--color"}, errors.KindFieldUnknown},
		{"missing value", []string{"a", "--name"}, errors.KindInvalidData},
		{"extra positional", []string{"a", "b", "c", "--name", "n"}, errors.KindInvalidData},
		{"bad number", []string{"a", "--name", "n", "--level", "high"}, errors.KindInvalidData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse[cli](tt.argv)
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, tt.kind), err.Error())
		})
	}
}

func TestBadValueNamesField(t *testing.T) {
	_, err := Parse[cli]([]string{"a", "--name", "n", "--level", "high"})
	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Contains(t, e.Path, "Level")
}

func TestAllowUnknown(t *testing.T) {
	got, err := ParseWith[cli]([]string{"a", "--color", "--name", "n"}, Options{AllowUnknown: true})
	require.NoError(t, err)
	assert.Equal(t, "n", got.Name)
}

func TestInvariants(t *testing.T) {
	got, err := Parse[ranged]([]string{"--min", "1", "--max", "9"})
	require.NoError(t, err)
	assert.Equal(t, ranged{Min: 1, Max: 9}, got)

	_, err = Parse[ranged]([]string{"--min", "9", "--max", "1"})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindInvariant), err.Error())
}

func TestNotAStruct(t *testing.T) {
	_, err := Parse[int]([]string{"1"})
	assert.True(t, errors.IsKind(err, errors.KindWrongShape))
}

func TestFieldWithoutParsePanics(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = Parse[unparsable]([]string{"--env", "A=1"})
	})
}

func TestUsage(t *testing.T) {
	u := Usage[cli]()
	lines := strings.Split(strings.TrimSpace(u), "\n")
	require.Len(t, lines, 8)
	assert.Contains(t, lines[1], "<input>")
	assert.Contains(t, lines[1], "file to read")
	assert.Contains(t, lines[4], "--dry-run")
	assert.Contains(t, lines[6], "--wait")
}
