package compiler

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"app.json", FormatJSON, false},
		{"app.yaml", FormatYAML, false},
		{"APP.YML", FormatYAML, false},
		{"dir/app.cue", FormatCUE, false},
		{"app.toml", "", true},
		{"app", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatOf(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadFile_FormatsAgree(t *testing.T) {
	want, err := LoadFile(filepath.Join("testdata", "counter.json"))
	require.NoError(t, err)

	for _, name := range []string{"counter.yaml", "counter.cue"} {
		t.Run(name, func(t *testing.T) {
			got, err := LoadFile(filepath.Join("testdata", name))
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("program mismatch (-json +%s):\n%s", name, diff)
			}
		})
	}
}

func TestLoadFile_PreservesStateOrder(t *testing.T) {
	for _, name := range []string{"counter.json", "counter.yaml", "counter.cue"} {
		t.Run(name, func(t *testing.T) {
			p, err := LoadFile(filepath.Join("testdata", name))
			require.NoError(t, err)
			assert.Equal(t, []string{"step", "count", "label"}, p.State.Names())
			assert.Equal(t, "inc", p.Lifecycle.OnMount)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "nope.json"))
	assert.Error(t, err)
}

func TestLoadFile_BrokenYAML(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "broken.yaml"))
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "yaml", ce.Field)
}

func TestLoadFile_IncompleteCUE(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "incomplete.cue"))
	assert.Error(t, err)
}

func TestLoad_InvalidProgram(t *testing.T) {
	_, err := Load("inline.json", []byte(`{"version":"1","view":{"kind":"bogus"}}`), FormatJSON)
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "program", ce.Field)
	assert.Contains(t, err.Error(), "inline.json")
}

func TestToJSON_YAMLKeepsKeyOrder(t *testing.T) {
	src := []byte("z: 1\na: [true, null, \"s\"]\nm: {y: 2.5, b: x}\n")
	out, err := ToJSON("t.yaml", src, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":[true,null,"s"],"m":{"y":2.5,"b":"x"}}`, string(out))
}

func TestToJSON_YAMLAliases(t *testing.T) {
	src := []byte("base: &b {n: 1}\ncopy: *b\n")
	out, err := ToJSON("t.yaml", src, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, `{"base":{"n":1},"copy":{"n":1}}`, string(out))
}

func TestToJSON_YAMLEmptyDocument(t *testing.T) {
	out, err := ToJSON("t.yaml", nil, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}
