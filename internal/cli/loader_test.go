package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPrograms(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.cue", "a.json", "notes.txt", "sub/c.yml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}

	files, err := FindPrograms([]string{"testdata/programs/counter.json", dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"testdata/programs/counter.json",
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "b.cue"),
		filepath.Join(dir, "sub", "c.yml"),
	}, files)
}

func TestFindPrograms_Errors(t *testing.T) {
	tests := []struct {
		name     string
		paths    []string
		wantCode string
	}{
		{"missing", []string{"testdata/none"}, ErrCodeNotFound},
		{"empty_dir", []string{t.TempDir()}, ErrCodeNoFiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindPrograms(tt.paths)
			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.wantCode, le.Code)
		})
	}
}

func TestLoadProgram(t *testing.T) {
	p, err := LoadProgram("testdata/programs/prefs.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"theme", "restored"}, p.State.Names())

	_, err = LoadProgram("testdata/programs/broken.yaml")
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeLoadFailed, le.Code)
	assert.Equal(t, "testdata/programs/broken.yaml", le.Path)

	_, err = LoadProgram("testdata/programs/missing.json")
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNotFound, le.Code)
}
