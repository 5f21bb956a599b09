package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/roach88/islet/internal/compiler"
	"github.com/roach88/islet/internal/dom"
	"github.com/roach88/islet/internal/ir"
	"github.com/roach88/islet/internal/store"
)

// LoadError represents an error that occurred while locating or loading
// a program.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Line    int // 1-based line of a syntax error, 0 if unknown
	Err     error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.Path, e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// FindPrograms expands paths into program files. Files are taken as
// given; directories contribute every .json, .yaml, .yml and .cue file
// below them in lexical order.
func FindPrograms(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Path: p, Message: "no such file or directory", Err: err}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Path: p, Message: err.Error(), Err: err}
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if _, ferr := compiler.FormatOf(path); ferr == nil {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Path: p, Message: err.Error(), Err: err}
		}
		slices.Sort(found)
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Path: fmt.Sprint(paths), Message: "no program files found"}
	}
	return files, nil
}

// LoadProgram loads one program file, converting compiler errors into
// a LoadError that carries the offending line.
func LoadProgram(path string) (*ir.Program, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "no such file", Err: err}
	}
	p, err := compiler.LoadFile(path)
	if err != nil {
		le := &LoadError{Code: ErrCodeLoadFailed, Path: path, Message: err.Error(), Err: err}
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			le.Message = ce.Message
			le.Line = ce.Line
			if ce.Pos.IsValid() {
				le.Line = ce.Pos.Line()
			}
		}
		return nil, le
	}
	return p, nil
}

// programHash hashes the canonical JSON form of a program file, so the
// same program hashes alike in every source format.
func programHash(path string) (string, error) {
	format, err := compiler.FormatOf(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	raw, err := compiler.ToJSON(path, data, format)
	if err != nil {
		return "", err
	}
	return ir.ProgramHash(raw)
}

// openStorage returns the storage area named by cfg. With no database
// path configured the area lives in memory.
func openStorage(ctx context.Context, cfg StorageConfig) (dom.Storage, func(), error) {
	if cfg.Path == "" {
		return dom.NewMemoryStorage(), func() {}, nil
	}
	s, err := store.Open(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	name := cfg.Bucket
	if name == "" {
		name = "default"
	}
	b, err := s.Bucket(ctx, name)
	if err != nil {
		s.Close()
		return nil, nil, fmt.Errorf("open bucket %q: %w", name, err)
	}
	return b, func() { s.Close() }, nil
}
