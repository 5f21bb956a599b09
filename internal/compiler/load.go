package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/islet/internal/ir"
)

// Format is a program source format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatOf returns the source format implied by a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported program file %q: want .json, .yaml, .yml or .cue", path)
	}
}

// CompileError is a load failure with a source position when one is known.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	Line    int // YAML sources carry a line but no token.Pos
	File    string
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Field, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadFile reads and decodes the program at path.
func LoadFile(path string) (*ir.Program, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return Load(path, data, format)
}

// Load decodes a program from data in the given format. name labels
// error positions.
func Load(name string, data []byte, format Format) (*ir.Program, error) {
	raw, err := ToJSON(name, data, format)
	if err != nil {
		return nil, err
	}
	p, err := ir.DecodeProgram(raw)
	if err != nil {
		return nil, &CompileError{Field: "program", Message: err.Error(), File: name}
	}
	return p, nil
}

// ToJSON converts a program source to JSON, preserving object key order.
func ToJSON(name string, data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return data, nil
	case FormatYAML:
		return yamlToJSON(name, data)
	case FormatCUE:
		return cueToJSON(name, data)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func cueToJSON(name string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	out, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	return out, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

func yamlToJSON(name string, data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error(), File: name}
	}
	if doc.Kind == 0 {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	if err := writeYAMLNode(&buf, &doc, name); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeYAMLNode writes n as JSON. Mappings keep their source key order.
func writeYAMLNode(buf *bytes.Buffer, n *yaml.Node, name string) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeYAMLNode(buf, n.Content[0], name)

	case yaml.AliasNode:
		return writeYAMLNode(buf, n.Alias, name)

	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeYAMLNode(buf, n.Content[i+1], name); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeYAMLNode(buf, item, name); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return &CompileError{Field: "yaml", Message: err.Error(), Line: n.Line, File: name}
		}
		out, err := json.Marshal(v)
		if err != nil {
			return &CompileError{
				Field:   "yaml",
				Message: fmt.Sprintf("value %q has no JSON form", n.Value),
				Line:    n.Line,
				File:    name,
			}
		}
		buf.Write(out)
		return nil

	default:
		return &CompileError{Field: "yaml", Message: "unexpected node", Line: n.Line, File: name}
	}
}
