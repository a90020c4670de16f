package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xraph/stepflow"
	"github.com/xraph/stepflow/workflow"
)

// Decode parses a YAML document without compiling it. Unknown fields are
// rejected.
func Decode(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", stepflow.ErrInvalidDefinition)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", stepflow.ErrInvalidDefinition, err)
	}
	return &doc, nil
}

// Parse decodes and compiles one YAML document.
func Parse(data []byte, reg *Registry) (*workflow.Definition, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Compile(doc, reg)
}

// Read parses a document from r.
func Read(r io.Reader, reg *Registry) (*workflow.Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("definition: read: %w", err)
	}
	return Parse(data, reg)
}

// Load parses the YAML file at path.
func Load(path string, reg *Registry) (*workflow.Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("definition: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("definition: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("definition: read %s: %w", path, err)
	}
	def, err := Parse(data, reg)
	if err != nil {
		return nil, fmt.Errorf("definition: %s: %w", path, err)
	}
	return def, nil
}

// LoadDir parses every *.yaml and *.yml file in dir, in file name order.
// A missing directory yields no definitions.
func LoadDir(dir string, reg *Registry) ([]*workflow.Definition, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("definition: read %s: %w", trimmed, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(trimmed, entry.Name()))
	}
	sort.Strings(paths)

	defs := make([]*workflow.Definition, 0, len(paths))
	for _, p := range paths {
		def, err := Load(p, reg)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
