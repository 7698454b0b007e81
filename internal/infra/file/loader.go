// Package file loads quiz catalogs from YAML or JSON documents on disk.
package file

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"timed-quiz-service/internal/domain"
)

//go:embed catalog.schema.json
var schemaJSON []byte

//go:embed sample/*.yaml
var sampleFS embed.FS

const schemaURL = "schema://catalog.json"

var extensions = []string{".yaml", ".yml", ".json"}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Loader reads catalogs named {id}.yaml, {id}.yml or {id}.json from a directory.
type Loader struct {
	dir string
}

func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// LoadCatalog implements memory.CatalogLoader.
func (l *Loader) LoadCatalog(_ context.Context, catalogID string) (domain.Catalog, error) {
	if catalogID == "" || strings.ContainsAny(catalogID, `/\`) || strings.HasPrefix(catalogID, ".") {
		return domain.Catalog{}, domain.ErrCatalogNotFound
	}
	for _, ext := range extensions {
		p := filepath.Join(l.dir, catalogID+ext)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		return LoadFile(p)
	}
	return domain.Catalog{}, domain.ErrCatalogNotFound
}

// Files lists catalog documents in the directory, sorted by name.
func (l *Loader) Files() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isCatalogFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(l.dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// LoadAll parses every catalog in the directory. Invalid files are reported
// together in the returned error; valid ones are still returned.
func (l *Loader) LoadAll() ([]domain.Catalog, error) {
	files, err := l.Files()
	if err != nil {
		return nil, err
	}
	var (
		catalogs []domain.Catalog
		errs     []error
	)
	for _, f := range files {
		c, err := LoadFile(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		catalogs = append(catalogs, c)
	}
	return catalogs, errors.Join(errs...)
}

// LoadFile parses a single catalog document. A missing id defaults to the file stem.
func LoadFile(p string) (domain.Catalog, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read %s: %w", p, err)
	}
	c, err := Parse(data, stem(p))
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("%s: %w", p, err)
	}
	return c, nil
}

// Parse decodes a YAML or JSON catalog, checks it against the catalog schema,
// then applies the domain invariants.
func Parse(data []byte, defaultID string) (domain.Catalog, error) {
	var doc any
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return domain.Catalog{}, fmt.Errorf("%w: decode: %v", domain.ErrInvalidCatalog, err)
	}

	// Round-trip through JSON so the validator sees plain JSON values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}
	var inst any
	if err := json.Unmarshal(raw, &inst); err != nil {
		return domain.Catalog{}, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}

	schema, err := catalogSchema()
	if err != nil {
		return domain.Catalog{}, err
	}
	if err := schema.Validate(inst); err != nil {
		return domain.Catalog{}, fmt.Errorf("%w: schema: %v", domain.ErrInvalidCatalog, err)
	}

	var c domain.Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return domain.Catalog{}, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}
	if c.ID == "" {
		c.ID = defaultID
	}
	if err := c.Validate(); err != nil {
		return domain.Catalog{}, err
	}
	return c, nil
}

// SampleCatalogs returns the built-in catalogs served when nothing else is configured.
func SampleCatalogs() (map[string]domain.Catalog, error) {
	entries, err := fs.ReadDir(sampleFS, "sample")
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Catalog, len(entries))
	for _, e := range entries {
		name := path.Join("sample", e.Name())
		data, err := sampleFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		c, err := Parse(data, stem(name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[c.ID] = c
	}
	return out, nil
}

func catalogSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse catalog schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add catalog schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

func isCatalogFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
