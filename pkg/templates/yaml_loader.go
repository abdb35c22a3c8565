package templates

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk shape of a template catalog.
type catalogFile struct {
	Templates []Template `yaml:"templates"`
}

// LoadYAML reads template definitions from the reader and stores them in the
// catalog. Each template is validated; the first invalid definition aborts
// the load.
func LoadYAML(r io.Reader, catalog *MemoryCatalog) error {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return fmt.Errorf("decode template catalog: %w", err)
	}

	for i, t := range file.Templates {
		if err := catalog.Put(t); err != nil {
			return fmt.Errorf("template %d (%s): %w", i, t.Code, err)
		}
	}
	return nil
}

// LoadYAMLFile loads a template catalog from the given path.
func LoadYAMLFile(path string, catalog *MemoryCatalog) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open template catalog: %w", err)
	}
	defer f.Close()

	return LoadYAML(f, catalog)
}
