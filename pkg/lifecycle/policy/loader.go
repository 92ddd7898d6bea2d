package policy

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mercator-hq/custodian/pkg/lifecycle"
)

// File is the on-disk layout of a policy file.
type File struct {
	Policies []lifecycle.RetentionPolicy `yaml:"policies"`

	// Validity overrides entries of the built-in validity rule table.
	Validity map[lifecycle.Category]int `yaml:"validity"`
}

// Parse decodes a policy file. Unknown fields are rejected so typos in
// threshold names surface as configuration errors.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		// An empty file decodes to io.EOF; treat it as no policies.
		if len(bytes.TrimSpace(data)) == 0 {
			return &File{}, nil
		}
		return nil, &lifecycle.ConfigError{Field: "file", Message: "failed to parse policy file", Cause: err}
	}
	return &f, nil
}

// LoadFile reads and parses a policy file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &lifecycle.ConfigError{Field: "file", Message: fmt.Sprintf("failed to read %s", path), Cause: err}
	}
	return Parse(data)
}

// Rules returns the default validity rules with the file's overrides applied.
func (f *File) Rules() lifecycle.ValidityRuleTable {
	return lifecycle.DefaultValidityRules().Merge(f.Validity)
}

// Snapshot builds a snapshot from the file contents.
func (f *File) Snapshot() *Snapshot {
	return NewSnapshot(f.Policies, f.Rules())
}

// LoadInto reads path and replaces the contents of store. The store is left
// untouched when the file is malformed or contradictory.
func LoadInto(store *Store, path string) error {
	f, err := LoadFile(path)
	if err != nil {
		return err
	}
	return store.Replace(f.Policies, f.Rules())
}
