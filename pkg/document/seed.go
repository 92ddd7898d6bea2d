package document

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mercator-hq/custodian/pkg/lifecycle"
)

// SeedFile is a YAML list of documents used to populate a store.
type SeedFile struct {
	Documents []lifecycle.Document `yaml:"documents"`
}

// LoadSeed reads documents from a YAML seed file and writes them to store.
// Documents without a state start as active. It returns the number of
// documents written.
func LoadSeed(ctx context.Context, store Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	for i := range seed.Documents {
		doc := seed.Documents[i]
		if doc.ID == "" {
			return i, fmt.Errorf("seed document %d has no id", i)
		}
		if doc.State == "" {
			doc.State = lifecycle.StateActive
		}
		if err := store.Put(ctx, &doc); err != nil {
			return i, err
		}
	}
	return len(seed.Documents), nil
}
