package history

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/uvalib/virgo4-history-suggestor-ws/suggest"
)

// Seed is the on-disk format used to preload a Memory store
type Seed struct {
	Entries []suggest.SearchResult `yaml:"entries"`
}

// LoadSeed reads a YAML seed file and adds its entries to the store
func (m *Memory) LoadSeed(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return fmt.Errorf("parse seed %s: %w", path, err)
	}

	skipped := 0
	for _, e := range seed.Entries {
		if err := m.Add(e); err != nil {
			skipped++
		}
	}

	log.Info().Msgf("loaded %d history entries from %s (%d skipped)", len(seed.Entries)-skipped, path, skipped)

	return nil
}

// SaveSeed writes every entry in the store to a YAML seed file
func (m *Memory) SaveSeed(path string) error {
	return WriteSeed(path, Seed{Entries: m.Entries()})
}

// WriteSeed writes seed to path as YAML
func WriteSeed(path string, seed Seed) error {
	b, err := yaml.Marshal(seed)
	if err != nil {
		return fmt.Errorf("encode seed: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write seed: %w", err)
	}

	return os.Rename(tmp, path)
}
