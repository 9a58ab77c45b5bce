package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/vitos/crypto_scalper/internal/domain"
)

// StrategyFile is the strategy.json shared by the bot and the strategist.
type StrategyFile struct {
	path string
}

func NewStrategyFile(path string) *StrategyFile {
	return &StrategyFile{path: path}
}

// LoadStrategy decodes the document over the defaults, so keys missing from
// an older file keep their default value.
func (f *StrategyFile) LoadStrategy() (*domain.Strategy, error) {
	raw, err := f.LoadRaw()
	if err != nil {
		return nil, err
	}
	s := domain.DefaultStrategy()
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrStrategyUnavailable, f.path, err)
	}
	return &s, nil
}

func (f *StrategyFile) LoadRaw() ([]byte, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStrategyUnavailable, err)
	}
	return raw, nil
}

func (f *StrategyFile) SaveRaw(doc []byte) error {
	if !json.Valid(doc) {
		return fmt.Errorf("refusing to write invalid JSON to %s", f.path)
	}
	return writeFileAtomic(f.path, doc)
}
