package correlation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FilePersister stores correlations as a JSON document on disk
type FilePersister struct {
	mu   sync.Mutex
	path string
}

// NewFilePersister creates a persister for path
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// LoadCorrelations reads the file; a missing file is an empty map
func (p *FilePersister) LoadCorrelations(ctx context.Context) (Correlations, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return Correlations{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p.path, err)
	}
	if len(data) == 0 {
		return Correlations{}, nil
	}

	c := Correlations{}
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", p.path, err)
	}
	return c, nil
}

// SaveCorrelations writes the file through a temp file and rename
func (p *FilePersister) SaveCorrelations(ctx context.Context, c Correlations) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("failed to create correlation directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode correlations: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write correlations: %w", err)
	}
	return os.Rename(tmp, p.path)
}
