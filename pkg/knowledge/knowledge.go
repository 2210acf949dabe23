// Package knowledge loads the static public-information file consulted for
// informational intents.
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Base is the static knowledge base: a JSON document keyed by topic, read
// once at process start and immutable afterwards.
type Base struct {
	topics map[string]any
}

// Load reads the knowledge file. A missing file yields an empty base, not
// an error; the engine still answers from the database without it.
func Load(path string, logger *zap.Logger) (*Base, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("knowledge file not found, starting with empty base",
				zap.String("path", path))
			return &Base{topics: map[string]any{}}, nil
		}
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}

	var topics map[string]any
	if err := json.Unmarshal(raw, &topics); err != nil {
		return nil, fmt.Errorf("parse knowledge file %s: %w", path, err)
	}

	logger.Info("loaded knowledge base",
		zap.String("path", path),
		zap.Int("topics", len(topics)))

	return &Base{topics: topics}, nil
}

// Empty creates a knowledge base with no topics.
func Empty() *Base {
	return &Base{topics: map[string]any{}}
}

// FromMap builds a base from an in-memory document, for tests.
func FromMap(topics map[string]any) *Base {
	if topics == nil {
		topics = map[string]any{}
	}
	return &Base{topics: topics}
}

// Topic returns the value stored under a topic name.
func (b *Base) Topic(name string) (any, bool) {
	v, ok := b.topics[name]
	return v, ok
}

// StateCounts returns a topic as label->count pairs if it has that shape,
// e.g. the per-state membership breakdown. JSON numbers arrive as float64.
func (b *Base) StateCounts(name string) (map[string]float64, bool) {
	v, ok := b.topics[name]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}

	counts := make(map[string]float64, len(m))
	for k, raw := range m {
		n, ok := raw.(float64)
		if !ok {
			return nil, false
		}
		counts[k] = n
	}
	return counts, true
}

// Len returns the number of loaded topics.
func (b *Base) Len() int {
	return len(b.topics)
}
