package route

import (
	"encoding/json"
	"fmt"
	"os"
)

// ParseQueryFile reads and parses a path query JSON file
func ParseQueryFile(path string) (*Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParseQueryJSON(data)
}

// ParseQueryJSON parses path query JSON data
func ParseQueryJSON(data []byte) (*Query, error) {
	var q Query
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("parsing query JSON: %w", err)
	}
	return &q, nil
}

// ParseLayoutFile reads and parses a habitat layout JSON file
func ParseLayoutFile(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return ParseLayoutJSON(data)
}

// ParseLayoutJSON parses habitat layout JSON data
func ParseLayoutJSON(data []byte) (*Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing layout JSON: %w", err)
	}
	return &l, nil
}

// ResolveQuery fills geometry the query omits from the current layout.
// Geometry carried by the query always wins.
func ResolveQuery(q Query, current Layout) Query {
	if q.Envelope == nil && current.Envelope.Shape != "" {
		env := current.Envelope
		q.Envelope = &env
	}
	if q.Obstacles == nil {
		q.Obstacles = current.Clone().Obstacles
	}
	return q
}
