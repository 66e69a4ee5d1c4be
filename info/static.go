package info

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/bryangrimes/node-cubelets/device"
	"gopkg.in/yaml.v3"
)

// Static answers from a fixed table.
type Static struct {
	mu    sync.RWMutex
	table map[uint32]Info
}

// NewStatic returns a resolver over entries.
func NewStatic(entries ...Info) *Static {
	s := &Static{table: make(map[uint32]Info, len(entries))}
	for _, e := range entries {
		s.table[e.ID] = e
	}
	return s
}

// Add inserts or replaces an entry.
func (s *Static) Add(i Info) {
	s.mu.Lock()
	s.table[i.ID] = i
	s.mu.Unlock()
}

// Len returns the number of entries.
func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.table)
}

func (s *Static) Resolve(ctx context.Context, ids []uint32, report func(Info)) error {
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.mu.RLock()
		i, ok := s.table[id]
		s.mu.RUnlock()
		if ok {
			report(i)
		}
	}
	return nil
}

// tableFile is the on-disk layout read by LoadStatic:
//
//	blocks:
//	  - id: 0x112233
//	    type: drive
//	    mcu: pic
type tableFile struct {
	Blocks []struct {
		ID   uint32 `yaml:"id"`
		Type string `yaml:"type"`
		MCU  string `yaml:"mcu"`
	} `yaml:"blocks"`
}

// LoadStatic reads a YAML block table.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read info table: %w", err)
	}
	return ParseStatic(data)
}

// ParseStatic decodes a YAML block table.
func ParseStatic(data []byte) (*Static, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse info table: %w", err)
	}
	s := NewStatic()
	for n, b := range f.Blocks {
		if b.ID == 0 || b.ID > device.MaxID {
			return nil, fmt.Errorf("info table entry %d: invalid id %d", n, b.ID)
		}
		t, err := device.TypeForName(b.Type)
		if err != nil {
			return nil, fmt.Errorf("info table entry %d: %w", n, err)
		}
		m, err := device.MCUForName(b.MCU)
		if err != nil {
			return nil, fmt.Errorf("info table entry %d: %w", n, err)
		}
		s.Add(Info{ID: b.ID, TypeID: int(t), MCUID: int(m)})
	}
	return s, nil
}
