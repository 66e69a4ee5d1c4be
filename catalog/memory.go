package catalog

import (
	"sort"
	"sync"

	"github.com/bryangrimes/node-cubelets/device"
	"github.com/bryangrimes/node-cubelets/program"
)

// Memory is a Source over programs already in memory.
type Memory struct {
	mu    sync.RWMutex
	progs map[key]*program.Program
}

// NewMemory returns an empty in-memory source.
func NewMemory() *Memory {
	return &Memory{progs: make(map[key]*program.Program)}
}

// Add registers prog for t and role.
func (m *Memory) Add(t device.BlockType, role Role, prog *program.Program) *Memory {
	m.mu.Lock()
	m.progs[key{t, role}] = prog
	m.mu.Unlock()
	return m
}

func (m *Memory) Program(t device.BlockType, role Role) (*program.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.progs[key{t, role}]; ok {
		return p, nil
	}
	return nil, &NotFoundError{Type: t, Role: role}
}

func sortListings(l []Listing) {
	sort.Slice(l, func(i, j int) bool {
		if l[i].Type != l[j].Type {
			return l[i].Type < l[j].Type
		}
		return l[i].Role < l[j].Role
	})
}
