// Package catalog maps a block type and firmware role to a parsed program.
//
// A catalog is described by a YAML manifest:
//
//	root: firmware
//	firmware:
//	  - type: bluetooth
//	    role: bootstrap
//	    path: bluetooth_bootstrap.hex
//	  - type: drive
//	    role: application
//	    path: applications/drive.hex
//	    page_size: 128
//
// Paths are relative to root, which is itself relative to the manifest.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bryangrimes/node-cubelets/device"
	"github.com/bryangrimes/node-cubelets/program"
	"gopkg.in/yaml.v3"
)

// Role is the part an image plays in an upgrade.
type Role string

const (
	// RoleBootstrap is the intermediate discovery firmware
	RoleBootstrap Role = "bootstrap"

	// RoleApplication is the final firmware
	RoleApplication Role = "application"
)

// ParseRole accepts "bootstrap" or "application" in any case.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleBootstrap, RoleApplication:
		return r, nil
	default:
		return "", fmt.Errorf("unknown firmware role %q", s)
	}
}

// Source yields programs for the upgrade orchestrator.
type Source interface {
	Program(t device.BlockType, role Role) (*program.Program, error)
}

// NotFoundError indicates that a source has no image for a type and role.
type NotFoundError struct {
	Type device.BlockType
	Role Role
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s firmware for %s blocks", e.Role, e.Type)
}

// Entry is one manifest line.
type Entry struct {
	Type     string `yaml:"type"`
	Role     string `yaml:"role"`
	Path     string `yaml:"path"`
	Version  string `yaml:"version,omitempty"`
	PageSize int    `yaml:"page_size,omitempty"`
}

// Manifest is the decoded YAML file.
type Manifest struct {
	Root     string  `yaml:"root"`
	Firmware []Entry `yaml:"firmware"`
}

type key struct {
	t    device.BlockType
	role Role
}

type image struct {
	entry   Entry
	path    string
	version device.Version
	prog    *program.Program
}

// Catalog is a manifest-backed Source. Images are parsed on first use and
// kept.
type Catalog struct {
	mu     sync.Mutex
	images map[key]*image
}

// Load reads the manifest at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	root := m.Root
	if !filepath.IsAbs(root) {
		root = filepath.Join(filepath.Dir(path), root)
	}
	return New(root, m.Firmware)
}

// New builds a catalog from entries whose paths are relative to root.
func New(root string, entries []Entry) (*Catalog, error) {
	c := &Catalog{images: make(map[key]*image, len(entries))}
	for n, e := range entries {
		t, err := device.TypeForName(e.Type)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", n, err)
		}
		role, err := ParseRole(e.Role)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", n, err)
		}
		if e.Path == "" {
			return nil, fmt.Errorf("manifest entry %d: missing path", n)
		}
		img := &image{entry: e, path: e.Path}
		if !filepath.IsAbs(img.path) {
			img.path = filepath.Join(root, img.path)
		}
		if e.Version != "" {
			if img.version, err = device.ParseVersion(e.Version); err != nil {
				return nil, fmt.Errorf("manifest entry %d: %w", n, err)
			}
		}
		k := key{t, role}
		if _, dup := c.images[k]; dup {
			return nil, fmt.Errorf("manifest entry %d: duplicate %s firmware for %s", n, role, t)
		}
		c.images[k] = img
	}
	return c, nil
}

// Program parses and returns the image for t and role.
func (c *Catalog) Program(t device.BlockType, role Role) (*program.Program, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.images[key{t, role}]
	if !ok {
		return nil, &NotFoundError{Type: t, Role: role}
	}
	if img.prog != nil {
		return img.prog, nil
	}
	var opts []program.Option
	if img.entry.PageSize > 0 {
		opts = append(opts, program.WithPageSize(img.entry.PageSize))
	}
	prog, err := program.Parse(img.path, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s %s firmware: %w", t, role, err)
	}
	img.prog = prog
	return prog, nil
}

// Version returns the declared version of an image, zero if none.
func (c *Catalog) Version(t device.BlockType, role Role) device.Version {
	c.mu.Lock()
	defer c.mu.Unlock()
	if img, ok := c.images[key{t, role}]; ok {
		return img.version
	}
	return device.Version{}
}

// Listing describes one catalog image.
type Listing struct {
	Type    device.BlockType
	Role    Role
	Path    string
	Version device.Version
}

// List returns every image, ordered by type then role.
func (c *Catalog) List() []Listing {
	c.mu.Lock()
	out := make([]Listing, 0, len(c.images))
	for k, img := range c.images {
		out = append(out, Listing{Type: k.t, Role: k.role, Path: img.path, Version: img.version})
	}
	c.mu.Unlock()
	sortListings(out)
	return out
}
