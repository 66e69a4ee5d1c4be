// Package info resolves the block type and MCU family of blocks that were
// discovered by ID alone.
package info

import (
	"context"
	"errors"
	"fmt"

	"github.com/bryangrimes/node-cubelets/device"
)

// Info is what a lookup reports for one block.
type Info struct {
	ID     uint32
	TypeID int
	MCUID  int
}

// BlockType maps TypeID to a device.BlockType.
func (i Info) BlockType() device.BlockType { return device.TypeForID(i.TypeID) }

// MCU maps MCUID to a device.MCUType.
func (i Info) MCU() device.MCUType { return device.MCUForID(i.MCUID) }

// Apply copies the resolved fields onto d.
func (i Info) Apply(d device.Device) device.Device {
	d.Type = i.BlockType()
	d.MCU = i.MCU()
	return d
}

// Resolver looks up blocks by ID. Resolve calls report once per block it
// could resolve, in any order, and returns when the lookup is complete.
// Blocks it has no answer for are simply not reported.
type Resolver interface {
	Resolve(ctx context.Context, ids []uint32, report func(Info)) error
}

// ErrNotFound is returned by Lookup for an ID the resolver did not report.
var ErrNotFound = errors.New("info: block not found")

// Lookup resolves a single ID.
func Lookup(ctx context.Context, r Resolver, id uint32) (Info, error) {
	var (
		out   Info
		found bool
	)
	err := r.Resolve(ctx, []uint32{id}, func(i Info) {
		if i.ID == id {
			out, found = i, true
		}
	})
	if err != nil {
		return Info{}, err
	}
	if !found {
		return Info{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return out, nil
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, ids []uint32, report func(Info)) error

func (f ResolverFunc) Resolve(ctx context.Context, ids []uint32, report func(Info)) error {
	return f(ctx, ids, report)
}
