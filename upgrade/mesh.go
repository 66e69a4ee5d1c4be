package upgrade

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bryangrimes/node-cubelets/catalog"
	"github.com/bryangrimes/node-cubelets/client"
	"github.com/bryangrimes/node-cubelets/device"
	"github.com/bryangrimes/node-cubelets/info"
	"github.com/bryangrimes/node-cubelets/internal/sequence"
	"github.com/bryangrimes/node-cubelets/protocol"
)

// upgradeBlocks repeats discovery iterations until Finish is called. Failed
// iterations are reported and retried. A closed link ends the loop, and so
// does a run of MaxIterationFailures failures when that limit is set.
func (o *Orchestrator) upgradeBlocks(ctx context.Context) error {
	failures := 0
	for !o.finished.Load() {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := o.iterate(ctx)
		if err == nil {
			failures = 0
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, client.ErrClosed) {
			return err
		}

		failures++
		o.setTarget(nil)
		o.log.Error("mesh iteration failed", "failures", failures, "error", err)
		o.notify(Notification{Kind: KindError, Err: err})
		if limit := o.timings.MaxIterationFailures; limit > 0 && failures >= limit {
			return &IterationError{Failures: failures, Err: err}
		}
	}
	return nil
}

// iterate runs one discovery pass and upgrades at most one block. Blocks
// still on CLASSIC firmware take precedence over IMAGO blocks waiting in
// their bootloader.
func (o *Orchestrator) iterate(ctx context.Context) error {
	faces, err := o.scanFaces(ctx)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.pending = nil
	o.mu.Unlock()
	o.notify(Notification{Kind: KindPendingChanged})

	var classic, imago bool
	for _, f := range faces {
		if f.Firmware == protocol.FirmwareImago {
			imago = true
		} else {
			classic = true
		}
	}
	switch {
	case classic:
		return o.upgradeClassic(ctx)
	case imago:
		return o.upgradeImago(ctx)
	default:
		return nil
	}
}

// scanFaces enters discovery and collects announced faces until the
// settle time passes.
func (o *Orchestrator) scanFaces(ctx context.Context) ([]Face, error) {
	o.notify(Notification{Kind: KindScanStarted})

	sub := o.link.Subscribe()
	defer sub.Close()

	seen := make(map[int]byte)
	found, err := o.link.JumpToDiscovery(ctx,
		client.WithDiscoveryDelay(o.timings.DiscoveryDelay),
		client.WithDiscoveryTimeout(o.timings.DiscoveryTimeout),
	)
	if err != nil {
		return nil, err
	}
	if found != nil {
		seen[found.Face] = found.Firmware
	}

	settle, cancel := context.WithTimeout(ctx, o.timings.Settle)
	defer cancel()
	for {
		e, err := sub.Next(settle, "block found", 0, client.MessageOf[*protocol.BlockFoundEvent](nil))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return nil, err
		}
		bf := e.Message.(*protocol.BlockFoundEvent)
		seen[bf.Face] = bf.Firmware
	}

	faces := make([]Face, 0, len(seen))
	for idx, fw := range seen {
		faces = append(faces, Face{Index: idx, Firmware: fw})
	}
	sort.Slice(faces, func(i, j int) bool { return faces[i].Index < faces[j].Index })

	o.log.Debug("faces scanned", "count", len(faces))
	o.notify(Notification{Kind: KindFacesScanned, Faces: faces})
	return faces, nil
}

// upgradeClassic takes one CLASSIC neighbor through the bootstrap image and
// then the imago application.
func (o *Orchestrator) upgradeClassic(ctx context.Context) error {
	if err := o.link.JumpToClassic(ctx); err != nil {
		return err
	}
	if err := sequence.Wait(ctx, o.timings.ClassicSettle); err != nil {
		return err
	}

	resp, err := o.link.Request(ctx, &protocol.ClassicNeighborsRequest{})
	if err != nil {
		return err
	}
	r, ok := resp.(*protocol.ClassicNeighborsResponse)
	if !ok {
		return fmt.Errorf("unexpected response %T", resp)
	}

	var found []device.Device
	for _, face := range r.Neighbors.Faces() {
		d := device.New(r.Neighbors[face], 1, device.Unknown)
		d.Face = face
		found = append(found, d)
	}
	o.enqueue(found)
	o.resolveUnknown(ctx)

	target, ok := o.dequeue()
	if !ok {
		o.noTarget()
		return nil
	}

	if err := o.flashDevice(ctx, target, catalog.RoleBootstrap); err != nil {
		return err
	}
	if err := o.awaitImagoFace(ctx, target.Face); err != nil {
		return err
	}
	if err := o.link.JumpToImago(ctx); err != nil {
		return err
	}
	if err := o.flashDevice(ctx, target, catalog.RoleApplication); err != nil {
		return err
	}
	o.complete(target)
	return nil
}

// awaitImagoFace re-enters discovery and waits until face reports imago
// firmware.
func (o *Orchestrator) awaitImagoFace(ctx context.Context, face int) error {
	sub := o.link.Subscribe()
	defer sub.Close()

	found, err := o.link.JumpToDiscovery(ctx,
		client.WithDiscoveryDelay(o.timings.DiscoveryDelay),
		client.WithDiscoveryTimeout(o.timings.DiscoveryTimeout),
	)
	if err != nil {
		return err
	}
	if found != nil && found.Face == face && found.IsImago() {
		return nil
	}
	_, err = sub.Next(ctx, "imago bootloader", o.timings.TargetDiscoveryTimeout,
		client.MessageOf(func(e *protocol.BlockFoundEvent) bool { return e.Face == face && e.IsImago() }))
	return err
}

// upgradeImago flashes the imago application onto one block waiting in its
// bootloader.
func (o *Orchestrator) upgradeImago(ctx context.Context) error {
	if err := o.link.JumpToImago(ctx); err != nil {
		return err
	}
	resp, err := o.link.Request(ctx, &protocol.ImagoNeighborsRequest{})
	if err != nil {
		return err
	}
	r, ok := resp.(*protocol.ImagoNeighborsResponse)
	if !ok {
		return fmt.Errorf("unexpected response %T", resp)
	}

	var found []device.Device
	for _, face := range r.Neighbors.Faces() {
		id := r.Neighbors[face]
		cresp, err := o.link.Request(ctx, &protocol.GetConfigurationRequest{ID: id})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.notify(Notification{Kind: KindError, Err: fmt.Errorf("configuration of %d: %w", id, err)})
			continue
		}
		cfg, ok := cresp.(*protocol.GetConfigurationResponse)
		if !ok || !cfg.InBootloader() {
			continue
		}
		d := device.New(id, 1, device.TypeForID(int(cfg.BlockType)))
		d.MCU = device.MCUForID(int(cfg.MCU))
		d.Face = face
		d.HardwareVersion = cfg.HardwareVersion
		d.BootloaderVersion = cfg.BootloaderVersion
		d.ApplicationVersion = cfg.ApplicationVersion
		found = append(found, d)
	}
	o.enqueue(found)
	o.resolveUnknown(ctx)

	target, ok := o.dequeue()
	if !ok {
		if len(found) > 0 {
			o.noTarget()
		}
		return nil
	}

	if err := o.flashDevice(ctx, target, catalog.RoleApplication); err != nil {
		return err
	}
	o.complete(target)
	return nil
}

// enqueue puts newly discovered blocks at the front of the pending list,
// skipping blocks already pending or completed.
func (o *Orchestrator) enqueue(found []device.Device) {
	o.mu.Lock()
	known := make(map[uint32]bool, len(o.pending)+len(o.completed))
	for _, d := range o.pending {
		known[d.ID] = true
	}
	for _, d := range o.completed {
		known[d.ID] = true
	}
	var fresh []device.Device
	for _, d := range found {
		if !known[d.ID] {
			known[d.ID] = true
			fresh = append(fresh, d)
		}
	}
	if len(fresh) == 0 {
		o.mu.Unlock()
		return
	}
	o.pending = append(fresh, o.pending...)
	pending := append([]device.Device(nil), o.pending...)
	o.mu.Unlock()

	o.notify(Notification{Kind: KindPendingChanged, Pending: pending})
}

// resolveUnknown fills in the type of pending blocks through the info
// resolver. Lookup failures are reported and never fatal.
func (o *Orchestrator) resolveUnknown(ctx context.Context) {
	if o.resolver == nil {
		return
	}
	o.mu.Lock()
	var ids []uint32
	for _, d := range o.pending {
		if !d.Resolved() {
			ids = append(ids, d.ID)
		}
	}
	o.mu.Unlock()
	if len(ids) == 0 {
		return
	}

	changed := false
	err := o.resolver.Resolve(ctx, ids, func(i info.Info) {
		o.mu.Lock()
		defer o.mu.Unlock()
		for n, d := range o.pending {
			if d.ID == i.ID && !d.Resolved() {
				o.pending[n] = i.Apply(d)
				changed = true
			}
		}
	})
	if err != nil {
		lerr := &InfoLookupError{IDs: ids, Err: err}
		o.log.Error("info lookup failed", "error", lerr)
		o.notify(Notification{Kind: KindError, Err: lerr})
	}
	if changed {
		o.notify(Notification{Kind: KindPendingChanged, Pending: o.Pending()})
	}
}

// dequeue moves the first pending block with a known type to the target
// slot and returns it.
func (o *Orchestrator) dequeue() (device.Device, bool) {
	o.mu.Lock()
	var (
		out   device.Device
		found bool
	)
	for i, d := range o.pending {
		if d.Resolved() {
			out, found = d, true
			o.pending = append(o.pending[:i:i], o.pending[i+1:]...)
			cp := d
			o.target = &cp
			break
		}
	}
	pending := append([]device.Device(nil), o.pending...)
	o.mu.Unlock()

	if found {
		o.notify(Notification{Kind: KindPendingChanged, Pending: pending})
		o.notify(Notification{Kind: KindTargetChanged, Device: &out})
	}
	return out, found
}

// noTarget reports an iteration that found blocks but could not resolve the
// type of any of them.
func (o *Orchestrator) noTarget() {
	o.setTarget(nil)
	pending := o.Pending()
	o.log.Info("no pending block has a known type", "pending", len(pending))
	o.notify(Notification{Kind: KindNoTarget, Pending: pending})
}

func (o *Orchestrator) setTarget(d *device.Device) {
	o.mu.Lock()
	if o.target == nil && d == nil {
		o.mu.Unlock()
		return
	}
	if d != nil {
		cp := *d
		d = &cp
	}
	o.target = d
	o.mu.Unlock()
	o.notify(Notification{Kind: KindTargetChanged, Device: d})
}

func (o *Orchestrator) complete(d device.Device) {
	o.mu.Lock()
	o.completed = append([]device.Device{d}, o.completed...)
	o.mu.Unlock()
	o.log.Info("block upgraded", "device", d.ID, "type", d.Type.String())
	o.notify(Notification{Kind: KindBlockCompleted, Device: &d})
	o.setTarget(nil)
}
