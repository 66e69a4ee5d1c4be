package upgrade

import (
	"context"
	"errors"
	"fmt"

	"github.com/bryangrimes/node-cubelets/catalog"
	"github.com/bryangrimes/node-cubelets/client"
	"github.com/bryangrimes/node-cubelets/device"
	"github.com/bryangrimes/node-cubelets/internal/sequence"
	"github.com/bryangrimes/node-cubelets/protocol"
)

var errDisconnectFailed = errors.New("host reported disconnect failure")

// discoverHost asks the CLASSIC host for its own ID. The host is always a
// Bluetooth block with an AVR MCU.
func (o *Orchestrator) discoverHost(ctx context.Context) error {
	resp, err := o.link.Request(ctx, &protocol.ClassicNeighborsRequest{})
	if err != nil {
		return err
	}
	r, ok := resp.(*protocol.ClassicNeighborsResponse)
	if !ok {
		return fmt.Errorf("unexpected response %T", resp)
	}
	if r.Origin == 0 {
		return ErrHostNotFound
	}

	host := device.New(r.Origin, 0, device.Bluetooth)
	host.MCU = device.MCUAVR
	o.mu.Lock()
	o.host = &host
	o.mu.Unlock()

	o.log.Info("host found", "device", host.ID)
	o.notify(Notification{Kind: KindHostFound, Device: &host})
	return nil
}

func (o *Orchestrator) flashHostBootstrap(ctx context.Context) error {
	return o.flashHost(ctx, catalog.RoleBootstrap)
}

func (o *Orchestrator) flashHostApplication(ctx context.Context) error {
	return o.flashHost(ctx, catalog.RoleApplication)
}

func (o *Orchestrator) flashHost(ctx context.Context, role catalog.Role) error {
	host, ok := o.Host()
	if !ok {
		return ErrHostNotFound
	}
	return o.flashDevice(ctx, host, role)
}

// detectResetOrSkip waits for the host to come back after its bootstrap
// flash. Either the host announces that no reset is needed, or the link
// drops and returns with the host now answering as BOOTSTRAP. The first
// outcome to succeed wins.
func (o *Orchestrator) detectResetOrSkip(ctx context.Context) error {
	o.link.SetMode(protocol.ModeBootstrap)

	race, cancel := context.WithCancel(ctx)
	defer cancel()

	skipSub, resetSub := o.link.Subscribe(), o.link.Subscribe()
	defer skipSub.Close()
	defer resetSub.Close()

	type outcome struct {
		path string
		ok   bool
		err  error
	}
	results := make(chan outcome, 2)
	go func() {
		ok, err := o.awaitSkip(race, skipSub)
		results <- outcome{path: "skip", ok: ok, err: err}
	}()
	go func() {
		ok, err := o.awaitReset(race, resetSub)
		results <- outcome{path: "reset", ok: ok, err: err}
	}()

	won := ""
	var errs []error
	for i := 0; i < 2; i++ {
		r := <-results
		switch {
		case r.ok && won == "":
			won = r.path
			cancel()
		case r.err != nil && won == "":
			errs = append(errs, fmt.Errorf("%s: %w", r.path, r.err))
		}
	}

	if won != "" {
		o.log.Info("host ready after bootstrap", "path", won)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errors.Join(append([]error{ErrResetFailed}, errs...)...)
}

func (o *Orchestrator) awaitSkip(ctx context.Context, sub *client.Subscription) (bool, error) {
	_, err := sub.Next(ctx, "skip disconnect", o.timings.SkipTimeout, client.MessageOf[*protocol.SkipDisconnectEvent](nil))
	switch {
	case err == nil:
		return true, nil
	case client.IsTimeout(err), ctx.Err() != nil:
		return false, nil
	default:
		return false, err
	}
}

func (o *Orchestrator) awaitReset(ctx context.Context, sub *client.Subscription) (bool, error) {
	t := o.timings

	err := sequence.Retry(ctx, t.ResetAttempts, 0, func(ctx context.Context) error {
		e, err := sub.Next(ctx, "disconnect", t.ResetInterval,
			client.Or(client.Disconnected, client.MessageOf[*protocol.DisconnectFailedEvent](nil)))
		if err != nil {
			if ctx.Err() != nil {
				return sequence.Permanent(err)
			}
			return err
		}
		if e.Kind == client.EventMessage {
			o.notify(Notification{Kind: KindNeedDisconnect})
			return errDisconnectFailed
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil || client.IsTimeout(err) {
			return false, nil
		}
		return false, err
	}
	o.log.Info("host disconnected after bootstrap")

	err = sequence.Retry(ctx, t.ResetAttempts, 0, func(ctx context.Context) error {
		o.notify(Notification{Kind: KindNeedConnect})
		_, err := sub.Next(ctx, "reconnect", t.ResetInterval, client.Connected)
		if err != nil && ctx.Err() != nil {
			return sequence.Permanent(err)
		}
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		return false, err
	}
	o.log.Info("host reconnected after bootstrap")

	fw, err := o.DetectFirmwareType(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		return false, err
	}
	if fw != FirmwareBootstrap {
		return false, fmt.Errorf("host runs %s firmware after reset", fw)
	}
	return true, nil
}
