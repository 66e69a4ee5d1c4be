package flash

import (
	"context"
	"errors"

	"github.com/bryangrimes/node-cubelets/client"
	"github.com/bryangrimes/node-cubelets/device"
	"github.com/bryangrimes/node-cubelets/internal/sequence"
	"github.com/bryangrimes/node-cubelets/protocol"
)

// Host sessions report upload as the first half and the host's own flash
// write as the second half.
const hostParts = 2

// lineFactor converts a flash progress event into written lines.
const lineFactor = 20

func (s *session) hostSteps() []sequence.Step {
	sum := s.prog.Checksum()
	return sequence.Concat(
		sequence.When(s.reset, s.resetSteps()...),
		sequence.When(s.automap, s.send(StageAutomap, disableAutomap)),
		[]sequence.Step{
			s.expect(StageReady, '4', readyCommand),
			s.expect(StageChecksum, 'R', []byte{'8', sum.XOR, sum.Sum}),
			{Name: string(StageUpload), Run: s.upload},
			sequence.Sleep("commit delay", s.f.config.CommitDelay),
			{Name: string(StageCommit), Run: s.commit},
		},
		sequence.When(s.f.config.SafeCheck,
			s.settle(),
			sequence.Step{Name: string(StageSafeCheck), Run: func(ctx context.Context) error {
				s.report(PhaseVerify, 0, 1, s.percent)
				s.f.link.SetRawMode(true)
				return s.awaitStatus(ctx, StageSafeCheck, 'Z', s.write(safeCheck))
			}},
		),
		sequence.When(s.reset, s.settle()),
		sequence.When(s.reset, s.resetSteps()...),
	)
}

// upload streams the image in chunks, pausing between them so the host's
// receive buffer never overflows. The last chunk is acknowledged with 'Y'.
func (s *session) upload(ctx context.Context) error {
	chunks := s.prog.Chunks(s.f.config.ChunkSize)
	total := s.prog.Len()
	sent := 0
	for i, chunk := range chunks {
		chunk := chunk
		send := func() error {
			if err := s.f.link.WriteRaw(chunk); err != nil {
				return err
			}
			sent += len(chunk)
			s.report(PhaseUpload, sent, total, blend(sent, total, 1, hostParts))
			return nil
		}
		if i == len(chunks)-1 {
			return s.awaitStatus(ctx, StageUpload, 'Y', send)
		}
		if err := send(); err != nil {
			return s.f.stageError(StageUpload, 0, err)
		}
		if err := sequence.Wait(ctx, s.f.config.ChunkDelay); err != nil {
			return s.f.stageError(StageUpload, 0, err)
		}
	}
	return nil
}

// commit asks the host to write the uploaded image and waits for it to
// finish. AVR hosts first confirm the target ID with 'R' and then take the
// page geometry.
func (s *session) commit(ctx context.Context) error {
	id, err := protocol.EncodeID(s.dev.ID)
	if err != nil {
		return s.f.stageError(StageCommit, 0, err)
	}
	var cmd []byte
	switch s.dev.MCU {
	case device.MCUAVR:
		if err := s.awaitStatus(ctx, StageCommit, 'R', s.write([]byte{'W', id[0], id[1], id[2]})); err != nil {
			return err
		}
		cmd = []byte{'M', id[0], id[1], id[2], byte(s.prog.PageCount()), byte(s.prog.LastPageSize())}
	default:
		cmd = []byte{'L', id[0], id[1], id[2]}
	}
	return s.awaitFlash(ctx, cmd)
}

// awaitFlash sends the commit command in framed mode and follows the
// host's flash progress events until the terminal complete event. Each
// progress event restarts FlashTimeout; FlashCeiling bounds the whole wait.
func (s *session) awaitFlash(ctx context.Context, cmd []byte) error {
	sub := s.f.link.Subscribe()
	defer sub.Close()

	s.f.link.SetRawMode(false)
	if err := s.f.link.WriteRaw(cmd); err != nil {
		return s.f.stageError(StageFlash, 0, err)
	}

	cctx, cancel := context.WithTimeout(ctx, s.f.config.FlashCeiling)
	defer cancel()

	total := s.prog.LineCount()
	s.report(PhaseFlash, 0, total, blend(0, total, 2, hostParts))
	match := client.Or(
		client.MessageOf[*protocol.FlashProgressEvent](nil),
		client.MessageOf[*protocol.FlashCompleteEvent](nil),
	)
	for {
		e, err := sub.Next(cctx, "flash progress", s.f.config.FlashTimeout, match)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				err = &client.TimeoutError{Op: "flash complete", Timeout: s.f.config.FlashCeiling}
			}
			return s.f.stageError(StageFlash, 0, err)
		}
		switch m := e.Message.(type) {
		case *protocol.FlashCompleteEvent:
			s.report(PhaseFlash, total, total, blend(total, total, 2, hostParts))
			return nil
		case *protocol.FlashProgressEvent:
			done := min(lineFactor*int(m.Progress), total)
			s.f.logDebug("flash progress", "device", s.dev.ID, "lines", done, "total", total)
			s.report(PhaseFlash, done, total, blend(done, total, 2, hostParts))
		}
	}
}
