package flash

import (
	"context"

	"github.com/bryangrimes/node-cubelets/internal/sequence"
	"github.com/bryangrimes/node-cubelets/protocol"
)

func (s *session) targetSteps() []sequence.Step {
	return sequence.Concat(
		sequence.When(s.automap, s.send(StageAutomap, disableAutomap)),
		[]sequence.Step{
			{Name: string(StageTargetReady), Run: s.targetReady},
			{Name: string(StagePages), Run: s.pages},
			s.expect(StageEndOfTransfer, '@', endOfTransfer),
			s.settle(),
		},
		sequence.When(s.automap, s.send(StageAutomap, disableAutomap)),
		[]sequence.Step{
			{Name: string(StageTargetCommit), Run: func(ctx context.Context) error {
				s.report(PhaseCommit, 0, 1, s.percent)
				return s.awaitStatus(ctx, StageTargetCommit, '%', s.write(targetCommit))
			}},
		},
		sequence.When(s.reset, s.resetSteps()...),
	)
}

func (s *session) targetReady(ctx context.Context) error {
	id, err := protocol.EncodeID(s.dev.ID)
	if err != nil {
		return s.f.stageError(StageTargetReady, 0, err)
	}
	return s.awaitStatus(ctx, StageTargetReady, '!', s.write([]byte{'T', id[0], id[1], id[2]}))
}

// pages sends every page and waits for 'G' after each one.
func (s *session) pages(ctx context.Context) error {
	total := s.prog.PageCount()
	s.report(PhasePages, 0, total, blend(0, total, 1, 1))
	for i := 0; i < total; i++ {
		page, err := s.prog.EncodePage(i)
		if err != nil {
			return s.f.stageError(StagePages, 0, err)
		}
		if err := s.awaitStatus(ctx, StagePages, 'G', s.write(page)); err != nil {
			return err
		}
		s.report(PhasePages, i+1, total, blend(i+1, total, 1, 1))
	}
	return nil
}
