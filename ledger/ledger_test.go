package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	t0 := time.UnixMilli(1_700_000_000_000)

	if err := s.BeginSession(ctx, "a", "classic", t0); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if err := s.BeginSession(ctx, "b", "bootstrap", t0.Add(time.Minute)); err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if err := s.EndSession(ctx, "a", t0.Add(30*time.Second), nil); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if err := s.EndSession(ctx, "b", t0.Add(2*time.Minute), errors.New("block failed to reset")); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	sessions, err := s.Sessions(ctx, 0)
	if err != nil {
		t.Fatalf("Sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if sessions[0].ID != "b" || sessions[0].Outcome != OutcomeFailed || sessions[0].Error != "block failed to reset" {
		t.Errorf("newest session = %+v", sessions[0])
	}
	if sessions[1].Outcome != OutcomeOK || !sessions[1].FinishedAt.Equal(t0.Add(30*time.Second)) {
		t.Errorf("oldest session = %+v", sessions[1])
	}

	limited, err := s.Sessions(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("Sessions(1) = %d, %v", len(limited), err)
	}
}

func TestEndUnknownSession(t *testing.T) {
	s := openTest(t)
	err := s.EndSession(context.Background(), "missing", time.Now(), nil)
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("error = %v, want ErrNoSession", err)
	}
}

func TestFlashes(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	t0 := time.UnixMilli(1_700_000_000_000)
	if err := s.BeginSession(ctx, "run", "classic", t0); err != nil {
		t.Fatal(err)
	}

	flashes := []Flash{
		{SessionID: "run", DeviceID: 0x0A0B0C, BlockType: "bluetooth", Role: "bootstrap", StartedAt: t0, Duration: 1500 * time.Millisecond, Outcome: OutcomeOK},
		{SessionID: "run", DeviceID: 0x112233, BlockType: "drive", Role: "bootstrap", HopCount: 1, StartedAt: t0.Add(time.Second), Duration: time.Second, Outcome: OutcomeFailed, Error: "timeout"},
		{SessionID: "run", DeviceID: 0x112233, BlockType: "drive", Role: "application", HopCount: 1, StartedAt: t0.Add(2 * time.Second), Duration: time.Second, Outcome: OutcomeOK},
	}
	for _, f := range flashes {
		if err := s.RecordFlash(ctx, f); err != nil {
			t.Fatalf("RecordFlash: %v", err)
		}
	}

	got, err := s.Flashes(ctx, "run")
	if err != nil {
		t.Fatalf("Flashes: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("flashes = %d, want 3", len(got))
	}
	if got[0].Duration != 1500*time.Millisecond || got[0].DeviceID != 0x0A0B0C {
		t.Errorf("first flash = %+v", got[0])
	}

	history, err := s.DeviceHistory(ctx, 0x112233)
	if err != nil {
		t.Fatalf("DeviceHistory: %v", err)
	}
	if len(history) != 2 || history[0].Error != "timeout" || history[1].Role != "application" {
		t.Errorf("history = %+v", history)
	}
}

func TestFlashRequiresSession(t *testing.T) {
	s := openTest(t)
	err := s.RecordFlash(context.Background(), Flash{SessionID: "nope", BlockType: "drive", Role: "bootstrap", Outcome: OutcomeOK})
	if err == nil {
		t.Error("flash without session accepted")
	}
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	if err := Nop.BeginSession(ctx, "x", "classic", time.Now()); err != nil {
		t.Error(err)
	}
	if err := Nop.RecordFlash(ctx, Flash{}); err != nil {
		t.Error(err)
	}
	if err := Nop.EndSession(ctx, "x", time.Now(), nil); err != nil {
		t.Error(err)
	}
}
