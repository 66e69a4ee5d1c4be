package info

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bryangrimes/node-cubelets/device"
)

func TestStaticResolve(t *testing.T) {
	s := NewStatic(
		Info{ID: 1, TypeID: int(device.Drive), MCUID: int(device.MCUPIC)},
		Info{ID: 2, TypeID: int(device.Battery), MCUID: int(device.MCUAVR)},
	)
	got := map[uint32]Info{}
	if err := s.Resolve(context.Background(), []uint32{1, 2, 3}, func(i Info) { got[i.ID] = i }); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("reported %d, want 2", len(got))
	}
	if got[1].BlockType() != device.Drive || got[1].MCU() != device.MCUPIC {
		t.Errorf("block 1 = %+v", got[1])
	}
}

func TestLookup(t *testing.T) {
	s := NewStatic(Info{ID: 7, TypeID: int(device.Knob), MCUID: int(device.MCUAVR)})
	i, err := Lookup(context.Background(), s, 7)
	if err != nil || i.BlockType() != device.Knob {
		t.Errorf("Lookup(7) = %+v, %v", i, err)
	}
	if _, err := Lookup(context.Background(), s, 8); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(8) error = %v, want ErrNotFound", err)
	}
}

func TestApply(t *testing.T) {
	d := device.New(5, 1, device.Unknown)
	d = Info{ID: 5, TypeID: int(device.Rotate), MCUID: int(device.MCUPIC)}.Apply(d)
	if !d.Resolved() || d.Type != device.Rotate {
		t.Errorf("device = %v", d)
	}
}

func TestParseStatic(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    int
		wantErr bool
	}{
		{
			name: "valid",
			yaml: "blocks:\n  - id: 0x112233\n    type: drive\n    mcu: pic\n  - id: 42\n    type: Battery\n    mcu: AVR\n",
			want: 2,
		},
		{name: "empty", yaml: "", want: 0},
		{name: "unknown type", yaml: "blocks:\n  - id: 1\n    type: teapot\n    mcu: pic\n", wantErr: true},
		{name: "unknown mcu", yaml: "blocks:\n  - id: 1\n    type: drive\n    mcu: arm\n", wantErr: true},
		{name: "zero id", yaml: "blocks:\n  - id: 0\n    type: drive\n    mcu: pic\n", wantErr: true},
		{name: "malformed", yaml: "blocks: [", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseStatic([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && s.Len() != tt.want {
				t.Errorf("entries = %d, want %d", s.Len(), tt.want)
			}
		})
	}
}

func TestCached(t *testing.T) {
	calls := 0
	next := ResolverFunc(func(ctx context.Context, ids []uint32, report func(Info)) error {
		calls += len(ids)
		for _, id := range ids {
			report(Info{ID: id, TypeID: int(device.Drive), MCUID: int(device.MCUPIC)})
		}
		return nil
	})
	c := NewCached(next, time.Minute)
	ctx := context.Background()

	n := 0
	count := func(Info) { n++ }
	if err := c.Resolve(ctx, []uint32{1, 2}, count); err != nil {
		t.Fatal(err)
	}
	if err := c.Resolve(ctx, []uint32{1, 2, 3}, count); err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("reported %d, want 5", n)
	}
	if calls != 3 {
		t.Errorf("underlying lookups = %d, want 3", calls)
	}

	c.Forget(1)
	if err := c.Resolve(ctx, []uint32{1}, count); err != nil {
		t.Fatal(err)
	}
	if calls != 4 {
		t.Errorf("underlying lookups after Forget = %d, want 4", calls)
	}
}
