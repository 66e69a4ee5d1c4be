package device

import "testing"

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Version
		wantErr bool
	}{
		{name: "simple", input: "3.1.0", want: Version{3, 1, 0}},
		{name: "whitespace", input: " 4.0.12 ", want: Version{4, 0, 12}},
		{name: "too few parts", input: "3.1", wantErr: true},
		{name: "not a number", input: "3.x.0", wantErr: true},
		{name: "overflow", input: "256.0.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestVersionCompare(t *testing.T) {
	if !(Version{3, 1, 0}).AtLeast(Version{3, 1, 0}) {
		t.Error("3.1.0 should be at least 3.1.0")
	}
	if (Version{3, 0, 9}).AtLeast(Version{3, 1, 0}) {
		t.Error("3.0.9 should not be at least 3.1.0")
	}
	if (Version{4, 0, 0}).Compare(Version{3, 9, 9}) != 1 {
		t.Error("4.0.0 should compare greater than 3.9.9")
	}
}

func TestTypeLookups(t *testing.T) {
	if got := TypeForID(int(Drive)); got != Drive {
		t.Errorf("TypeForID(drive) = %v", got)
	}
	if got := TypeForID(999); got != Unknown {
		t.Errorf("TypeForID(999) = %v, want unknown", got)
	}
	if got, err := TypeForName("Bluetooth"); err != nil || got != Bluetooth {
		t.Errorf("TypeForName(Bluetooth) = %v, %v", got, err)
	}
	if _, err := TypeForName("toaster"); err == nil {
		t.Error("expected error for unknown type name")
	}
	if got := MCUForID(2); got != MCUPIC {
		t.Errorf("MCUForID(2) = %v, want pic", got)
	}
	if got := MCUForID(7); got != MCUUnknown {
		t.Errorf("MCUForID(7) = %v, want unknown", got)
	}
}

func TestDeviceState(t *testing.T) {
	d := New(42, HopUnknown, Unknown)
	if d.HasHopCount() {
		t.Error("hop count should be unknown")
	}
	if d.Resolved() {
		t.Error("new device should not be resolved")
	}
	d.HopCount = 0
	d.Type = Bluetooth
	d.MCU = MCUAVR
	if !d.IsHost() || !d.Resolved() {
		t.Errorf("device should be a resolved host: %v", d)
	}
}
