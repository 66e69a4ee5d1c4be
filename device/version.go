package device

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a semantic version triplet as reported by the firmware.
type Version struct {
	Major, Minor, Patch byte
}

// ParseVersion parses "major.minor.patch".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q: expected major.minor.patch", s)
	}
	var out [3]byte
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		out[i] = byte(n)
	}
	return Version{Major: out[0], Minor: out[1], Patch: out[2]}, nil
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(o Version) int {
	a := [3]byte{v.Major, v.Minor, v.Patch}
	b := [3]byte{o.Major, o.Minor, o.Patch}
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// AtLeast reports whether v >= o.
func (v Version) AtLeast(o Version) bool {
	return v.Compare(o) >= 0
}

// IsZero reports whether the version is 0.0.0, i.e. not fetched.
func (v Version) IsZero() bool {
	return v == Version{}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
