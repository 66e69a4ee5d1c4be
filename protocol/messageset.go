package protocol

import "fmt"

// MessageSet maps the code bytes of one mode and direction to message
// constructors. The same code byte means different things in different
// sets, so a decoder always works against exactly one set.
type MessageSet struct {
	mode    Mode
	name    string
	entries map[byte]func() Message
}

// Mode returns the protocol family of the set.
func (s *MessageSet) Mode() Mode { return s.mode }

func (s *MessageSet) String() string { return fmt.Sprintf("%s/%s", s.mode, s.name) }

// Lookup returns a fresh message for code, or false if the set does not know it.
func (s *MessageSet) Lookup(code byte) (Message, bool) {
	ctor, ok := s.entries[code]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

// Codes returns every code the set knows, in ascending order.
func (s *MessageSet) Codes() []byte {
	codes := make([]byte, 0, len(s.entries))
	for c := 0; c <= 0xFF; c++ {
		if _, ok := s.entries[byte(c)]; ok {
			codes = append(codes, byte(c))
		}
	}
	return codes
}

func newSet(mode Mode, name string, ctors ...func() Message) *MessageSet {
	s := &MessageSet{mode: mode, name: name, entries: make(map[byte]func() Message, len(ctors))}
	for _, ctor := range ctors {
		s.entries[ctor().Code()] = ctor
	}
	return s
}

// Inbound sets: what a host receives from the device.
var hostSets = map[Mode]*MessageSet{
	ModeClassic: newSet(ModeClassic, "host",
		func() Message { return &ClassicKeepAliveResponse{} },
		func() Message { return &ClassicNeighborsResponse{} },
		func() Message { return &GetBlockValueResponse{} },
		func() Message { return &FlashProgressEvent{} },
		func() Message { return &FlashCompleteEvent{} },
	),
	ModeBootstrap: newSet(ModeBootstrap, "host",
		func() Message { return &BootstrapKeepAliveResponse{} },
		func() Message { return &SetBootstrapModeResponse{} },
		func() Message { return &BlockFoundEvent{} },
		func() Message { return &SkipDisconnectEvent{} },
		func() Message { return &DisconnectFailedEvent{} },
	),
	ModeImago: newSet(ModeImago, "host",
		func() Message { return &ImagoNeighborsResponse{} },
		func() Message { return &GetConfigurationResponse{} },
		func() Message { return &EchoResponse{} },
	),
}

// Outbound sets: what a device receives from the host.
var deviceSets = map[Mode]*MessageSet{
	ModeClassic: newSet(ModeClassic, "device",
		func() Message { return &ClassicKeepAliveRequest{} },
		func() Message { return &ClassicNeighborsRequest{} },
		func() Message { return &GetBlockValueRequest{} },
		func() Message { return &SetLEDCommand{} },
		func() Message { return &SetBlockValueCommand{} },
		func() Message { return &ClassicResetCommand{} },
	),
	ModeBootstrap: newSet(ModeBootstrap, "device",
		func() Message { return &BootstrapKeepAliveRequest{} },
		func() Message { return &SetBootstrapModeRequest{} },
	),
	ModeImago: newSet(ModeImago, "device",
		func() Message { return &ImagoNeighborsRequest{} },
		func() Message { return &GetConfigurationRequest{} },
		func() Message { return &EchoRequest{} },
		func() Message { return &ImagoResetCommand{} },
	),
}

// HostSet returns the responses and events a host decodes in mode m.
// It panics on an unknown mode.
func HostSet(m Mode) *MessageSet {
	s, ok := hostSets[m]
	if !ok {
		panic(fmt.Sprintf("protocol: no host message set for %s", m))
	}
	return s
}

// DeviceSet returns the requests and commands a device decodes in mode m.
// It panics on an unknown mode.
func DeviceSet(m Mode) *MessageSet {
	s, ok := deviceSets[m]
	if !ok {
		panic(fmt.Sprintf("protocol: no device message set for %s", m))
	}
	return s
}
