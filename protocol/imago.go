package protocol

import "github.com/bryangrimes/node-cubelets/device"

// ImagoNeighborsRequest asks the host for its neighbor map.
type ImagoNeighborsRequest struct{}

func (*ImagoNeighborsRequest) Mode() Mode         { return ModeImago }
func (*ImagoNeighborsRequest) Code() byte         { return CodeImagoGetNeighbors }
func (*ImagoNeighborsRequest) Kind() Kind         { return KindRequest }
func (*ImagoNeighborsRequest) ResponseCode() byte { return CodeImagoGetNeighbors }

func (*ImagoNeighborsRequest) MarshalBody() ([]byte, error) { return nil, nil }

func (m *ImagoNeighborsRequest) UnmarshalBody(body []byte) error {
	return expectSize(m, body, 0)
}

// ImagoNeighborsResponse lists (face, id) pairs for every occupied face.
type ImagoNeighborsResponse struct {
	Neighbors NeighborMap
}

func (*ImagoNeighborsResponse) Mode() Mode { return ModeImago }
func (*ImagoNeighborsResponse) Code() byte { return CodeImagoGetNeighbors }
func (*ImagoNeighborsResponse) Kind() Kind { return KindResponse }

func (m *ImagoNeighborsResponse) MarshalBody() ([]byte, error) {
	faces := m.Neighbors.Faces()
	body := make([]byte, 0, len(faces)*ImagoNeighborEntrySize)
	for _, face := range faces {
		var err error
		body = append(body, byte(face))
		if body, err = appendID(body, m.Neighbors[face]); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func (m *ImagoNeighborsResponse) UnmarshalBody(body []byte) error {
	if len(body)%ImagoNeighborEntrySize != 0 {
		return &DecodeError{
			Mode:     m.Mode(),
			Code:     m.Code(),
			Expected: SizeVariable,
			Actual:   len(body),
			Reason:   "length is not a multiple of 4",
		}
	}
	m.Neighbors = make(NeighborMap, len(body)/ImagoNeighborEntrySize)
	for off := 0; off < len(body); off += ImagoNeighborEntrySize {
		m.Neighbors[int(body[off])] = DecodeID(body[off+1:])
	}
	return nil
}

// GetConfigurationRequest reads the identity and versions of one block.
type GetConfigurationRequest struct {
	ID uint32
}

func (*GetConfigurationRequest) Mode() Mode         { return ModeImago }
func (*GetConfigurationRequest) Code() byte         { return CodeImagoGetConfiguration }
func (*GetConfigurationRequest) Kind() Kind         { return KindRequest }
func (*GetConfigurationRequest) ResponseCode() byte { return CodeImagoGetConfiguration }
func (m *GetConfigurationRequest) DeviceID() uint32 { return m.ID }

func (m *GetConfigurationRequest) MarshalBody() ([]byte, error) {
	return appendID(nil, m.ID)
}

func (m *GetConfigurationRequest) UnmarshalBody(body []byte) error {
	if err := expectSize(m, body, IDSize); err != nil {
		return err
	}
	m.ID = DecodeID(body)
	return nil
}

// GetConfigurationResponse describes a block. ApplicationMode is 0 while the
// block sits in its bootloader and 1 once it runs an application.
type GetConfigurationResponse struct {
	ID                 uint32
	HardwareVersion    device.Version
	BootloaderVersion  device.Version
	ApplicationVersion device.Version
	BlockType          byte
	MCU                byte
	ApplicationMode    byte
	CustomApplication  byte
}

func (*GetConfigurationResponse) Mode() Mode         { return ModeImago }
func (*GetConfigurationResponse) Code() byte         { return CodeImagoGetConfiguration }
func (*GetConfigurationResponse) Kind() Kind         { return KindResponse }
func (m *GetConfigurationResponse) DeviceID() uint32 { return m.ID }

// InBootloader reports whether the block still waits for an application.
func (m *GetConfigurationResponse) InBootloader() bool { return m.ApplicationMode == 0 }

func (m *GetConfigurationResponse) MarshalBody() ([]byte, error) {
	body, err := appendID(make([]byte, 0, ConfigurationBodySize), m.ID)
	if err != nil {
		return nil, err
	}
	body = appendVersion(body, m.HardwareVersion)
	body = appendVersion(body, m.BootloaderVersion)
	body = appendVersion(body, m.ApplicationVersion)
	return append(body, m.BlockType, m.MCU, m.ApplicationMode, m.CustomApplication), nil
}

func (m *GetConfigurationResponse) UnmarshalBody(body []byte) error {
	if err := expectSize(m, body, ConfigurationBodySize); err != nil {
		return err
	}
	m.ID = DecodeID(body)
	off := IDSize
	m.HardwareVersion = decodeVersion(body[off:])
	off += VersionSize
	m.BootloaderVersion = decodeVersion(body[off:])
	off += VersionSize
	m.ApplicationVersion = decodeVersion(body[off:])
	off += VersionSize
	m.BlockType = body[off]
	m.MCU = body[off+1]
	m.ApplicationMode = body[off+2]
	m.CustomApplication = body[off+3]
	return nil
}

// EchoRequest asks the host to send Payload back.
type EchoRequest struct {
	Payload []byte
}

func (*EchoRequest) Mode() Mode         { return ModeImago }
func (*EchoRequest) Code() byte         { return CodeImagoEcho }
func (*EchoRequest) Kind() Kind         { return KindRequest }
func (*EchoRequest) ResponseCode() byte { return CodeImagoEcho }

func (m *EchoRequest) MarshalBody() ([]byte, error) {
	return append([]byte(nil), m.Payload...), nil
}

func (m *EchoRequest) UnmarshalBody(body []byte) error {
	m.Payload = nil
	if len(body) > 0 {
		m.Payload = append([]byte(nil), body...)
	}
	return nil
}

// EchoResponse carries the echoed payload.
type EchoResponse struct {
	Payload []byte
}

func (*EchoResponse) Mode() Mode { return ModeImago }
func (*EchoResponse) Code() byte { return CodeImagoEcho }
func (*EchoResponse) Kind() Kind { return KindResponse }

func (m *EchoResponse) MarshalBody() ([]byte, error) {
	return append([]byte(nil), m.Payload...), nil
}

func (m *EchoResponse) UnmarshalBody(body []byte) error {
	m.Payload = nil
	if len(body) > 0 {
		m.Payload = append([]byte(nil), body...)
	}
	return nil
}

// ImagoResetCommand reboots the host into its bootloader.
type ImagoResetCommand struct{}

func (*ImagoResetCommand) Mode() Mode                   { return ModeImago }
func (*ImagoResetCommand) Code() byte                   { return CodeImagoReset }
func (*ImagoResetCommand) Kind() Kind                   { return KindCommand }
func (*ImagoResetCommand) MarshalBody() ([]byte, error) { return nil, nil }

func (m *ImagoResetCommand) UnmarshalBody(body []byte) error {
	return expectSize(m, body, 0)
}

func appendVersion(dst []byte, v device.Version) []byte {
	return append(dst, v.Major, v.Minor, v.Patch)
}

func decodeVersion(b []byte) device.Version {
	return device.Version{Major: b[0], Minor: b[1], Patch: b[2]}
}
