package protocol

// ClassicKeepAliveRequest pings the host. Bootstrap firmware answers it with a
// non-empty payload, which is how the firmware generation is detected.
type ClassicKeepAliveRequest struct{}

func (*ClassicKeepAliveRequest) Mode() Mode         { return ModeClassic }
func (*ClassicKeepAliveRequest) Code() byte         { return CodeClassicKeepAlive }
func (*ClassicKeepAliveRequest) Kind() Kind         { return KindRequest }
func (*ClassicKeepAliveRequest) ResponseCode() byte { return CodeClassicKeepAlive }

func (*ClassicKeepAliveRequest) MarshalBody() ([]byte, error) { return nil, nil }

func (m *ClassicKeepAliveRequest) UnmarshalBody(body []byte) error {
	return expectSize(m, body, 0)
}

// ClassicKeepAliveResponse answers a keep-alive. Payload is empty for
// classic firmware.
type ClassicKeepAliveResponse struct {
	Payload []byte
}

func (*ClassicKeepAliveResponse) Mode() Mode { return ModeClassic }
func (*ClassicKeepAliveResponse) Code() byte { return CodeClassicKeepAlive }
func (*ClassicKeepAliveResponse) Kind() Kind { return KindResponse }

func (m *ClassicKeepAliveResponse) MarshalBody() ([]byte, error) {
	return append([]byte(nil), m.Payload...), nil
}

func (m *ClassicKeepAliveResponse) UnmarshalBody(body []byte) error {
	m.Payload = nil
	if len(body) > 0 {
		m.Payload = append([]byte(nil), body...)
	}
	return nil
}

// ClassicNeighborsRequest asks the host for its neighbor map.
type ClassicNeighborsRequest struct{}

func (*ClassicNeighborsRequest) Mode() Mode         { return ModeClassic }
func (*ClassicNeighborsRequest) Code() byte         { return CodeClassicGetNeighbors }
func (*ClassicNeighborsRequest) Kind() Kind         { return KindRequest }
func (*ClassicNeighborsRequest) ResponseCode() byte { return CodeClassicGetNeighbors }

func (*ClassicNeighborsRequest) MarshalBody() ([]byte, error) { return nil, nil }

func (m *ClassicNeighborsRequest) UnmarshalBody(body []byte) error {
	return expectSize(m, body, 0)
}

// ClassicNeighborsResponse names the responding block (the host) and the ID
// attached to each of its faces. Empty faces are omitted from Neighbors.
type ClassicNeighborsResponse struct {
	Origin    uint32
	Neighbors NeighborMap
}

func (*ClassicNeighborsResponse) Mode() Mode { return ModeClassic }
func (*ClassicNeighborsResponse) Code() byte { return CodeClassicGetNeighbors }
func (*ClassicNeighborsResponse) Kind() Kind { return KindResponse }

func (m *ClassicNeighborsResponse) MarshalBody() ([]byte, error) {
	body, err := appendID(make([]byte, 0, ClassicNeighborsBodySize), m.Origin)
	if err != nil {
		return nil, err
	}
	for face := 0; face < ClassicFaceCount; face++ {
		if body, err = appendID(body, m.Neighbors[face]); err != nil {
			return nil, err
		}
	}
	return body, nil
}

func (m *ClassicNeighborsResponse) UnmarshalBody(body []byte) error {
	if err := expectSize(m, body, ClassicNeighborsBodySize); err != nil {
		return err
	}
	m.Origin = DecodeID(body)
	m.Neighbors = make(NeighborMap)
	for face := 0; face < ClassicFaceCount; face++ {
		off := IDSize + face*IDSize
		if id := DecodeID(body[off:]); id != 0 {
			m.Neighbors[face] = id
		}
	}
	return nil
}

// GetBlockValueRequest reads the current value of a block.
type GetBlockValueRequest struct {
	ID uint32
}

func (*GetBlockValueRequest) Mode() Mode         { return ModeClassic }
func (*GetBlockValueRequest) Code() byte         { return CodeClassicGetBlockValue }
func (*GetBlockValueRequest) Kind() Kind         { return KindRequest }
func (*GetBlockValueRequest) ResponseCode() byte { return CodeClassicGetBlockValue }
func (m *GetBlockValueRequest) DeviceID() uint32 { return m.ID }

func (m *GetBlockValueRequest) MarshalBody() ([]byte, error) {
	return appendID(nil, m.ID)
}

func (m *GetBlockValueRequest) UnmarshalBody(body []byte) error {
	if err := expectSize(m, body, IDSize); err != nil {
		return err
	}
	m.ID = DecodeID(body)
	return nil
}

// GetBlockValueResponse carries a block's value and a result code.
type GetBlockValueResponse struct {
	ID     uint32
	Value  byte
	Result byte
}

func (*GetBlockValueResponse) Mode() Mode         { return ModeClassic }
func (*GetBlockValueResponse) Code() byte         { return CodeClassicGetBlockValue }
func (*GetBlockValueResponse) Kind() Kind         { return KindResponse }
func (m *GetBlockValueResponse) DeviceID() uint32 { return m.ID }

func (m *GetBlockValueResponse) MarshalBody() ([]byte, error) {
	body, err := appendID(make([]byte, 0, BlockValueResponseBodySize), m.ID)
	if err != nil {
		return nil, err
	}
	return append(body, m.Value, m.Result), nil
}

func (m *GetBlockValueResponse) UnmarshalBody(body []byte) error {
	if err := expectSize(m, body, BlockValueResponseBodySize); err != nil {
		return err
	}
	m.ID = DecodeID(body)
	m.Value = body[IDSize]
	m.Result = body[IDSize+1]
	return nil
}

// SetLEDCommand switches a block's indicator LED.
type SetLEDCommand struct {
	ID     uint32
	Enable bool
}

func (*SetLEDCommand) Mode() Mode         { return ModeClassic }
func (*SetLEDCommand) Code() byte         { return CodeClassicSetLED }
func (*SetLEDCommand) Kind() Kind         { return KindCommand }
func (m *SetLEDCommand) DeviceID() uint32 { return m.ID }

func (m *SetLEDCommand) MarshalBody() ([]byte, error) {
	body, err := appendID(make([]byte, 0, SetLEDBodySize), m.ID)
	if err != nil {
		return nil, err
	}
	return append(body, boolByte(m.Enable)), nil
}

func (m *SetLEDCommand) UnmarshalBody(body []byte) error {
	if err := expectSize(m, body, SetLEDBodySize); err != nil {
		return err
	}
	m.ID = DecodeID(body)
	m.Enable = body[IDSize] != 0
	return nil
}

// Prioritize lets a newer LED command for the same block replace a queued one.
func (m *SetLEDCommand) Prioritize(next Message) int {
	if n, ok := next.(*SetLEDCommand); ok && n.ID == m.ID {
		return 1
	}
	return 0
}

// SetBlockValueCommand overrides a block's value.
type SetBlockValueCommand struct {
	ID    uint32
	Value byte
}

func (*SetBlockValueCommand) Mode() Mode         { return ModeClassic }
func (*SetBlockValueCommand) Code() byte         { return CodeClassicSetBlockValue }
func (*SetBlockValueCommand) Kind() Kind         { return KindCommand }
func (m *SetBlockValueCommand) DeviceID() uint32 { return m.ID }

func (m *SetBlockValueCommand) MarshalBody() ([]byte, error) {
	body, err := appendID(make([]byte, 0, SetBlockValueBodySize), m.ID)
	if err != nil {
		return nil, err
	}
	return append(body, m.Value), nil
}

func (m *SetBlockValueCommand) UnmarshalBody(body []byte) error {
	if err := expectSize(m, body, SetBlockValueBodySize); err != nil {
		return err
	}
	m.ID = DecodeID(body)
	m.Value = body[IDSize]
	return nil
}

// Prioritize lets a newer value for the same block replace a queued one.
func (m *SetBlockValueCommand) Prioritize(next Message) int {
	if n, ok := next.(*SetBlockValueCommand); ok && n.ID == m.ID {
		return 1
	}
	return 0
}

// ClassicResetCommand reboots the host into its bootloader.
type ClassicResetCommand struct{}

func (*ClassicResetCommand) Mode() Mode                   { return ModeClassic }
func (*ClassicResetCommand) Code() byte                   { return CodeClassicReset }
func (*ClassicResetCommand) Kind() Kind                   { return KindCommand }
func (*ClassicResetCommand) MarshalBody() ([]byte, error) { return nil, nil }

func (m *ClassicResetCommand) UnmarshalBody(body []byte) error {
	return expectSize(m, body, 0)
}

// FlashProgressEvent is emitted while the host writes an uploaded program.
type FlashProgressEvent struct {
	Progress byte
}

func (*FlashProgressEvent) Mode() Mode { return ModeClassic }
func (*FlashProgressEvent) Code() byte { return CodeClassicFlashProgress }
func (*FlashProgressEvent) Kind() Kind { return KindEvent }

func (m *FlashProgressEvent) MarshalBody() ([]byte, error) {
	return []byte{m.Progress}, nil
}

func (m *FlashProgressEvent) UnmarshalBody(body []byte) error {
	if err := expectSize(m, body, FlashProgressBodySize); err != nil {
		return err
	}
	m.Progress = body[0]
	return nil
}

// FlashCompleteEvent terminates a flash commit.
type FlashCompleteEvent struct{}

func (*FlashCompleteEvent) Mode() Mode                   { return ModeClassic }
func (*FlashCompleteEvent) Code() byte                   { return CodeClassicFlashComplete }
func (*FlashCompleteEvent) Kind() Kind                   { return KindEvent }
func (*FlashCompleteEvent) MarshalBody() ([]byte, error) { return nil, nil }

func (m *FlashCompleteEvent) UnmarshalBody(body []byte) error {
	return expectSize(m, body, 0)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
