package protocol

// BootstrapKeepAliveRequest pings a host running bootstrap firmware.
type BootstrapKeepAliveRequest struct{}

func (*BootstrapKeepAliveRequest) Mode() Mode         { return ModeBootstrap }
func (*BootstrapKeepAliveRequest) Code() byte         { return CodeBootstrapKeepAlive }
func (*BootstrapKeepAliveRequest) Kind() Kind         { return KindRequest }
func (*BootstrapKeepAliveRequest) ResponseCode() byte { return CodeBootstrapKeepAlive }

func (*BootstrapKeepAliveRequest) MarshalBody() ([]byte, error) { return nil, nil }

func (m *BootstrapKeepAliveRequest) UnmarshalBody(body []byte) error {
	return expectSize(m, body, 0)
}

// BootstrapKeepAliveResponse answers a bootstrap keep-alive.
type BootstrapKeepAliveResponse struct {
	Payload []byte
}

func (*BootstrapKeepAliveResponse) Mode() Mode { return ModeBootstrap }
func (*BootstrapKeepAliveResponse) Code() byte { return CodeBootstrapKeepAlive }
func (*BootstrapKeepAliveResponse) Kind() Kind { return KindResponse }

func (m *BootstrapKeepAliveResponse) MarshalBody() ([]byte, error) {
	return append([]byte(nil), m.Payload...), nil
}

func (m *BootstrapKeepAliveResponse) UnmarshalBody(body []byte) error {
	m.Payload = nil
	if len(body) > 0 {
		m.Payload = append([]byte(nil), body...)
	}
	return nil
}

// SetBootstrapModeRequest asks the bootstrap firmware to hand over to the
// classic (FirmwareClassic) or imago (FirmwareImago) message set.
type SetBootstrapModeRequest struct {
	Firmware byte
}

func (*SetBootstrapModeRequest) Mode() Mode         { return ModeBootstrap }
func (*SetBootstrapModeRequest) Code() byte         { return CodeBootstrapSetMode }
func (*SetBootstrapModeRequest) Kind() Kind         { return KindRequest }
func (*SetBootstrapModeRequest) ResponseCode() byte { return CodeBootstrapSetMode }

func (m *SetBootstrapModeRequest) MarshalBody() ([]byte, error) {
	return []byte{m.Firmware}, nil
}

func (m *SetBootstrapModeRequest) UnmarshalBody(body []byte) error {
	if err := expectSize(m, body, SetModeBodySize); err != nil {
		return err
	}
	m.Firmware = body[0]
	return nil
}

// SetBootstrapModeResponse reports the mode the firmware actually entered.
type SetBootstrapModeResponse struct {
	Firmware byte
}

func (*SetBootstrapModeResponse) Mode() Mode { return ModeBootstrap }
func (*SetBootstrapModeResponse) Code() byte { return CodeBootstrapSetMode }
func (*SetBootstrapModeResponse) Kind() Kind { return KindResponse }

func (m *SetBootstrapModeResponse) MarshalBody() ([]byte, error) {
	return []byte{m.Firmware}, nil
}

func (m *SetBootstrapModeResponse) UnmarshalBody(body []byte) error {
	if err := expectSize(m, body, SetModeBodySize); err != nil {
		return err
	}
	m.Firmware = body[0]
	return nil
}

// BlockFoundEvent reports a block detected on one of the host's faces and
// the firmware generation it runs.
type BlockFoundEvent struct {
	Face     int
	Firmware byte
}

func (*BlockFoundEvent) Mode() Mode { return ModeBootstrap }
func (*BlockFoundEvent) Code() byte { return CodeBootstrapBlockFound }
func (*BlockFoundEvent) Kind() Kind { return KindEvent }

func (m *BlockFoundEvent) MarshalBody() ([]byte, error) {
	return []byte{byte(m.Face), m.Firmware}, nil
}

func (m *BlockFoundEvent) UnmarshalBody(body []byte) error {
	if err := expectSize(m, body, BlockFoundBodySize); err != nil {
		return err
	}
	m.Face = int(body[0])
	m.Firmware = body[1]
	return nil
}

// IsImago reports whether the found block runs imago firmware.
func (m *BlockFoundEvent) IsImago() bool { return m.Firmware == FirmwareImago }

// SkipDisconnectEvent tells the host that no physical reset is needed after
// flashing bootstrap firmware.
type SkipDisconnectEvent struct{}

func (*SkipDisconnectEvent) Mode() Mode                   { return ModeBootstrap }
func (*SkipDisconnectEvent) Code() byte                   { return CodeBootstrapSkipDisconnect }
func (*SkipDisconnectEvent) Kind() Kind                   { return KindEvent }
func (*SkipDisconnectEvent) MarshalBody() ([]byte, error) { return nil, nil }

func (m *SkipDisconnectEvent) UnmarshalBody(body []byte) error {
	return expectSize(m, body, 0)
}

// DisconnectFailedEvent reports that the host could not drop the link by
// itself; the user has to power-cycle it.
type DisconnectFailedEvent struct{}

func (*DisconnectFailedEvent) Mode() Mode                   { return ModeBootstrap }
func (*DisconnectFailedEvent) Code() byte                   { return CodeBootstrapDisconnectFailed }
func (*DisconnectFailedEvent) Kind() Kind                   { return KindEvent }
func (*DisconnectFailedEvent) MarshalBody() ([]byte, error) { return nil, nil }

func (m *DisconnectFailedEvent) UnmarshalBody(body []byte) error {
	return expectSize(m, body, 0)
}
