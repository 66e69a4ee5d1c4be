package protocol

// Frame structure constants.
const (
	// StartOfFrame marks the beginning of a frame ('<')
	StartOfFrame = 0x3C

	// EndOfFrame marks the end of a frame ('>')
	EndOfFrame = 0x3E

	// FrameOverhead is the number of envelope bytes around the body:
	// SOF(1) + CODE(1) + LEN(1) + EOF(1)
	FrameOverhead = 4

	// MaxBodySize is the largest body a one-byte length can describe
	MaxBodySize = 0xFF

	// IDSize is the encoded size of a device ID
	IDSize = 3

	// VersionSize is the encoded size of a version triplet
	VersionSize = 3
)

// CLASSIC message codes.
const (
	CodeClassicKeepAlive     = 0x61
	CodeClassicGetNeighbors  = 0x6E
	CodeClassicGetBlockValue = 0x76
	CodeClassicSetLED        = 0x6C
	CodeClassicSetBlockValue = 0x73
	CodeClassicReset         = 0x52
	CodeClassicFlashProgress = 0x50
	CodeClassicFlashComplete = 0x43
)

// BOOTSTRAP message codes.
const (
	CodeBootstrapKeepAlive        = 0x61
	CodeBootstrapSetMode          = 0x4D
	CodeBootstrapBlockFound       = 0x46
	CodeBootstrapSkipDisconnect   = 0x53
	CodeBootstrapDisconnectFailed = 0x44
)

// IMAGO message codes.
const (
	CodeImagoGetNeighbors     = 0x6E
	CodeImagoGetConfiguration = 0x63
	CodeImagoEcho             = 0x65
	CodeImagoReset            = 0x52
)

// Firmware generations reported by BlockFoundEvent and requested by
// SetBootstrapModeRequest.
const (
	FirmwareClassic = 0x00
	FirmwareImago   = 0x01
)

// Body sizes mandated per message.
const (
	ClassicNeighborsBodySize   = IDSize + 6*IDSize
	BlockValueResponseBodySize = IDSize + 2
	SetLEDBodySize             = IDSize + 1
	SetBlockValueBodySize      = IDSize + 1
	FlashProgressBodySize      = 1
	SetModeBodySize            = 1
	BlockFoundBodySize         = 2
	ImagoNeighborEntrySize     = 1 + IDSize
	ConfigurationBodySize      = IDSize + 3*VersionSize + 4
)

// ClassicFaceCount is the number of face slots in a CLASSIC neighbor response.
const ClassicFaceCount = 6
