package protocol

// Frame delimiters and control bytes per the SPORTident serial protocol.
const (
	// STX marks the start of a framed message
	STX = 0x02

	// ETX marks the end of a framed message
	ETX = 0x03

	// ACK is sent standalone to acknowledge a card readout
	ACK = 0x06

	// NAK is sent standalone by the station on a rejected request
	NAK = 0x15

	// WAKEUP precedes the startup sequence to wake the station UART
	WAKEUP = 0xFF
)

// Command codes understood by BSM7/BSM8 master stations in extended protocol.
const (
	// SetMasterMode switches the station into direct (master) mode
	SetMasterMode = 0xF0

	// GetSystemValue reads a range of the station's configuration memory
	GetSystemValue = 0x83

	// Beep triggers the station beeper
	Beep = 0xF9

	// GetCard5 requests the single SiCard 5 memory block
	GetCard5 = 0xB1

	// GetCard6Block requests one SiCard 6 memory block
	GetCard6Block = 0xE1

	// GetCard8PlusBlock requests one memory block of SiCard 8 and newer
	GetCard8PlusBlock = 0xEF

	// Card5Detected is pushed by the station when a SiCard 5 is inserted
	Card5Detected = 0xE5

	// Card6Detected is pushed by the station when a SiCard 6 is inserted
	Card6Detected = 0xE6

	// Card8PlusDetected is pushed for SiCard 8/9/10/11/SIAC and pCard
	Card8PlusDetected = 0xE8

	// CardRemoved is pushed when the card leaves the station
	CardRemoved = 0xE7
)

// MaxMessageSize is the largest frame a station emits: a full 128-byte
// card block plus framing overhead.
const MaxMessageSize = 139

// Station configuration bits returned by GetSystemValue at the protocol
// configuration address.
const (
	// ExtendedProtocolBit must be set for block-oriented card readout
	ExtendedProtocolBit = 0x01

	// HandshakeBit must be set so the station waits for read requests
	// instead of autosending card data
	HandshakeBit = 0x04
)
