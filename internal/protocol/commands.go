package protocol

// Prebuilt request messages. The fixed sequences are spelled out
// byte-for-byte as they appear on the wire; block read requests are built
// once at init through BuildCommand so the CRC always agrees with Crc.
var (
	// Startup wakes the station and switches it to direct master mode.
	Startup = []byte{WAKEUP, STX, STX, SetMasterMode, 0x01, 0x4D, 0x6D, 0x0A, ETX}

	// GetProtocolConfiguration reads the protocol configuration byte.
	GetProtocolConfiguration = []byte{STX, GetSystemValue, 0x02, 0x74, 0x01, 0x04, 0x14, ETX}

	// GetCardblocksConfiguration reads the card-blocks configuration byte.
	GetCardblocksConfiguration = []byte{STX, GetSystemValue, 0x02, 0x33, 0x01, 0x16, 0x11, ETX}

	// BeepTwice makes the station beep twice after a successful handshake.
	BeepTwice = []byte{STX, Beep, 0x01, 0x02, 0x14, 0x0A, ETX}

	// AckSequence acknowledges a completed card readout.
	AckSequence = []byte{ACK}

	// ReadCard5 requests the single SiCard 5 memory block.
	ReadCard5 = []byte{STX, GetCard5, 0x00, 0xB1, 0x00, ETX}
)

// ReadCard6Blocks is the SiCard 6 readout sequence: block 0 carries the
// headers, blocks 6 and 7 the punches, and blocks 2..5 the extra punch
// pages of the 192-punches mode.
var ReadCard6Blocks = [][]byte{
	ReadCard6Block(0),
	ReadCard6Block(6),
	ReadCard6Block(7),
	ReadCard6Block(2),
	ReadCard6Block(3),
	ReadCard6Block(4),
	ReadCard6Block(5),
}

// ReadCard89Blocks is the SiCard 8/9 and pCard readout sequence.
var ReadCard89Blocks = [][]byte{
	ReadCard8PlusBlock(0),
	ReadCard8PlusBlock(1),
}

// ReadCard10PlusBlocks is the SiCard 10/11/SIAC readout sequence: block 0
// carries the headers, blocks 4..7 the punches.
var ReadCard10PlusBlocks = [][]byte{
	ReadCard8PlusBlock(0),
	ReadCard8PlusBlock(4),
	ReadCard8PlusBlock(5),
	ReadCard8PlusBlock(6),
	ReadCard8PlusBlock(7),
}

// ReadCard6Block builds the request for SiCard 6 block n.
func ReadCard6Block(n byte) []byte {
	return BuildCommand(GetCard6Block, n)
}

// ReadCard8PlusBlock builds the request for SiCard 8+ block n.
func ReadCard8PlusBlock(n byte) []byte {
	return BuildCommand(GetCard8PlusBlock, n)
}

// BuildCommand assembles a framed request for the given command and
// parameters, computing the CRC over command, length, and parameters.
func BuildCommand(command byte, params ...byte) []byte {
	msg := make([]byte, 0, len(params)+6)
	msg = append(msg, STX, command, byte(len(params)))
	msg = append(msg, params...)
	crc := Crc(msg[1:])
	msg = append(msg, byte(crc>>8), byte(crc), ETX)
	return msg
}

// CommandOf returns the command byte of a prebuilt request message.
func CommandOf(msg []byte) byte {
	for i, b := range msg {
		if b == STX && i+1 < len(msg) && msg[i+1] != STX {
			return msg[i+1]
		}
	}
	if len(msg) == 1 {
		return msg[0]
	}
	return 0
}
