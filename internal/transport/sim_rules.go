package transport

// Captured answers of a real controller.
var (
	capturedVersion = []byte{
		0x02, 0xFD, 0x00, 0x0C, 0x41, 0x50, 0x04, 0x04, 0x14, 0x00, 0x1F, 0x12, 0x15, 0x0B, 0x07, 0x0A, 0x38,
	}
	capturedError = []byte{
		0x02, 0xFD, 0x00, 0x39, 0x47, 0x01, 0x00, 0x6D, 0xA3, 0x01, 0x02, 0x00, 0xFE, 0x12, 0x0C, 0x04,
		0x02, 0x00, 0x0C, 0x5A, 0xFC, 0x6E, 0x64, 0x76, 0x65, 0x72, 0x73, 0x75, 0x63, 0x68, 0x20, 0x6E,
		0x69, 0x63, 0x68, 0x74, 0x20, 0x67, 0x65, 0x6C, 0x75, 0x6E, 0x67, 0x65, 0x6E, 0x20, 0x76, 0x6F,
		0x6E, 0x20, 0x48, 0x61, 0x6E, 0x64, 0x20, 0x41, 0x6E, 0x68, 0x65, 0x69, 0x7A, 0x65, 0x6E, 0x21,
		0xBC,
	}
	capturedConfiguration = []byte{
		0x02, 0xFD, 0x00, 0x59, 0x40, 0x00, 0x00, 0x00, 0x04, 0x00, 0x24, 0x00, 0x03, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x49,
	}
	capturedState = []byte{
		0x02, 0xFD, 0x00, 0x18, 0x51, 0x02, 0x00, 0x00, 0xDC, 0x62, 0x65, 0x72, 0x67, 0x61, 0x6E, 0x67,
		0x73, 0x62, 0x65, 0x74, 0x72, 0x3B, 0x53, 0x54, 0xD6, 0x52, 0x55, 0x4E, 0x47, 0x8C,
	}
	capturedMenuItem = []byte{
		0x02, 0xFD, 0x00, 0x44, 0x37, 0x01, 0x07, 0x00, 0x01, 0x72, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x07, 0x00, 0x53,
		0x00, 0xF7, 0x50, 0x72, 0x6F, 0x70, 0x6F, 0x72, 0x74, 0x69, 0x6F, 0x6E, 0x61, 0x6C, 0x66, 0x61,
		0x6B, 0x74, 0x6F, 0x72, 0x20, 0x64, 0x65, 0x73, 0x20, 0x4D, 0x69, 0x73, 0x63, 0x68, 0x65, 0x72,
		0x72, 0x65, 0x67, 0x6C, 0x65, 0x72, 0x73, 0x00, 0x7D,
	}
	// corrupted checksum: length 2, command 00, payload 30, checksum 10.
	corruptedValue = []byte{0x02, 0xFD, 0x00, 0x02, 0x00, 0x30, 0x10, 0x68}
)

var (
	endOfList   = []byte{0x00}
	placeholder = []byte{0x01}
)

// DefaultRules scripts a controller with one error, one menu item, one
// available value and two time slots. Value 00 62 answers 55, value 00 59
// answers with a broken checksum and every other value answers 4322.
func DefaultRules() []Rule {
	availableValue := append([]byte{0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0xB0, 0x00, 0x00}, []byte("Kesseltemperatur")...)
	availableValue = append(availableValue, 0x00)

	return []Rule{
		Reply(Opcode(0x30)+" 00 62$", MustFrame(0x30, []byte{0x00, 0x37})),
		Reply(Opcode(0x30)+" 00 59$", corruptedValue),
		Reply(Opcode(0x30), MustFrame(0x30, []byte{0x10, 0xE2})),
		Echo(Opcode(0x22)),
		Reply(Opcode(0x31), MustFrame(0x31, availableValue)),
		Reply(Opcode(0x32), MustFrame(0x32, endOfList)),
		Reply(Opcode(0x37), capturedMenuItem),
		Reply(Opcode(0x38), MustFrame(0x38, endOfList)),
		Echo(Opcode(0x39)),
		Reply(Opcode(0x40), capturedConfiguration),
		Reply(Opcode(0x41), capturedVersion),
		Reply(Opcode(0x42), MustFrame(0x42, []byte{0x00, 0x00, 0x00, 60, 220, 255, 255, 255, 255, 255, 255})),
		Reply(Opcode(0x43),
			MustFrame(0x43, placeholder),
			MustFrame(0x43, []byte{0x00, 0x00, 0x01, 55, 95, 150, 210, 255, 255, 255, 255}),
			MustFrame(0x43, endOfList),
		),
		Reply(Opcode(0x44), MustFrame(0x44, []byte{'A', 0x01})),
		Reply(Opcode(0x45), MustFrame(0x45, []byte{0x00, 0x64})),
		Reply(Opcode(0x46), MustFrame(0x46, []byte{'A', 0x01})),
		Reply(Opcode(0x47), capturedError),
		Reply(Opcode(0x48), MustFrame(0x48, endOfList)),
		Reply(Opcode(0x51), capturedState),
		Reply(Opcode(0x55), MustFrame(0x55, []byte{
			0x00, 0x00, 0x1C, 0xB0, 0x00, 0x00, 0x02, 0x00, 0xA0, 0x00, 0x3C, 0x00, 0xB4, 0x00, 0xA0,
		})),
		Reply(Opcode(0x5E), MustFrame(0x5E, []byte{0x00})),
	}
}
