package mem

import "fmt"

const (
	titleAddress         = 0x134
	titleLength          = 16
	cartridgeTypeAddress = 0x147
	romSizeAddress       = 0x148
	ramSizeAddress       = 0x149
	minHeaderSize        = 0x150
)

// cartType identifies the memory bank controller a ROM header declares.
type cartType uint8

const (
	NoMBCType cartType = 0x00
	MBC1Type  cartType = 0x01
	// MBC1MultiType is not produced by classifyCartType: multicart MBC1
	// boards aren't distinguishable by header byte alone, they require
	// probing for repeated Nintendo logos across ROM banks. Kept as a
	// distinct MBC selector for when that detection is added.
	MBC1MultiType cartType = 0xF1
)

// ramBankCounts maps the $0149 RAM size header byte to a number of 8KB banks.
var ramBankCounts = map[uint8]uint8{
	0x00: 0,
	0x01: 1, // unofficial, 2KB, treated as one partial bank
	0x02: 1,
	0x03: 4,
	0x04: 16,
	0x05: 8,
}

// ErrInvalidROM is returned when ROM data is too small to contain a valid header.
type ErrInvalidROM struct {
	Size int
}

func (e *ErrInvalidROM) Error() string {
	return fmt.Sprintf("invalid ROM: %d bytes is too small to contain a cartridge header", e.Size)
}

// Cartridge holds the raw ROM image together with the header fields that
// decide how the MMU should map and bank it.
type Cartridge struct {
	data         []byte
	title        string
	mbcType      cartType
	hasBattery   bool
	ramBankCount uint8
}

// NewCartridge creates an empty cartridge, useful only for running the MMU
// without a ROM loaded (e.g. in tests that probe raw RAM/VRAM behavior).
func NewCartridge() *Cartridge {
	return &Cartridge{
		data:    make([]byte, 0x8000),
		mbcType: NoMBCType,
	}
}

// NewCartridgeWithData parses a ROM image's header and returns a Cartridge
// ready to be handed to NewWithCartridge. It validates just enough of the
// header to pick the right MBC; it does not verify header or global checksums.
func NewCartridgeWithData(data []byte) (*Cartridge, error) {
	if len(data) < minHeaderSize {
		return nil, &ErrInvalidROM{Size: len(data)}
	}

	cart := &Cartridge{
		data:         make([]byte, len(data)),
		title:        parseTitle(data),
		mbcType:      classifyCartType(data[cartridgeTypeAddress]),
		hasBattery:   hasBatteryBackup(data[cartridgeTypeAddress]),
		ramBankCount: ramBankCounts[data[ramSizeAddress]],
	}
	copy(cart.data, data)

	return cart, nil
}

func parseTitle(data []byte) string {
	raw := data[titleAddress : titleAddress+titleLength]
	end := len(raw)
	for i, b := range raw {
		if b == 0 {
			end = i
			break
		}
	}
	return string(raw[:end])
}

// classifyCartType collapses the full $0147 cartridge type byte into the
// handful of MBC families this emulator implements. Anything else is left
// as an unknown value, which NewWithCartridge rejects with ErrUnsupportedCartridge.
func classifyCartType(headerByte uint8) cartType {
	switch headerByte {
	case 0x00:
		return NoMBCType
	case 0x01, 0x02, 0x03:
		return MBC1Type
	default:
		return cartType(headerByte)
	}
}

func hasBatteryBackup(headerByte uint8) bool {
	switch headerByte {
	case 0x03: // MBC1+RAM+BATTERY
		return true
	default:
		return false
	}
}
