package mem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/mvalera/dmgo/dmgo/addr"
)

func TestDMACopiesToOAM(t *testing.T) {
	m := New()

	for i := uint16(0); i < 0xA0; i++ {
		m.Write(0xC000+i, byte(i))
	}

	m.Write(addr.DMA, 0xC0)

	for i := uint16(0); i < 0xA0; i++ {
		assert.Equal(t, byte(i), m.Read(0xFE00+i), "OAM byte %d should match DMA source", i)
	}
}

func TestEchoRAMAliasesWorkRAM(t *testing.T) {
	m := New()

	m.Write(0xC010, 0x42)
	assert.Equal(t, byte(0x42), m.Read(0xE010))

	m.Write(0xE020, 0x99)
	assert.Equal(t, byte(0x99), m.Read(0xC020))
}

func TestLYWriteAlwaysResetsToZero(t *testing.T) {
	m := New()

	m.Write(addr.LY, 0x50)
	assert.Equal(t, byte(0), m.Read(addr.LY))
}

func TestDIVWriteAlwaysResetsToZero(t *testing.T) {
	m := New()

	m.SetTimerSeed(0x1234)
	assert.NotEqual(t, byte(0), m.Read(addr.DIV))

	m.Write(addr.DIV, 0xFF)
	assert.Equal(t, byte(0), m.Read(addr.DIV))
}

func TestUnusedOAMRangeReadsZeroAndDropsWrites(t *testing.T) {
	m := New()

	m.Write(0xFEA0, 0x55)
	assert.Equal(t, byte(0), m.Read(0xFEA0))
}

func TestSetLYBypassesTheResetRule(t *testing.T) {
	m := New()

	m.SetLY(100)
	assert.Equal(t, byte(100), m.Read(addr.LY))
}
