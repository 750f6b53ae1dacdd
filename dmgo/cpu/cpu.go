package cpu

import "github.com/mvalera/dmgo/dmgo/bit"

// bus is the subset of the memory unit the CPU needs to fetch instructions,
// read/write operands, and manage the interrupt flag registers.
type bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
}

// Interrupt vector addresses the CPU jumps to when servicing a pending
// interrupt, in priority order (lowest bit first).
const (
	vblankVector   uint16 = 0x40
	lcdStatVector  uint16 = 0x48
	timerVector    uint16 = 0x50
	serialVector   uint16 = 0x58
	joypadVector   uint16 = 0x60
	ifRegister     uint16 = 0xFF0F
	ieRegister     uint16 = 0xFFFF
	interruptsMask uint8  = 0x1F
)

// CPU is a Sharp LR35902 instruction interpreter. It executes one
// instruction at a time against the attached bus; timers, the LCD
// controller and interrupt servicing are all driven externally by the
// caller between Step calls, never interleaved mid-instruction.
type CPU struct {
	a, b, c, d, e, h, l, f uint8
	sp, pc                 uint16

	memory bus

	currentOpcode uint16

	ime          bool // interrupt master enable
	imeScheduled bool // EI enables IME only after the *next* instruction

	halted   bool
	stopped  bool
	haltBug  bool // halted with IME=0 and a pending interrupt: PC fails to advance once
}

// New creates a CPU in the post-boot-ROM register state a real DMG leaves
// behind once the boot ROM hands off to the cartridge at 0x0100.
func New(memory bus) *CPU {
	cpu := &CPU{memory: memory}
	cpu.setAF(0x01B0)
	cpu.setBC(0x0013)
	cpu.setDE(0x00D8)
	cpu.setHL(0x014D)
	cpu.sp = 0xFFFE
	cpu.pc = 0x0100
	return cpu
}

// Step fetches and executes a single instruction, returning the number of
// cycles it took. Timer/LCD advancement and interrupt servicing are the
// caller's responsibility and must happen after Step returns.
func (cpu *CPU) Step() int {
	imeEnableQueued := cpu.imeScheduled
	cpu.imeScheduled = false

	if cpu.stopped {
		return 4
	}

	if cpu.halted {
		if cpu.pendingInterrupt() {
			cpu.halted = false
		} else {
			return 4
		}
	}

	opcode := uint16(cpu.memory.Read(cpu.pc))
	cpu.currentOpcode = opcode
	cpu.pc++

	if cpu.haltBug {
		cpu.haltBug = false
		cpu.pc-- // the byte just fetched will be fetched again next Step
	}

	var cycles int
	if opcode == 0xCB {
		cbOpcode := uint16(cpu.memory.Read(cpu.pc))
		cpu.pc++
		cpu.currentOpcode = 0xCB00 | cbOpcode
		fn, ok := opcodeCBMap[uint8(cbOpcode)]
		if !ok {
			fn = unimplemented
		}
		cycles = fn(cpu) + 4
	} else {
		fn, ok := opcodeMap[uint8(opcode)]
		if !ok {
			fn = unimplemented
		}
		cycles = fn(cpu)
	}

	if imeEnableQueued {
		cpu.ime = true
	}

	return cycles
}

// Snapshot is a read-only copy of the register file, for renderers and debuggers.
type Snapshot struct {
	A, F, B, C, D, E, H, L uint8
	SP, PC                 uint16
}

// Snapshot returns a copy of the CPU's current register state.
func (cpu *CPU) Snapshot() Snapshot {
	return Snapshot{
		A: cpu.a, F: cpu.f, B: cpu.b, C: cpu.c, D: cpu.d, E: cpu.e, H: cpu.h, L: cpu.l,
		SP: cpu.sp, PC: cpu.pc,
	}
}

func (cpu *CPU) pendingInterrupt() bool {
	iflags := cpu.memory.Read(ifRegister)
	ie := cpu.memory.Read(ieRegister)
	return (iflags&ie)&interruptsMask != 0
}

// ServiceInterrupts checks for a pending, enabled interrupt and, if IME is
// set, pushes the current PC and jumps to the interrupt's vector. It must
// be called once per Step, after timers and the LCD have been advanced.
// Returns the number of cycles the dispatch consumed, 0 if nothing fired.
func (cpu *CPU) ServiceInterrupts() int {
	if !cpu.ime {
		return 0
	}

	iflags := cpu.memory.Read(ifRegister)
	ie := cpu.memory.Read(ieRegister)
	pending := iflags & ie & interruptsMask
	if pending == 0 {
		return 0
	}

	var bitIndex uint8
	var vector uint16
	switch {
	case pending&0x01 != 0:
		bitIndex, vector = 0, vblankVector
	case pending&0x02 != 0:
		bitIndex, vector = 1, lcdStatVector
	case pending&0x04 != 0:
		bitIndex, vector = 2, timerVector
	case pending&0x08 != 0:
		bitIndex, vector = 3, serialVector
	default:
		bitIndex, vector = 4, joypadVector
	}

	cpu.memory.Write(ifRegister, iflags&^(1<<bitIndex))
	cpu.ime = false
	cpu.imeScheduled = false
	cpu.pushWord(cpu.pc)
	cpu.pc = vector

	return 20
}

// --- operand fetch helpers ---

func (cpu *CPU) readImmediate() uint8 {
	value := cpu.memory.Read(cpu.pc)
	cpu.pc++
	return value
}

func (cpu *CPU) readSignedImmediate() int8 {
	return int8(cpu.readImmediate())
}

func (cpu *CPU) readImmediateWord() uint16 {
	low := cpu.readImmediate()
	high := cpu.readImmediate()
	return bit.Combine(high, low)
}

// --- jumps and calls ---

func (cpu *CPU) jr() {
	offset := cpu.readSignedImmediate()
	cpu.pc = uint16(int32(cpu.pc) + int32(offset))
}

func (cpu *CPU) jp() {
	cpu.pc = cpu.readImmediateWord()
}

func (cpu *CPU) pushWord(value uint16) {
	cpu.sp -= 2
	cpu.memory.Write(cpu.sp, bit.Low(value))
	cpu.memory.Write(cpu.sp+1, bit.High(value))
}

func (cpu *CPU) popWord() uint16 {
	low := cpu.memory.Read(cpu.sp)
	high := cpu.memory.Read(cpu.sp + 1)
	cpu.sp += 2
	return bit.Combine(high, low)
}

func (cpu *CPU) push(value uint16) {
	cpu.pushWord(value)
}

func (cpu *CPU) pop() uint16 {
	return cpu.popWord()
}

func (cpu *CPU) call() {
	addr := cpu.readImmediateWord()
	cpu.pushWord(cpu.pc)
	cpu.pc = addr
}

func (cpu *CPU) ret() {
	cpu.pc = cpu.popWord()
}

func (cpu *CPU) rst(addr uint16) {
	cpu.pushWord(cpu.pc)
	cpu.pc = addr
}

// --- 8/16 bit increment/decrement ---

func (cpu *CPU) inc(reg *uint8) {
	result := *reg + 1
	cpu.setFlagToCondition(zeroFlag, result == 0)
	cpu.resetFlag(subFlag)
	cpu.setFlagToCondition(halfCarryFlag, (*reg&0x0F)+1 > 0x0F)
	*reg = result
}

func (cpu *CPU) dec(reg *uint8) {
	result := *reg - 1
	cpu.setFlagToCondition(zeroFlag, result == 0)
	cpu.setFlag(subFlag)
	cpu.setFlagToCondition(halfCarryFlag, *reg&0x0F == 0)
	*reg = result
}

// --- 8 bit ALU ---

func (cpu *CPU) addToA(value uint8) {
	result := uint16(cpu.a) + uint16(value)
	cpu.setFlagToCondition(halfCarryFlag, (cpu.a&0x0F)+(value&0x0F) > 0x0F)
	cpu.setFlagToCondition(carryFlag, result > 0xFF)
	cpu.a = uint8(result)
	cpu.setFlagToCondition(zeroFlag, cpu.a == 0)
	cpu.resetFlag(subFlag)
}

func (cpu *CPU) adc(value uint8) {
	carry := uint8(0)
	if cpu.isSetFlag(carryFlag) {
		carry = 1
	}
	result := uint16(cpu.a) + uint16(value) + uint16(carry)
	cpu.setFlagToCondition(halfCarryFlag, (cpu.a&0x0F)+(value&0x0F)+carry > 0x0F)
	cpu.setFlagToCondition(carryFlag, result > 0xFF)
	cpu.a = uint8(result)
	cpu.setFlagToCondition(zeroFlag, cpu.a == 0)
	cpu.resetFlag(subFlag)
}

func (cpu *CPU) sub(value uint8) {
	cpu.setFlagToCondition(halfCarryFlag, cpu.a&0x0F < value&0x0F)
	cpu.setFlagToCondition(carryFlag, cpu.a < value)
	cpu.a -= value
	cpu.setFlagToCondition(zeroFlag, cpu.a == 0)
	cpu.setFlag(subFlag)
}

func (cpu *CPU) sbc(value uint8) {
	carry := uint8(0)
	if cpu.isSetFlag(carryFlag) {
		carry = 1
	}
	result := int16(cpu.a) - int16(value) - int16(carry)
	cpu.setFlagToCondition(halfCarryFlag, int16(cpu.a&0x0F)-int16(value&0x0F)-int16(carry) < 0)
	cpu.setFlagToCondition(carryFlag, result < 0)
	cpu.a = uint8(result)
	cpu.setFlagToCondition(zeroFlag, cpu.a == 0)
	cpu.setFlag(subFlag)
}

func (cpu *CPU) and(value uint8) {
	cpu.a &= value
	cpu.setFlagToCondition(zeroFlag, cpu.a == 0)
	cpu.resetFlag(subFlag)
	cpu.setFlag(halfCarryFlag)
	cpu.resetFlag(carryFlag)
}

func (cpu *CPU) or(value uint8) {
	cpu.a |= value
	cpu.setFlagToCondition(zeroFlag, cpu.a == 0)
	cpu.resetFlag(subFlag)
	cpu.resetFlag(halfCarryFlag)
	cpu.resetFlag(carryFlag)
}

func (cpu *CPU) xor(value uint8) {
	cpu.a ^= value
	cpu.setFlagToCondition(zeroFlag, cpu.a == 0)
	cpu.resetFlag(subFlag)
	cpu.resetFlag(halfCarryFlag)
	cpu.resetFlag(carryFlag)
}

func (cpu *CPU) cp(value uint8) {
	cpu.setFlagToCondition(zeroFlag, cpu.a == value)
	cpu.setFlag(subFlag)
	cpu.setFlagToCondition(halfCarryFlag, cpu.a&0x0F < value&0x0F)
	cpu.setFlagToCondition(carryFlag, cpu.a < value)
}

// --- 16 bit ALU ---

func (cpu *CPU) addToHL(value uint16) {
	hl := cpu.getHL()
	result := uint32(hl) + uint32(value)
	cpu.resetFlag(subFlag)
	cpu.setFlagToCondition(halfCarryFlag, (hl&0x0FFF)+(value&0x0FFF) > 0x0FFF)
	cpu.setFlagToCondition(carryFlag, result > 0xFFFF)
	cpu.setHL(uint16(result))
}

// daa re-packs the result of the last add/sub into valid BCD, following the
// same branch structure as every hardware DAA implementation: the N flag
// picks add vs. subtract correction, H/C gate the nibble adjustments.
// Grounded on the reference interpreter's cpuDAA().
func (cpu *CPU) daa() {
	correction := uint8(0)
	setCarry := false

	if cpu.isSetFlag(subFlag) {
		if cpu.isSetFlag(halfCarryFlag) {
			correction |= 0x06
		}
		if cpu.isSetFlag(carryFlag) {
			correction |= 0x60
		}
		cpu.a -= correction
		setCarry = cpu.isSetFlag(carryFlag)
	} else {
		if cpu.isSetFlag(halfCarryFlag) || cpu.a&0x0F > 0x09 {
			correction |= 0x06
		}
		if cpu.isSetFlag(carryFlag) || cpu.a > 0x99 {
			correction |= 0x60
			setCarry = true
		}
		cpu.a += correction
	}

	cpu.setFlagToCondition(zeroFlag, cpu.a == 0)
	cpu.resetFlag(halfCarryFlag)
	cpu.setFlagToCondition(carryFlag, setCarry)
}

// --- rotate/shift/bit family, shared by the unprefixed accumulator
// shortcuts (RLCA etc.) and the CB-prefixed register/memory forms ---

func (cpu *CPU) rlc(reg *uint8) {
	carry := *reg&0x80 != 0
	*reg = (*reg << 1) | boolBit(carry)
	cpu.resetFlag(zeroFlag)
	cpu.resetFlag(subFlag)
	cpu.resetFlag(halfCarryFlag)
	cpu.setFlagToCondition(carryFlag, carry)
	cpu.setFlagToCondition(zeroFlag, *reg == 0)
}

func (cpu *CPU) rrc(reg *uint8) {
	carry := *reg&0x01 != 0
	*reg = (*reg >> 1) | (boolBit(carry) << 7)
	cpu.resetFlag(subFlag)
	cpu.resetFlag(halfCarryFlag)
	cpu.setFlagToCondition(carryFlag, carry)
	cpu.setFlagToCondition(zeroFlag, *reg == 0)
}

func (cpu *CPU) rl(reg *uint8) {
	oldCarry := boolBit(cpu.isSetFlag(carryFlag))
	carry := *reg&0x80 != 0
	*reg = (*reg << 1) | oldCarry
	cpu.resetFlag(subFlag)
	cpu.resetFlag(halfCarryFlag)
	cpu.setFlagToCondition(carryFlag, carry)
	cpu.setFlagToCondition(zeroFlag, *reg == 0)
}

func (cpu *CPU) rr(reg *uint8) {
	oldCarry := boolBit(cpu.isSetFlag(carryFlag))
	carry := *reg&0x01 != 0
	*reg = (*reg >> 1) | (oldCarry << 7)
	cpu.resetFlag(subFlag)
	cpu.resetFlag(halfCarryFlag)
	cpu.setFlagToCondition(carryFlag, carry)
	cpu.setFlagToCondition(zeroFlag, *reg == 0)
}

func (cpu *CPU) sla(reg *uint8) {
	carry := *reg&0x80 != 0
	*reg <<= 1
	cpu.resetFlag(subFlag)
	cpu.resetFlag(halfCarryFlag)
	cpu.setFlagToCondition(carryFlag, carry)
	cpu.setFlagToCondition(zeroFlag, *reg == 0)
}

func (cpu *CPU) sra(reg *uint8) {
	carry := *reg&0x01 != 0
	msb := *reg & 0x80
	*reg = (*reg >> 1) | msb
	cpu.resetFlag(subFlag)
	cpu.resetFlag(halfCarryFlag)
	cpu.setFlagToCondition(carryFlag, carry)
	cpu.setFlagToCondition(zeroFlag, *reg == 0)
}

func (cpu *CPU) srl(reg *uint8) {
	carry := *reg&0x01 != 0
	*reg >>= 1
	cpu.resetFlag(subFlag)
	cpu.resetFlag(halfCarryFlag)
	cpu.setFlagToCondition(carryFlag, carry)
	cpu.setFlagToCondition(zeroFlag, *reg == 0)
}

func (cpu *CPU) swap(reg *uint8) {
	*reg = (*reg << 4) | (*reg >> 4)
	cpu.setFlagToCondition(zeroFlag, *reg == 0)
	cpu.resetFlag(subFlag)
	cpu.resetFlag(halfCarryFlag)
	cpu.resetFlag(carryFlag)
}

func (cpu *CPU) bit(position uint8, value uint8) {
	cpu.setFlagToCondition(zeroFlag, value&(1<<position) == 0)
	cpu.resetFlag(subFlag)
	cpu.setFlag(halfCarryFlag)
}

func (cpu *CPU) res(position uint8, reg *uint8) {
	*reg &^= 1 << position
}

func (cpu *CPU) set(position uint8, reg *uint8) {
	*reg |= 1 << position
}

func boolBit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
