// Package vm implements the FRAME virtual machine: memory, CPU,
// scheduler, text renderer and the kernel assembled into high memory.
package vm

import (
	"io"

	"github.com/hexaflex/frame/arch"
)

// TraceFunc represents a callback handler for debug trace output. It is
// invoked after decode, before execution.
type TraceFunc func(*Instruction)

// SyscallFunc handles the reserved hlt A / hlt K syscall entry. The
// machine pauses afterwards either way.
type SyscallFunc func(num int)

// CPU implements the fetch-decode-execute core.
type CPU struct {
	mem        *Memory
	reg        [arch.NumRegisters]byte
	pc         int
	carry      bool
	intEnabled bool
	zero       bool
	negative   bool
	trace      TraceFunc
	syscall    SyscallFunc
	instr      Instruction
}

// NewCPU creates a CPU bound to the given memory bank.
func NewCPU(mem *Memory) *CPU {
	return &CPU{mem: mem}
}

// SetTrace installs a debug trace handler.
func (c *CPU) SetTrace(trace TraceFunc) {
	c.trace = trace
}

// SetSyscall installs a handler for the reserved hlt syscall forms.
func (c *CPU) SetSyscall(fn SyscallFunc) {
	c.syscall = fn
}

// Reset clears registers and flags and loads PC from the reset vector.
func (c *CPU) Reset() {
	for i := range c.reg {
		c.reg[i] = 0
	}
	c.carry = false
	c.intEnabled = false
	c.zero = false
	c.negative = false
	c.pc = c.mem.U16(VectorReset)
}

// PC returns the program counter.
func (c *CPU) PC() int {
	return c.pc
}

// SetPC sets the program counter.
func (c *CPU) SetPC(addr int) {
	c.pc = addr & 0xffff
}

// Reg returns the value of the given register. Register 0 reads as 0.
func (c *CPU) Reg(i int) int {
	return int(c.reg[i])
}

// Flags returns the carry, interrupt-enable, zero and negative flags.
func (c *CPU) Flags() (carry, intEnabled, zero, negative bool) {
	return c.carry, c.intEnabled, c.zero, c.negative
}

// IntEnabled returns the state of the interrupt-enable flag.
func (c *CPU) IntEnabled() bool {
	return c.intEnabled
}

// setReg writes a register and recomputes the zero and negative flags
// from the register's resulting value. Writes to register 0 are
// discarded, so they always leave zero set.
func (c *CPU) setReg(i, v int) {
	v &= 0xff
	if i == 0 {
		v = 0
	} else {
		c.reg[i] = byte(v)
	}
	c.updateZN(v)
}

// store writes a memory byte and recomputes the zero and negative flags.
func (c *CPU) store(addr, v int) {
	v &= 0xff
	c.mem.SetU8(addr, v)
	c.updateZN(v)
}

// updateZN recomputes the zero and negative flags from v.
func (c *CPU) updateZN(v int) {
	c.zero = v == 0
	c.negative = v&0x80 != 0
}

// fetch8 reads the byte at PC and advances PC, wrapping at 64 KiB.
func (c *CPU) fetch8() int {
	v := c.mem.U8(c.pc)
	c.pc = (c.pc + 1) & 0xffff
	return v
}

// fetch16 reads a little-endian 16-bit value at PC.
func (c *CPU) fetch16() int {
	lo := c.fetch8()
	hi := c.fetch8()
	return lo | hi<<8
}

// push writes a byte at the stack pointer, then increments it. The
// stack pointer wraps within the stack page and its bookkeeping does
// not touch the flags; the stack byte store behaves as an ordinary
// memory write.
func (c *CPU) push(v int) {
	sp := int(c.reg[arch.SP])
	c.store(StackPage+sp, v)
	c.reg[arch.SP] = byte(sp + 1)
}

// pop decrements the stack pointer, then reads the byte it addresses.
func (c *CPU) pop() int {
	sp := byte(c.reg[arch.SP] - 1)
	c.reg[arch.SP] = sp
	return c.mem.U8(StackPage + int(sp))
}

// pushAddress pushes a 16-bit value, high byte first, so the low byte
// is on top and pops in low-then-high order.
func (c *CPU) pushAddress(addr int) {
	c.push(addr >> 8)
	c.push(addr)
}

// popAddress pops a 16-bit value, low byte first.
func (c *CPU) popAddress() int {
	lo := c.pop()
	hi := c.pop()
	return (lo | hi<<8) & 0xffff
}

// IRQ forces a call into the handler named by the interrupt vector,
// provided the interrupt-enable flag is set. The flag is not cleared;
// guest code manages it. Returns true if the interrupt was taken.
func (c *CPU) IRQ() bool {
	if !c.intEnabled {
		return false
	}
	c.pushAddress(c.pc)
	c.pc = c.mem.U16(VectorIRQ)
	return true
}

// Step executes a single instruction. It returns io.EOF when the
// machine requests a pause (hlt), or an Error for an invalid opcode.
func (c *CPU) Step() error {
	in := &c.instr
	if err := c.decode(in); err != nil {
		return err
	}

	if c.trace != nil {
		c.trace(in)
	}

	return c.execute(in)
}

// execute dispatches a decoded instruction.
func (c *CPU) execute(in *Instruction) error {
	mode := in.Op.Mode

	switch in.Op.Instr {
	case arch.HLT:
		switch mode {
		case arch.A:
			if c.syscall != nil {
				c.syscall(c.Reg(in.A))
			}
		case arch.K:
			if c.syscall != nil {
				c.syscall(in.K)
			}
		}
		return io.EOF

	case arch.MOV:
		c.mov(in)

	case arch.JMP:
		c.pc = c.target(in)

	case arch.BRT:
		if c.zero {
			c.pc = c.target(in)
		}

	case arch.BRF:
		if !c.zero {
			c.pc = c.target(in)
		}

	case arch.EQU:
		lhs, rhs := c.compareOperands(in)
		c.zero = lhs == rhs

	case arch.LSS:
		lhs, rhs := c.compareOperands(in)
		c.zero = lhs < rhs

	case arch.AND:
		c.setReg(in.A, c.Reg(in.A)&c.operandBK(in))

	case arch.OR:
		c.setReg(in.A, c.Reg(in.A)|c.operandBK(in))

	case arch.XOR:
		c.setReg(in.A, c.Reg(in.A)^c.operandBK(in))

	case arch.NOT:
		switch mode {
		case arch.O:
			c.zero = !c.zero
		case arch.A:
			nz := !c.zero
			c.setReg(in.A, bit(nz))
			c.zero = nz
		default:
			c.setReg(in.A, ^c.operandBK(in)&0xff)
		}

	case arch.LSH:
		v := c.Reg(in.A)
		c.carry = v&0x80 != 0
		c.setReg(in.A, v<<1)

	case arch.RSH:
		v := c.Reg(in.A)
		c.carry = v&1 != 0
		c.setReg(in.A, v>>1)

	case arch.ROL:
		v := c.Reg(in.A)
		nv := v<<1 | bit(c.carry)
		c.carry = v&0x80 != 0
		c.setReg(in.A, nv)

	case arch.ROR:
		v := c.Reg(in.A)
		nv := v>>1 | bit(c.carry)<<7
		c.carry = v&1 != 0
		c.setReg(in.A, nv)

	case arch.ADD:
		var sum int
		switch mode {
		case arch.AB:
			sum = c.Reg(in.A) + c.Reg(in.B)
		case arch.AK:
			sum = c.Reg(in.A) + in.K
		case arch.ABC:
			sum = c.Reg(in.B) + c.Reg(in.C)
		case arch.ABK:
			sum = c.Reg(in.B) + in.K
		}
		c.carry = sum > 0xff
		c.setReg(in.A, sum)

	case arch.INC:
		c.setReg(in.A, c.Reg(in.A)+1)

	case arch.DEC:
		c.setReg(in.A, c.Reg(in.A)-1)

	case arch.CALL:
		c.pushAddress(c.pc)
		c.pc = in.P

	case arch.RET:
		c.pc = c.popAddress()

	case arch.PUSH:
		if mode == arch.A {
			c.push(c.Reg(in.A))
		} else {
			c.push(in.K)
		}

	case arch.POP:
		if mode == arch.A {
			c.setReg(in.A, c.pop())
		} else {
			c.pop()
		}

	case arch.SEI:
		switch mode {
		case arch.O:
			c.intEnabled = true
		case arch.A:
			c.intEnabled = c.Reg(in.A) != 0
		case arch.K:
			c.intEnabled = in.K != 0
		}

	case arch.CHY:
		c.zero = c.carry
	}

	return nil
}

// mov dispatches the copy forms.
func (c *CPU) mov(in *Instruction) {
	switch in.Op.Mode {
	case arch.AB:
		c.setReg(in.A, c.Reg(in.B))
	case arch.AK:
		c.setReg(in.A, in.K)
	case arch.AP:
		c.setReg(in.A, c.mem.U8(in.P))
	case arch.PA:
		c.store(in.P, c.Reg(in.A))
	case arch.PK:
		c.store(in.P, in.K)
	case arch.APB:
		c.setReg(in.A, c.mem.U8(in.P+c.Reg(in.B)))
	case arch.APK:
		c.setReg(in.A, c.mem.U8(in.P+in.K))
	case arch.PAB:
		c.store(in.P+c.Reg(in.B), c.Reg(in.A))
	case arch.PAK:
		c.store(in.P+in.K, c.Reg(in.A))
	case arch.AIB:
		c.setReg(in.A, c.mem.U8(c.indirectBase(in.I)+c.Reg(in.B)))
	case arch.AIK:
		c.setReg(in.A, c.mem.U8(c.indirectBase(in.I)+in.K))
	}
}

// indirectBase reads a 16-bit base pointer from the zero page: low byte
// at I, high byte at I+1 mod 256.
func (c *CPU) indirectBase(i int) int {
	lo := c.mem.U8(i & 0xff)
	hi := c.mem.U8((i + 1) & 0xff)
	return lo | hi<<8
}

// target computes a branch or jump destination, optionally offset by a
// register or an immediate.
func (c *CPU) target(in *Instruction) int {
	switch in.Op.Mode {
	case arch.PA:
		return (in.P + c.Reg(in.A)) & 0xffff
	case arch.PK:
		return (in.P + in.K) & 0xffff
	}
	return in.P
}

// compareOperands returns the two values compared by equ and lss.
func (c *CPU) compareOperands(in *Instruction) (lhs, rhs int) {
	switch in.Op.Mode {
	case arch.AB:
		return c.Reg(in.A), c.Reg(in.B)
	case arch.AK:
		return c.Reg(in.A), in.K
	case arch.KA:
		return in.K, c.Reg(in.A)
	default:
		return in.K, in.K2
	}
}

// operandBK returns the second operand of a two-operand bitwise form.
func (c *CPU) operandBK(in *Instruction) int {
	if in.Op.Mode == arch.AB {
		return c.Reg(in.B)
	}
	return in.K
}

func bit(v bool) int {
	if v {
		return 1
	}
	return 0
}
