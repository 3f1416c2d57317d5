package vm

import (
	"fmt"
	"strings"

	"github.com/hexaflex/frame/arch"
)

// Instruction holds decoded instruction data for one cycle.
type Instruction struct {
	IP int      // Address of the opcode byte.
	Op *arch.Op // Resolved (mnemonic, mode, opcode).
	A  int      // First register operand.
	B  int      // Second register operand.
	C  int      // Third register operand.
	K  int      // Immediate operand.
	K2 int      // Second immediate operand (KK mode).
	P  int      // Address operand.
	I  int      // Indirect zero-page pointer operand.
}

// decode reads the opcode at PC and consumes its operand bytes. The
// byte reader is shared with instruction fetch, so reads that land on
// the input register see the live button mask.
func (c *CPU) decode(in *Instruction) error {
	in.IP = c.pc

	code := byte(c.fetch8())
	op, ok := arch.Decode(code)
	if !ok {
		return &Error{IP: in.IP, Msg: fmt.Sprintf("invalid opcode %02x", code)}
	}
	in.Op = op

	switch op.Mode {
	case arch.O:
	case arch.A:
		in.A = c.fetchReg()
	case arch.K:
		in.K = c.fetch8()
	case arch.P:
		in.P = c.fetch16()
	case arch.AB:
		c.fetchRegPair(&in.A, &in.B)
	case arch.AK:
		in.A = c.fetchReg()
		in.K = c.fetch8()
	case arch.KA:
		in.K = c.fetch8()
		in.A = c.fetchReg()
	case arch.KK:
		in.K = c.fetch8()
		in.K2 = c.fetch8()
	case arch.AP:
		in.A = c.fetchReg()
		in.P = c.fetch16()
	case arch.PA:
		in.P = c.fetch16()
		in.A = c.fetchReg()
	case arch.PK:
		in.P = c.fetch16()
		in.K = c.fetch8()
	case arch.ABC:
		c.fetchRegPair(&in.A, &in.B)
		in.C = c.fetchReg()
	case arch.ABK:
		c.fetchRegPair(&in.A, &in.B)
		in.K = c.fetch8()
	case arch.APB, arch.PAB:
		in.P = c.fetch16()
		c.fetchRegPair(&in.A, &in.B)
	case arch.APK, arch.PAK:
		in.P = c.fetch16()
		in.A = c.fetchReg()
		in.K = c.fetch8()
	case arch.AIB:
		c.fetchRegPair(&in.A, &in.B)
		in.I = c.fetch8()
	case arch.AIK:
		in.A = c.fetchReg()
		in.I = c.fetch8()
		in.K = c.fetch8()
	}

	return nil
}

// fetchReg reads a dedicated register byte. Out-of-range values fall
// back to their low nibble.
func (c *CPU) fetchReg() int {
	v := c.fetch8()
	if v >= arch.NumRegisters {
		v &= 0x0f
	}
	return v
}

// fetchRegPair reads a packed register byte: first operand in the low
// nibble, second in the high nibble.
func (c *CPU) fetchRegPair(a, b *int) {
	v := c.fetch8()
	*a = v & 0x0f
	*b = v >> 4
}

// String renders the decoded instruction for trace output.
func (in *Instruction) String() string {
	if in.Op == nil {
		return fmt.Sprintf("%04x ???", in.IP)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%04x %-4s", in.IP, in.Op.Instr)

	regs := []int{in.A, in.B, in.C}
	for i, k := range in.Op.Mode.Kinds() {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		switch byte(k) {
		case arch.KindRegister:
			sb.WriteString(arch.RegisterName(regs[0]))
			regs = regs[1:]
		case arch.KindImmediate:
			if in.Op.Mode == arch.KK && i == 1 {
				fmt.Fprintf(&sb, "0x%02x", in.K2)
			} else {
				fmt.Fprintf(&sb, "0x%02x", in.K)
			}
		case arch.KindAddress:
			fmt.Fprintf(&sb, "%%%04x", in.P)
		case arch.KindIndirect:
			fmt.Fprintf(&sb, "(%02x)", in.I)
		}
	}

	return sb.String()
}
