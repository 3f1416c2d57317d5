package asm

import (
	"fmt"
	"strings"

	"github.com/hexaflex/frame/arch"
	"github.com/hexaflex/frame/asm/parser"
)

// encodeOperands writes the operand bytes for the given mode. The args
// are in source order; modes like APB reorder them at emission so the
// address always lands at the offset the backpatcher expects.
func (a *assembler) encodeOperands(mode arch.Mode, args []argument, opOffset int) error {
	switch mode {
	case arch.O:
		return nil
	case arch.A:
		a.emitReg(args[0])
		return nil
	case arch.K:
		return a.emitImm(args[0].tok)
	case arch.P:
		a.emitAddr(args[0], opOffset)
		return nil
	case arch.AB:
		return a.emitRegPair(args[0], args[1])
	case arch.AK:
		a.emitReg(args[0])
		return a.emitImm(args[1].tok)
	case arch.KA:
		if err := a.emitImm(args[0].tok); err != nil {
			return err
		}
		a.emitReg(args[1])
		return nil
	case arch.KK:
		if err := a.emitImm(args[0].tok); err != nil {
			return err
		}
		return a.emitImm(args[1].tok)
	case arch.AP:
		a.emitReg(args[0])
		a.emitAddr(args[1], opOffset)
		return nil
	case arch.PA:
		a.emitAddr(args[0], opOffset)
		a.emitReg(args[1])
		return nil
	case arch.PK:
		a.emitAddr(args[0], opOffset)
		return a.emitImm(args[1].tok)
	case arch.ABC:
		if err := a.emitRegPair(args[0], args[1]); err != nil {
			return err
		}
		a.emitReg(args[2])
		return nil
	case arch.ABK:
		if err := a.emitRegPair(args[0], args[1]); err != nil {
			return err
		}
		return a.emitImm(args[2].tok)
	case arch.APB:
		a.emitAddr(args[1], opOffset)
		return a.emitRegPair(args[0], args[2])
	case arch.PAB:
		a.emitAddr(args[0], opOffset)
		return a.emitRegPair(args[1], args[2])
	case arch.APK:
		a.emitAddr(args[1], opOffset)
		a.emitReg(args[0])
		return a.emitImm(args[2].tok)
	case arch.PAK:
		a.emitAddr(args[0], opOffset)
		a.emitReg(args[1])
		return a.emitImm(args[2].tok)
	case arch.AIB:
		if err := a.emitRegPair(args[0], args[2]); err != nil {
			return err
		}
		a.emit(byte(args[1].tok.Value))
		return nil
	case arch.AIK:
		a.emitReg(args[0])
		a.emit(byte(args[1].tok.Value))
		return a.emitImm(args[2].tok)
	}
	return fmt.Errorf("unencodable mode %s", mode)
}

// emitReg writes a register operand occupying a full byte. The stack
// pointer fits here.
func (a *assembler) emitReg(arg argument) {
	a.emit(byte(arg.tok.Value))
}

// emitRegPair packs two register operands into one byte: first in the
// low nibble, second in the high nibble. The stack pointer does not fit
// in a nibble.
func (a *assembler) emitRegPair(lo, hi argument) error {
	if lo.tok.Value > 0xf {
		return newError(lo.tok.Pos, "$s cannot be used in this operand position")
	}
	if hi.tok.Value > 0xf {
		return newError(hi.tok.Pos, "$s cannot be used in this operand position")
	}
	a.emit(byte(lo.tok.Value) | byte(hi.tok.Value)<<4)
	return nil
}

// emitImm writes an immediate operand byte. Label-byte references to
// undefined labels are recorded for backpatching.
func (a *assembler) emitImm(tok parser.Token) error {
	if tok.Ref != parser.RefNone {
		if addr, ok := a.labels[tok.Text]; ok {
			if tok.Ref == parser.RefLow {
				a.emit(byte(addr))
			} else {
				a.emit(byte(addr >> 8))
			}
			return nil
		}

		ref := fwdref{a.cursor, tok.Pos}
		if tok.Ref == parser.RefLow {
			a.fwdLow[tok.Text] = append(a.fwdLow[tok.Text], ref)
		} else {
			a.fwdHigh[tok.Text] = append(a.fwdHigh[tok.Text], ref)
		}
		a.emit(0)
		return nil
	}

	if tok.Value > 0xff {
		return newError(tok.Pos, "immediate 0x%x out of range", tok.Value)
	}
	a.emit(byte(tok.Value))
	return nil
}

// emitAddr writes a little-endian address operand. Label references to
// undefined labels record the opcode offset; the backpatcher recovers
// the operand layout from the opcode byte.
func (a *assembler) emitAddr(arg argument, opOffset int) {
	tok := arg.tok

	if tok.Type == parser.Label {
		if addr, ok := a.labels[tok.Text]; ok {
			a.emit(byte(addr))
			a.emit(byte(addr >> 8))
			return
		}

		a.fwdAddr[tok.Text] = append(a.fwdAddr[tok.Text], fwdref{opOffset, tok.Pos})
		a.emit(0)
		a.emit(0)
		return
	}

	a.emit(byte(tok.Value))
	a.emit(byte(tok.Value >> 8))
}

// instrString renders an instruction and its operands for the debug
// listing.
func instrString(in arch.Instr, args []argument) string {
	var sb strings.Builder
	sb.WriteString(in.String())

	for i, arg := range args {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}

		tok := arg.tok
		switch {
		case tok.Type == parser.Register:
			sb.WriteString(arch.RegisterName(tok.Value))
		case tok.Type == parser.Address:
			fmt.Fprintf(&sb, "%%%04x", tok.Value)
		case tok.Type == parser.Indirect:
			fmt.Fprintf(&sb, "(%02x)", tok.Value)
		case tok.Type == parser.Label:
			sb.WriteString("@" + tok.Text)
		case tok.Ref == parser.RefLow:
			sb.WriteString("@<" + tok.Text)
		case tok.Ref == parser.RefHigh:
			sb.WriteString("@>" + tok.Text)
		default:
			fmt.Fprintf(&sb, "0x%02x", tok.Value)
		}
	}

	return sb.String()
}
