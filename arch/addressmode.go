package arch

import (
	"github.com/beevik/prefixtree/v2"
)

// Mode identifies the shape of an instruction's operand list.
type Mode byte

// Known addressing modes. A, B and C name the first, second and third
// register operand; K is an immediate, P an address and I an indirect
// zero-page pointer.
const (
	O   Mode = iota // no operands
	A               // register
	K               // immediate
	P               // address
	AB              // register, register
	AK              // register, immediate
	AP              // register, address
	KA              // immediate, register
	KK              // immediate, immediate
	PA              // address, register
	PK              // address, immediate
	ABC             // register, register, register
	ABK             // register, register, immediate
	APB             // register, address, register
	APK             // register, address, immediate
	AIB             // register, indirect, register
	AIK             // register, indirect, immediate
	PAB             // address, register, register
	PAK             // address, register, immediate
)

// Argument kind characters. Registers canonicalize to KindRegister
// regardless of their position in the operand list.
const (
	KindRegister  = 'A'
	KindImmediate = 'K'
	KindAddress   = 'P'
	KindIndirect  = 'I'
)

var modeNames = []string{
	"O", "A", "K", "P", "AB", "AK", "AP", "KA", "KK", "PA", "PK",
	"ABC", "ABK", "APB", "APK", "AIB", "AIK", "PAB", "PAK",
}

// modeKinds maps each mode to its argument kind sequence.
var modeKinds = []string{
	"", "A", "K", "P", "AA", "AK", "AP", "KA", "KK", "PA", "PK",
	"AAA", "AAK", "APA", "APK", "AIA", "AIK", "PAA", "PAK",
}

// operandLen holds the number of operand bytes following the opcode.
var operandLen = []int{
	0, // O
	1, // A
	1, // K
	2, // P
	1, // AB: packed nibbles
	2, // AK
	3, // AP
	2, // KA
	2, // KK
	3, // PA
	3, // PK
	2, // ABC: packed nibbles + C
	2, // ABK: packed nibbles + immediate
	3, // APB: emitted as P then AB
	4, // APK: emitted as P, A, K
	2, // AIB: emitted as ABK with I in the K slot
	3, // AIK
	3, // PAB
	4, // PAK
}

// addrOffset holds the operand byte offset of the address low byte for
// modes carrying an address, or -1.
var addrOffset = []int{
	-1, -1, -1,
	0,          // P
	-1, -1,
	1,          // AP: register byte precedes the address
	-1, -1,
	0,          // PA
	0,          // PK
	-1, -1,
	0,          // APB
	0,          // APK
	-1, -1,
	0,          // PAB
	0,          // PAK
}

// modeTree resolves an argument kind sequence to its addressing mode.
// Keys carry a terminator so no sequence is a prefix of a longer one;
// every lookup is an exact match.
var modeTree = prefixtree.New[Mode]()

func init() {
	for m, kinds := range modeKinds {
		if kinds != "" {
			modeTree.Add(kinds+".", Mode(m))
		}
	}
}

// ModeForKinds returns the addressing mode selected by the given ordered
// argument kind sequence. Returns false if no such mode exists.
func ModeForKinds(kinds string) (Mode, bool) {
	if kinds == "" {
		return O, true
	}
	m, err := modeTree.FindValue(kinds + ".")
	if err != nil {
		return 0, false
	}
	return m, true
}

// Kinds returns the mode's argument kind sequence.
func (m Mode) Kinds() string {
	return modeKinds[m]
}

// OperandLen returns the number of operand bytes following the opcode.
func (m Mode) OperandLen() int {
	return operandLen[m]
}

// AddrOffset returns the operand byte offset at which the address low
// byte is stored. Returns -1 for modes without an address operand.
func (m Mode) AddrOffset() int {
	return addrOffset[m]
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "?"
}
