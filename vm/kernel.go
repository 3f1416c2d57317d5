package vm

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/hexaflex/frame/asm"
	"github.com/hexaflex/frame/asm/parser"
)

// kernelSource is the kernel program assembled into high memory at
// startup. The argument travels in $1; $d, $e and $f are clobbered, and
// ktxt_print also overwrites $1.
// Cursor updates are bracketed by sei $0 / sei.
const kernelSource = `
# FRAME kernel. Text-mode helpers callable by guest programs.

.def CURSOR %e7bf
.def TEXTBUF %e7c0
.def KSTR (f0)

.addr 0xe000

# Clear every text cell and home the cursor.
@ktxt_clear
	sei $0
	mov $d, 0
@_loop
	mov TEXTBUF, $0, $d
	inc $d
	equ $d, 64
	brf @_loop
	mov CURSOR, $0
	sei
	ret

# Write the character in $1 at the cursor, then advance the cursor.
@ktxt_putch
	sei $0
	mov $d, CURSOR
	mov TEXTBUF, $1, $d
	inc $d
	and $d, 0x3f
	mov CURSOR, $d
	sei
	ret

# Print the zero-terminated string whose address is stored at
# zero-page 0xf0/0xf1.
@ktxt_print
	mov $f, 0
@_loop
	mov $1, KSTR, $f
	brt @_done
	call @ktxt_putch
	inc $f
	brf @_loop
@_done
	ret

# Set the cursor column from $1.
@ktxt_move_x
	sei $0
	mov $d, CURSOR
	and $d, 0x38
	mov $e, $1
	and $e, 0x07
	or $d, $e
	mov CURSOR, $d
	sei
	ret

# Set the cursor row from $1.
@ktxt_move_y
	sei $0
	mov $e, $1
	and $e, 0x07
	lsh $e
	lsh $e
	lsh $e
	mov $d, CURSOR
	and $d, 0x07
	or $d, $e
	mov CURSOR, $d
	sei
	ret

# Default interrupt handler.
@kirq
	ret

.addr 0xfffc
.word @kirq
`

// Kernel holds the assembled kernel image and its exported symbols.
// User programs are assembled with these symbols seeded so they can
// call the text helpers by name.
type Kernel struct {
	code    []byte
	Labels  map[string]int
	Defines map[string]parser.Token
}

// AssembleKernel assembles the kernel source. Failure here is fatal to
// the console.
func AssembleKernel() (*Kernel, error) {
	p, err := asm.Assemble(strings.NewReader(kernelSource), "kernel.asm", nil)
	if err != nil {
		return nil, errors.Wrapf(err, "kernel assembly failed")
	}

	return &Kernel{
		code:    p.Code,
		Labels:  p.Labels,
		Defines: p.Defines,
	}, nil
}

// Install copies the kernel code and its interrupt vector into memory.
func (k *Kernel) Install(m *Memory) {
	m.Write(KernelStart, k.code[KernelStart:KernelEnd])
	m.Write(VectorIRQ, k.code[VectorIRQ:VectorIRQ+2])
}

// External returns the kernel's symbols in the form the assembler
// accepts as seed tables. Local '_' labels stay private to the kernel.
func (k *Kernel) External() *asm.ExternalInfo {
	labels := make(map[string]int, len(k.Labels))
	for name, addr := range k.Labels {
		if !strings.HasPrefix(name, "_") {
			labels[name] = addr
		}
	}

	return &asm.ExternalInfo{
		Labels:  labels,
		Defines: k.Defines,
	}
}
