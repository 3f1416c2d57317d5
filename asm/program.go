package asm

import (
	"fmt"
	"io"

	"github.com/hexaflex/frame/asm/parser"
)

// ImageSize is the size of an assembled memory image.
const ImageSize = 0x10000

// DebugLine maps an emission offset to the printable form of the
// instruction assembled there.
type DebugLine struct {
	Addr int
	Text string
}

// Program holds the output of a successful assembly.
type Program struct {
	Code       []byte                  // Full memory image.
	Entrypoint int                     // Address of the "main" label, or 0.
	Labels     map[string]int          // Label table, including seeded entries.
	Defines    map[string]parser.Token // Define table, including seeded entries.
	Debug      []DebugLine             // Debug listing in emission order.
}

// ExternalInfo seeds an assembly with pre-resolved symbols, making
// kernel labels and defines visible to user programs.
type ExternalInfo struct {
	Labels  map[string]int
	Defines map[string]parser.Token
}

// WriteTo writes the memory image to the given writer.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(p.Code)
	return int64(n), err
}

// WriteListing writes the debug listing to the given writer.
func (p *Program) WriteListing(w io.Writer) error {
	for _, line := range p.Debug {
		if _, err := fmt.Fprintf(w, "%04x  %s\n", line.Addr, line.Text); err != nil {
			return err
		}
	}
	return nil
}
