// Package asm implements the FRAME assembler. It turns assembly source
// into a 64 KiB memory image in a single pass over the token stream,
// backpatching forward label references as their definitions appear.
package asm

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/hexaflex/frame/arch"
	"github.com/hexaflex/frame/asm/parser"
)

// fwdref records an unresolved reference to a label.
type fwdref struct {
	offset int             // emission offset to patch
	pos    parser.Position // source position of the reference
}

// assembler holds assembler state while a single source is compiled.
type assembler struct {
	tok     *parser.Tokenizer
	cur     parser.Token
	reuse   bool // return cur from the next read instead of advancing
	code    []byte
	cursor  int
	labels  map[string]int
	defines map[string]parser.Token
	fwdAddr map[string][]fwdref // whole addresses; offset names the opcode byte
	fwdLow  map[string][]fwdref // single bytes patched with the label's low byte
	fwdHigh map[string][]fwdref // single bytes patched with the label's high byte
	debug   []DebugLine
}

// Assemble reads assembly source from the given reader and compiles it
// into a memory image. The filename provides source context for error
// messages. External info optionally seeds the label and define tables.
func Assemble(r io.Reader, filename string, ext *ExternalInfo) (*Program, error) {
	tok, err := parser.NewTokenizer(r, filename)
	if err != nil {
		return nil, err
	}

	a := &assembler{
		tok:     tok,
		code:    make([]byte, ImageSize),
		labels:  make(map[string]int),
		defines: make(map[string]parser.Token),
		fwdAddr: make(map[string][]fwdref),
		fwdLow:  make(map[string][]fwdref),
		fwdHigh: make(map[string][]fwdref),
	}

	if ext != nil {
		for name, addr := range ext.Labels {
			a.labels[name] = addr
		}
		for name, tok := range ext.Defines {
			a.defines[name] = tok
		}
	}

	if err := a.assemble(); err != nil {
		return nil, err
	}

	return &Program{
		Code:       a.code,
		Entrypoint: a.labels["main"],
		Labels:     a.labels,
		Defines:    a.defines,
		Debug:      a.debug,
	}, nil
}

// AssembleFile assembles the source file at the given path.
func AssembleFile(path string, ext *ExternalInfo) (*Program, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	return Assemble(fd, path, ext)
}

// assemble runs the main statement loop.
func (a *assembler) assemble() error {
	for {
		tok := a.next()

		switch tok.Type {
		case parser.EOF:
			return a.finish()
		case parser.ErrorToken:
			return newError(tok.Pos, tok.Text)
		case parser.Label:
			if err := a.defineLabel(tok); err != nil {
				return err
			}
		case parser.Directive:
			if err := a.directive(tok); err != nil {
				return err
			}
		case parser.Instruction:
			if err := a.instruction(tok); err != nil {
				return err
			}
		default:
			return newError(tok.Pos, "unexpected %s token", tok.Type)
		}
	}
}

// finish reports unresolved references and checks nothing else is
// pending. Called at end of input.
func (a *assembler) finish() error {
	var names []string
	for name := range a.fwdAddr {
		names = append(names, name)
	}
	for name := range a.fwdLow {
		names = append(names, name)
	}
	for name := range a.fwdHigh {
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil
	}

	sort.Strings(names)
	name := names[0]

	refs := a.fwdAddr[name]
	if len(refs) == 0 {
		refs = a.fwdLow[name]
	}
	if len(refs) == 0 {
		refs = a.fwdHigh[name]
	}
	return newError(refs[0].pos, "reference to undefined label %q", name)
}

// next returns the next token, honoring the one-token lookahead buffer.
func (a *assembler) next() parser.Token {
	if a.reuse {
		a.reuse = false
		return a.cur
	}
	a.cur = a.tok.Next()
	return a.cur
}

// unread arranges for the current token to be returned again by the
// next read. Used by directives and operand lists that end by
// over-reading.
func (a *assembler) unread() {
	a.reuse = true
}

// defineLabel binds the current emission cursor to the label name and
// patches any pending forward references. Names starting with '_' may
// be redefined; the most recent value wins for subsequent references.
func (a *assembler) defineLabel(tok parser.Token) error {
	name := tok.Text

	if _, ok := a.labels[name]; ok && !strings.HasPrefix(name, "_") {
		return newError(tok.Pos, "label %q defined more than once", name)
	}

	a.labels[name] = a.cursor
	return a.patch(name, a.cursor)
}

// patch resolves all pending references to the given label.
func (a *assembler) patch(name string, addr int) error {
	for _, ref := range a.fwdAddr[name] {
		op, ok := arch.Decode(a.code[ref.offset])
		if !ok || op.Mode.AddrOffset() < 0 {
			return newError(ref.pos, "internal error: unpatchable reference to %q", name)
		}
		at := (ref.offset + 1 + op.Mode.AddrOffset()) & 0xffff
		a.code[at] = byte(addr)
		a.code[(at+1)&0xffff] = byte(addr >> 8)
	}
	delete(a.fwdAddr, name)

	for _, ref := range a.fwdLow[name] {
		a.code[ref.offset] = byte(addr)
	}
	delete(a.fwdLow, name)

	for _, ref := range a.fwdHigh[name] {
		a.code[ref.offset] = byte(addr >> 8)
	}
	delete(a.fwdHigh, name)
	return nil
}

// instruction assembles a single instruction statement.
func (a *assembler) instruction(tok parser.Token) error {
	in := arch.Instr(tok.Value)

	args, err := a.collectArgs(in)
	if err != nil {
		return err
	}

	var kinds strings.Builder
	for _, arg := range args {
		kinds.WriteByte(arg.kind)
	}

	mode, ok := arch.ModeForKinds(kinds.String())
	if !ok {
		return newError(tok.Pos, "invalid operands for '%s'; supported modes: %s",
			in, arch.ModesOf(in))
	}

	code, ok := arch.Encode(in, mode)
	if !ok {
		return newError(tok.Pos, "'%s' does not support mode %s; supported modes: %s",
			in, mode, arch.ModesOf(in))
	}

	opOffset := a.cursor
	a.emit(code)
	if err := a.encodeOperands(mode, args, opOffset); err != nil {
		return err
	}

	a.debug = append(a.debug, DebugLine{Addr: opOffset, Text: instrString(in, args)})
	return nil
}

// argument is a single collected operand with its resolved kind.
type argument struct {
	kind byte
	tok  parser.Token
}

// collectArgs reads the comma-separated operand list for the given
// mnemonic. The first operand is consumed only if its kind can begin
// one of the mnemonic's modes, so a label definition following a
// zero-operand instruction is left in the stream.
func (a *assembler) collectArgs(in arch.Instr) ([]argument, error) {
	var args []argument

	for {
		tok := a.next()
		if tok.Type == parser.ErrorToken {
			return nil, newError(tok.Pos, tok.Text)
		}

		substituted := false
		if tok.Type == parser.Ident {
			def, ok := a.defines[tok.Text]
			if !ok {
				return nil, newError(tok.Pos, "unknown identifier %q", tok.Text)
			}
			def.Pos = tok.Pos
			tok = def
			substituted = true
		}

		k, isArg := argKind(tok)
		if !isArg || (len(args) == 0 && !arch.AcceptsPrefix(in, string(k))) {
			if len(args) > 0 {
				return nil, newError(tok.Pos, "expected operand after ','")
			}
			a.unread()
			return args, nil
		}

		if tok.Type == parser.Indirect && !substituted {
			if p := a.next(); p.Type != parser.RightParen {
				return nil, newError(p.Pos, "expected ')' after zero-page address")
			}
		}

		args = append(args, argument{kind: k, tok: tok})

		if c := a.next(); c.Type != parser.Comma {
			a.unread()
			return args, nil
		}
	}
}

// argKind classifies a token as an operand kind.
func argKind(tok parser.Token) (byte, bool) {
	switch tok.Type {
	case parser.Register:
		return arch.KindRegister, true
	case parser.Immediate:
		return arch.KindImmediate, true
	case parser.Address, parser.Label:
		return arch.KindAddress, true
	case parser.Indirect:
		return arch.KindIndirect, true
	}
	return 0, false
}

// directive dispatches a directive statement.
func (a *assembler) directive(tok parser.Token) error {
	switch strings.ToLower(tok.Text) {
	case "addr":
		return a.directiveAddr()
	case "byte":
		return a.directiveByte()
	case "word":
		return a.directiveWord()
	case "def":
		return a.directiveDef()
	}
	return newError(tok.Pos, "unknown directive '.%s'", tok.Text)
}

// directiveAddr sets the emission cursor.
func (a *assembler) directiveAddr() error {
	tok := a.operandToken()
	if tok.Type != parser.Immediate && tok.Type != parser.Address {
		return newError(tok.Pos, "invalid .addr operand; expected address")
	}
	if tok.Ref != parser.RefNone {
		return newError(tok.Pos, "invalid .addr operand; expected address")
	}
	a.cursor = tok.Value & 0xffff
	return nil
}

// directiveByte emits one byte per argument.
func (a *assembler) directiveByte() error {
	for {
		tok := a.operandToken()
		if tok.Type != parser.Immediate {
			return newError(tok.Pos, "invalid .byte value")
		}
		if err := a.emitImm(tok); err != nil {
			return err
		}

		if c := a.next(); c.Type != parser.Comma {
			a.unread()
			return nil
		}
	}
}

// directiveWord emits two bytes per argument, low byte first. Label
// arguments may be forward references.
func (a *assembler) directiveWord() error {
	for {
		tok := a.operandToken()
		switch {
		case tok.Type == parser.Immediate && tok.Ref == parser.RefNone:
			a.emit(byte(tok.Value))
			a.emit(byte(tok.Value >> 8))

		case tok.Type == parser.Label:
			if addr, ok := a.labels[tok.Text]; ok {
				a.emit(byte(addr))
				a.emit(byte(addr >> 8))
			} else {
				a.fwdLow[tok.Text] = append(a.fwdLow[tok.Text], fwdref{a.cursor, tok.Pos})
				a.fwdHigh[tok.Text] = append(a.fwdHigh[tok.Text], fwdref{(a.cursor + 1) & 0xffff, tok.Pos})
				a.emit(0)
				a.emit(0)
			}

		default:
			return newError(tok.Pos, "invalid .word value")
		}

		if c := a.next(); c.Type != parser.Comma {
			a.unread()
			return nil
		}
	}
}

// directiveDef binds a name to the token that follows it.
func (a *assembler) directiveDef() error {
	name := a.next()
	if name.Type != parser.Ident {
		return newError(name.Pos, "invalid .def name")
	}
	if _, ok := a.defines[name.Text]; ok {
		return newError(name.Pos, "duplicate definition %q", name.Text)
	}

	value := a.next()
	switch value.Type {
	case parser.Register, parser.Immediate, parser.Address:
	case parser.Indirect:
		if p := a.next(); p.Type != parser.RightParen {
			return newError(p.Pos, "expected ')' after zero-page address")
		}
	default:
		return newError(value.Pos, "invalid .def value")
	}

	a.defines[name.Text] = value
	return nil
}

// operandToken returns the next token with define substitution applied.
func (a *assembler) operandToken() parser.Token {
	tok := a.next()
	if tok.Type == parser.Ident {
		if def, ok := a.defines[tok.Text]; ok {
			def.Pos = tok.Pos
			return def
		}
	}
	return tok
}

// emit writes a single byte at the emission cursor and advances it.
func (a *assembler) emit(b byte) {
	a.code[a.cursor&0xffff] = b
	a.cursor = (a.cursor + 1) & 0xffff
}
