// Package monitor implements an interactive debug monitor that mirrors
// CPU state and drives execution of a console from a command stream.
package monitor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/cmd"

	"github.com/hexaflex/frame/arch"
	"github.com/hexaflex/frame/vm"
)

// Monitor wraps a console with an interactive command interpreter.
type Monitor struct {
	con         *vm.Console
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	lastCmd     *cmd.Selection
}

// New creates a monitor for the given console.
func New(con *vm.Console) *Monitor {
	return &Monitor{con: con}
}

// RunCommands accepts monitor commands from a reader and writes results
// to a writer. If interactive, a prompt is displayed while the monitor
// waits for the next command. An empty line repeats the last command.
func (m *Monitor) RunCommands(r io.Reader, w io.Writer, interactive bool) {
	m.input = bufio.NewScanner(r)
	m.output = bufio.NewWriter(w)
	m.interactive = interactive

	for {
		m.prompt()

		line, err := m.getLine()
		if err != nil {
			break
		}

		var c cmd.Selection
		if line != "" {
			c, err = cmds.Lookup(line)
			switch {
			case err == cmd.ErrNotFound:
				m.println("Command not found.")
				continue
			case err == cmd.ErrAmbiguous:
				m.println("Command is ambiguous.")
				continue
			case err != nil:
				m.printf("ERROR: %v.\n", err)
				continue
			}
		} else if m.lastCmd != nil {
			c = *m.lastCmd
		}

		if c.Command == nil {
			continue
		}
		m.lastCmd = &c

		handler := c.Command.Data.(func(*Monitor, cmd.Selection) error)
		if err := handler(m, c); err != nil {
			break
		}
	}

	m.flush()
}

// Break interrupts a running program. Safe to call from a signal
// handler goroutine: the run loop polls the scheduler state.
func (m *Monitor) Break() {
	m.con.Stop()
}

func (m *Monitor) cmdHelp(c cmd.Selection) error {
	m.println(helpText)
	return nil
}

func (m *Monitor) cmdLoad(c cmd.Selection) error {
	if len(c.Args) < 1 {
		m.println("Usage: load <filename>")
		return nil
	}

	path := c.Args[0]
	var err error
	if strings.HasSuffix(path, ".bin") {
		var image []byte
		if image, err = os.ReadFile(path); err == nil {
			err = m.con.LoadImage(image)
		}
	} else {
		err = m.con.LoadSourceFile(path)
	}

	if err != nil {
		m.printf("ERROR: %v\n", err)
		return nil
	}

	m.printf("Loaded '%s'; entry point %04x.\n", path, m.con.CPU.PC())
	return nil
}

func (m *Monitor) cmdRun(c cmd.Selection) error {
	m.con.Run()

	for m.con.Running() {
		if err := m.con.Tick(time.Now()); err != nil {
			m.printf("ERROR: %v\n", err)
			break
		}
		time.Sleep(vm.TickInterval / 4)
	}

	m.println("Stopped.")
	m.displayPC()
	return nil
}

func (m *Monitor) cmdStop(c cmd.Selection) error {
	m.con.Stop()
	m.println("Stopped.")
	return nil
}

func (m *Monitor) cmdPause(c cmd.Selection) error {
	m.con.Pause()
	if m.con.Running() {
		m.println("Running.")
	} else {
		m.println("Paused.")
	}
	return nil
}

func (m *Monitor) cmdStep(c cmd.Selection) error {
	count := 1
	if len(c.Args) > 0 {
		n, err := strconv.Atoi(c.Args[0])
		if err != nil || n < 1 {
			m.println("Usage: step [<count>]")
			return nil
		}
		count = n
	}

	for i := 0; i < count; i++ {
		if err := m.con.Step(); err != nil {
			m.printf("ERROR: %v\n", err)
			break
		}
	}

	m.displayPC()
	return nil
}

func (m *Monitor) cmdReset(c cmd.Selection) error {
	m.con.Reset()
	m.println("Reset.")
	return nil
}

func (m *Monitor) cmdRegisters(c cmd.Selection) error {
	cpu := m.con.CPU

	for i := 0; i < arch.NumRegisters-1; i++ {
		m.printf("%3s %02x", arch.RegisterName(i), cpu.Reg(i))
		if i%8 == 7 {
			m.println()
		}
	}

	carry, ie, zero, neg := cpu.Flags()
	m.printf(" $s %02x   pc %04x   C=%d I=%d Z=%d N=%d\n",
		cpu.Reg(arch.SP), cpu.PC(), flag(carry), flag(ie), flag(zero), flag(neg))
	return nil
}

func (m *Monitor) cmdMemory(c cmd.Selection) error {
	if len(c.Args) < 1 {
		m.println("Usage: memory <addr> [<bytes>]")
		return nil
	}

	addr, err := parseAddr(c.Args[0])
	if err != nil {
		m.printf("ERROR: %v\n", err)
		return nil
	}

	count := 64
	if len(c.Args) > 1 {
		if count, err = strconv.Atoi(c.Args[1]); err != nil || count < 1 {
			m.println("Usage: memory <addr> [<bytes>]")
			return nil
		}
	}

	for row := addr; row < addr+count; row += 16 {
		m.printf("%04x ", row&0xffff)
		for i := 0; i < 16 && row+i < addr+count; i++ {
			m.printf(" %02x", m.con.Mem.U8(row+i))
		}
		m.println()
	}
	return nil
}

func (m *Monitor) cmdList(c cmd.Selection) error {
	prog := m.con.Program()
	if prog == nil || len(prog.Debug) == 0 {
		m.println("No debug listing available.")
		return nil
	}

	pc := m.con.CPU.PC()
	start := 0
	for i, line := range prog.Debug {
		if line.Addr > pc {
			break
		}
		start = i
	}

	for i := start; i < len(prog.Debug) && i < start+10; i++ {
		line := prog.Debug[i]
		marker := ' '
		if line.Addr == pc {
			marker = '*'
		}
		m.printf("%c %04x  %s\n", marker, line.Addr, line.Text)
	}
	return nil
}

func (m *Monitor) cmdScreen(c cmd.Selection) error {
	m.println("+--------+")
	for y := 0; y < vm.TextRows; y++ {
		m.printf("|")
		for x := 0; x < vm.TextColumns; x++ {
			ch := m.con.Mem.U8(vm.TextBuffer + y*vm.TextColumns + x)
			if ch < 0x20 || ch > 0x7e {
				ch = ' '
			}
			m.printf("%c", ch)
		}
		m.println("|")
	}
	m.println("+--------+")
	return nil
}

func (m *Monitor) cmdQuit(c cmd.Selection) error {
	return io.EOF
}

// displayPC shows the debug listing entry at the program counter.
func (m *Monitor) displayPC() {
	pc := m.con.CPU.PC()

	if prog := m.con.Program(); prog != nil {
		for _, line := range prog.Debug {
			if line.Addr == pc {
				m.printf("* %04x  %s\n", line.Addr, line.Text)
				return
			}
		}
	}
	m.printf("* %04x\n", pc)
}

func (m *Monitor) getLine() (string, error) {
	if m.input.Scan() {
		return strings.TrimSpace(m.input.Text()), nil
	}
	if m.input.Err() != nil {
		return "", m.input.Err()
	}
	return "", io.EOF
}

func (m *Monitor) prompt() {
	if m.interactive {
		m.printf("* ")
		m.flush()
	}
}

func (m *Monitor) printf(format string, args ...interface{}) {
	fmt.Fprintf(m.output, format, args...)
	m.flush()
}

func (m *Monitor) println(args ...interface{}) {
	fmt.Fprintln(m.output, args...)
	m.flush()
}

func (m *Monitor) flush() {
	m.output.Flush()
}

// parseAddr parses a 16-bit hexadecimal address.
func parseAddr(s string) (int, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return int(v), nil
}

func flag(v bool) int {
	if v {
		return 1
	}
	return 0
}
