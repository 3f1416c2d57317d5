package vm

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/hexaflex/frame/asm"
)

// Console owns the machine: memory, CPU, scheduler, renderer and the
// kernel. The host surface and input source are passed in at
// construction.
type Console struct {
	Mem *Memory
	CPU *CPU

	sched    *Scheduler
	renderer *Renderer
	kernel   *Kernel
	program  *asm.Program
}

// NewConsole creates a console drawing to the given surface and reading
// buttons from the given input source. The kernel is assembled once
// here.
func NewConsole(surface Surface, input InputFunc) (*Console, error) {
	kernel, err := AssembleKernel()
	if err != nil {
		return nil, err
	}

	mem := NewMemory(input)
	cpu := NewCPU(mem)
	renderer := NewRenderer(mem, surface)

	c := &Console{
		Mem:      mem,
		CPU:      cpu,
		sched:    NewScheduler(cpu, renderer.Render),
		renderer: renderer,
		kernel:   kernel,
	}

	c.reset(nil, 0)
	return c, nil
}

// Kernel returns the assembled kernel.
func (c *Console) Kernel() *Kernel {
	return c.kernel
}

// Program returns the most recently loaded program, or nil.
func (c *Console) Program() *asm.Program {
	return c.program
}

// LoadSource assembles the given source with the kernel's symbols
// visible and loads the result.
func (c *Console) LoadSource(r io.Reader, name string) error {
	p, err := asm.Assemble(r, name, c.kernel.External())
	if err != nil {
		return err
	}
	c.LoadProgram(p)
	return nil
}

// LoadSourceFile assembles and loads the source file at the given path.
func (c *Console) LoadSourceFile(path string) error {
	fd, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q", path)
	}
	defer fd.Close()
	return c.LoadSource(fd, path)
}

// LoadProgram resets the machine and loads the assembled program. The
// reset vector is overwritten with the program's entry point.
func (c *Console) LoadProgram(p *asm.Program) {
	c.program = p
	c.reset(p, p.Entrypoint)
}

// LoadImage resets the machine and loads a raw memory image. The entry
// point is taken from the image's reset vector.
func (c *Console) LoadImage(image []byte) error {
	if len(image) != asm.ImageSize {
		return errors.Errorf("invalid image size %d; expected %d", len(image), asm.ImageSize)
	}

	p := &asm.Program{
		Code:       image,
		Entrypoint: int(image[VectorReset]) | int(image[VectorReset+1])<<8,
	}
	c.LoadProgram(p)
	return nil
}

// reset restores the machine to its power-on state: memory zeroed,
// font and kernel installed, user program bytes copied in and the
// vectors set.
func (c *Console) reset(p *asm.Program, entry int) {
	c.sched.Stop()
	c.Mem.Reset()
	c.renderer.surface.Clear(0, 0, DisplayWidth, DisplayHeight)
	c.Mem.Write(FontBase, Font[:])
	c.kernel.Install(c.Mem)

	if p != nil {
		// User bytes occupy everything below the kernel. A program may
		// also place its own interrupt vector with .addr; if it did,
		// it overrides the kernel default.
		c.Mem.Write(0, p.Code[:KernelStart])
		if p.Code[VectorIRQ] != 0 || p.Code[VectorIRQ+1] != 0 {
			c.Mem.Write(VectorIRQ, p.Code[VectorIRQ:VectorIRQ+2])
		}
	}

	c.Mem.SetU16(VectorReset, entry)
	c.CPU.Reset()
}

// Reset reloads the current program from its image.
func (c *Console) Reset() {
	entry := 0
	if c.program != nil {
		entry = c.program.Entrypoint
	}
	c.reset(c.program, entry)
}

// Render draws the current text buffer to the host surface.
func (c *Console) Render() {
	c.renderer.Render()
}

// Run starts execution from the reset vector.
func (c *Console) Run() {
	c.sched.Run()
}

// Stop halts execution.
func (c *Console) Stop() {
	c.sched.Stop()
}

// Pause toggles execution without resetting state.
func (c *Console) Pause() {
	c.sched.Pause()
}

// Step executes a single cycle.
func (c *Console) Step() error {
	return c.sched.Step()
}

// Tick advances execution according to wall-clock time.
func (c *Console) Tick(now time.Time) error {
	return c.sched.Tick(now)
}

// Running returns true while the machine is ticking.
func (c *Console) Running() bool {
	return c.sched.Running()
}

// Cycles returns the number of cycles executed since the last Run.
func (c *Console) Cycles() uint64 {
	return c.sched.Cycles()
}
