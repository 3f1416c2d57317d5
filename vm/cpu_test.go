package vm

import (
	"io"
	"strings"
	"testing"

	"github.com/hexaflex/frame/arch"
)

func TestMOVImmediate(t *testing.T) {
	//   mov $1, 0x2a
	//   hlt

	con, _ := newTestConsole(t, `
.addr 0x200
@main
	mov $1, 0x2a
	hlt
`)

	code, _ := arch.Encode(arch.MOV, arch.AK)
	if got := con.Mem.U8(0x200); got != int(code) {
		t.Fatalf("opcode at 0200 = %02x; want %02x", got, code)
	}

	runProgram(t, con)

	if got := con.CPU.Reg(1); got != 0x2a {
		t.Fatalf("$1 = %02x; want 2a", got)
	}
}

func TestForwardLabelExecution(t *testing.T) {
	//   jmp @end
	//   .byte 0xff
	// @end
	//   hlt

	con, _ := newTestConsole(t, `
.addr 0x200
@main
	jmp @end
.byte 0xff
@end
	hlt
`)

	runProgram(t, con)

	end := con.Program().Labels["end"]
	if got := con.CPU.PC(); got != end+1 {
		t.Fatalf("pc = %04x; want %04x", got, end+1)
	}
}

func TestIndirectLoad(t *testing.T) {
	// Zero page 0x10/0x11 points at 0x0300; load 0x0300+5.

	con, _ := newTestConsole(t, `
.addr 0x10
.byte 0x00, 0x03
.addr 0x305
.byte 0x77
.addr 0x200
@main
	mov $2, (10), 5
	hlt
`)

	runProgram(t, con)

	if got := con.CPU.Reg(2); got != 0x77 {
		t.Fatalf("$2 = %02x; want 77", got)
	}
}

func TestIndirectLoadRegisterOffset(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x10
.byte 0x00, 0x03
.addr 0x305
.byte 0x66
.addr 0x200
@main
	mov $3, 5
	mov $2, (10), $3
	hlt
`)

	runProgram(t, con)

	if got := con.CPU.Reg(2); got != 0x66 {
		t.Fatalf("$2 = %02x; want 66", got)
	}
}

func TestCarryThroughShift(t *testing.T) {
	//   lsh $3 leaves $3 = 02 and carry set; chy copies carry into
	//   zero; brt then branches.

	con, _ := newTestConsole(t, `
.addr 0x200
@main
	mov $3, 0x81
	lsh $3
	chy
	brt @taken
	hlt
@taken
	mov $4, 1
	hlt
`)

	runProgram(t, con)

	if got := con.CPU.Reg(3); got != 0x02 {
		t.Fatalf("$3 = %02x; want 02", got)
	}
	if got := con.CPU.Reg(4); got != 1 {
		t.Fatalf("$4 = %02x; want 01 (branch not taken)", got)
	}
}

func TestPushPop(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x200
@main
	push 0x12
	mov $1, 0x34
	push $1
	pop $2
	pop $3
	hlt
`)

	runProgram(t, con)

	if got := con.CPU.Reg(2); got != 0x34 {
		t.Fatalf("$2 = %02x; want 34", got)
	}
	if got := con.CPU.Reg(3); got != 0x12 {
		t.Fatalf("$3 = %02x; want 12", got)
	}
	if got := con.CPU.Reg(arch.SP); got != 0 {
		t.Fatalf("$s = %02x; want 00", got)
	}
}

func TestStackPointerWrap(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x200
@main
	mov $s, 0xff
	push 0x12
	hlt
`)

	runProgram(t, con)

	if got := con.CPU.Reg(arch.SP); got != 0 {
		t.Fatalf("$s = %02x; want 00", got)
	}
	if got := con.Mem.U8(StackPage + 0xff); got != 0x12 {
		t.Fatalf("stack byte = %02x; want 12", got)
	}
}

func TestCallRet(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x200
@main
	call @sub
	mov $1, 0x11
	hlt
@sub
	mov $2, 0x22
	ret
`)

	runProgram(t, con)

	if got := con.CPU.Reg(1); got != 0x11 {
		t.Fatalf("$1 = %02x; want 11 (control did not return)", got)
	}
	if got := con.CPU.Reg(2); got != 0x22 {
		t.Fatalf("$2 = %02x; want 22", got)
	}
	if got := con.CPU.Reg(arch.SP); got != 0 {
		t.Fatalf("$s = %02x; want 00", got)
	}
}

func TestAddCarry(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x200
@main
	mov $1, 0xf0
	add $1, 0x20
	hlt
`)

	runProgram(t, con)

	if got := con.CPU.Reg(1); got != 0x10 {
		t.Fatalf("$1 = %02x; want 10", got)
	}
	if carry, _, _, _ := con.CPU.Flags(); !carry {
		t.Fatal("carry not set on unsigned overflow")
	}
}

func TestAddThreeOperand(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x200
@main
	mov $2, 3
	mov $3, 4
	add $1, $2, $3
	add $4, $2, 10
	hlt
`)

	runProgram(t, con)

	if got := con.CPU.Reg(1); got != 7 {
		t.Fatalf("$1 = %d; want 7", got)
	}
	if got := con.CPU.Reg(4); got != 13 {
		t.Fatalf("$4 = %d; want 13", got)
	}
}

func TestRolRorInverse(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x200
@main
	mov $1, 0x81
	rol $1
	ror $1
	hlt
`)

	runProgram(t, con)

	if got := con.CPU.Reg(1); got != 0x81 {
		t.Fatalf("$1 = %02x; want 81", got)
	}
}

func TestNotStoresResult(t *testing.T) {
	// not $1, $2 stores the inverted source value into $1.

	con, _ := newTestConsole(t, `
.addr 0x200
@main
	mov $2, 0x0f
	not $1, $2
	not $3, 0xff
	hlt
`)

	runProgram(t, con)

	if got := con.CPU.Reg(1); got != 0xf0 {
		t.Fatalf("$1 = %02x; want f0", got)
	}
	if got := con.CPU.Reg(3); got != 0x00 {
		t.Fatalf("$3 = %02x; want 00", got)
	}
}

func TestNotFlagForm(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x200
@main
	equ $0, 1
	not
	brt @taken
	hlt
@taken
	mov $4, 1
	hlt
`)

	runProgram(t, con)

	if got := con.CPU.Reg(4); got != 1 {
		t.Fatalf("$4 = %d; want 1", got)
	}
}

func TestCompareForms(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x200
@main
	mov $1, 5
	equ $1, 5
	brf @fail
	lss $1, 6
	brf @fail
	lss 4, $1
	brf @fail
	equ 7, 7
	brf @fail
	mov $2, 1
	hlt
@fail
	hlt
`)

	runProgram(t, con)

	if got := con.CPU.Reg(2); got != 1 {
		t.Fatalf("$2 = %d; want 1 (a comparison failed)", got)
	}
}

func TestRegisterZeroIsHardwired(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x200
@main
	mov $0, 5
	hlt
`)

	runProgram(t, con)

	if got := con.CPU.Reg(0); got != 0 {
		t.Fatalf("$0 = %02x; want 00", got)
	}
	if _, _, zero, _ := con.CPU.Flags(); !zero {
		t.Fatal("zero flag not set after write to $0")
	}
}

func TestZeroNegativeFlags(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x200
@main
	mov $1, 0x80
	hlt
`)

	runProgram(t, con)

	if _, _, zero, neg := con.CPU.Flags(); zero || !neg {
		t.Fatalf("flags Z=%v N=%v; want Z=false N=true", zero, neg)
	}
}

func TestJumpOffsets(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x200
@main
	mov $1, 3
	jmp @table, $1
@table
	hlt
	hlt
	hlt
	mov $2, 1
	hlt
`)

	runProgram(t, con)

	if got := con.CPU.Reg(2); got != 1 {
		t.Fatalf("$2 = %d; want 1 (offset jump missed)", got)
	}
}

func TestMemoryStores(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x200
@main
	mov %0400, 0x12
	mov $1, 0x34
	mov %0401, $1
	mov $2, 2
	mov %0400, $1, $2
	mov %0400, $1, 3
	hlt
`)

	runProgram(t, con)

	want := []int{0x12, 0x34, 0x34, 0x34}
	for i, w := range want {
		if got := con.Mem.U8(0x400 + i); got != w {
			t.Fatalf("mem[%04x] = %02x; want %02x", 0x400+i, got, w)
		}
	}
}

func TestInputRegister(t *testing.T) {
	mask := byte(0)
	con, _ := newTestConsoleInput(t, `
.addr 0x200
@main
	mov $1, %e700
	mov $2, %e700
	hlt
`, func() byte { return mask })

	// The two reads must both observe the live value. Change it
	// between cycles by stepping manually.
	con.Run()
	mask = 0xaa
	if err := con.Step(); err != nil {
		t.Fatal(err)
	}
	mask = 0x55
	for con.Running() {
		if err := con.Step(); err != nil {
			t.Fatal(err)
		}
	}

	if got := con.CPU.Reg(1); got != 0xaa {
		t.Fatalf("$1 = %02x; want aa", got)
	}
	if got := con.CPU.Reg(2); got != 0x55 {
		t.Fatalf("$2 = %02x; want 55", got)
	}
}

func TestHltSyscall(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x200
@main
	hlt 3
`)

	var got int
	con.CPU.SetSyscall(func(num int) { got = num })

	runProgram(t, con)

	if got != 3 {
		t.Fatalf("syscall number = %d; want 3", got)
	}
}

func TestInterruptRoundTrip(t *testing.T) {
	// The handler runs once the cycle counter crosses the interrupt
	// period; after ret, PC and SP are back where they were.

	con, _ := newTestConsole(t, `
.addr 0x200
@main
	mov %fffc, @<irq
	mov %fffd, @>irq
	sei
@_loop
	mov $1, $1
	jmp @_loop

@irq
	mov $2, 0x55
	ret
`)

	con.Run()
	for i := 0; i < InterruptPeriod; i++ {
		if err := con.Step(); err != nil {
			t.Fatal(err)
		}
	}

	irq := con.Program().Labels["irq"]
	if got := con.CPU.PC(); got != irq {
		t.Fatalf("pc after %d cycles = %04x; want handler at %04x",
			InterruptPeriod, got, irq)
	}
	if got := con.CPU.Reg(arch.SP); got != 2 {
		t.Fatalf("$s = %02x; want 02 (return address pushed)", got)
	}

	// Execute the handler body and the ret.
	for i := 0; i < 2; i++ {
		if err := con.Step(); err != nil {
			t.Fatal(err)
		}
	}

	if got := con.CPU.Reg(2); got != 0x55 {
		t.Fatalf("$2 = %02x; want 55", got)
	}
	if got := con.CPU.Reg(arch.SP); got != 0 {
		t.Fatalf("$s = %02x; want 00 after ret", got)
	}

	loop := con.Program().Labels["_loop"]
	jmpAddr := loop + 2 // mov $1, $1 occupies two bytes
	if got := con.CPU.PC(); got != jmpAddr {
		t.Fatalf("pc = %04x; want %04x", got, jmpAddr)
	}
}

func TestInterruptDisabled(t *testing.T) {
	con, _ := newTestConsole(t, `
.addr 0x200
@main
	mov %fffc, @<irq
	mov %fffd, @>irq
@_loop
	mov $1, $1
	jmp @_loop

@irq
	mov $2, 0x55
	ret
`)

	con.Run()
	for i := 0; i < InterruptPeriod*2; i++ {
		if err := con.Step(); err != nil {
			t.Fatal(err)
		}
	}

	if got := con.CPU.Reg(2); got != 0 {
		t.Fatalf("$2 = %02x; interrupt fired with interrupts disabled", got)
	}
}

func TestOperandConsumption(t *testing.T) {
	// Every instruction consumes exactly the operand bytes its mode
	// declares. Control transfers are excluded; brt with a clear zero
	// flag falls through and is countable.
	skip := map[arch.Instr]bool{
		arch.JMP:  true,
		arch.BRF:  true,
		arch.CALL: true,
		arch.RET:  true,
	}

	for code := 0; code < 256; code++ {
		op, ok := arch.Decode(byte(code))
		if !ok || skip[op.Instr] {
			continue
		}

		mem := NewMemory(nil)
		cpu := NewCPU(mem)
		mem.SetU8(0x200, code)
		cpu.SetPC(0x200)

		if err := cpu.Step(); err != nil && err != io.EOF {
			t.Fatalf("%s %s: %v", op.Instr, op.Mode, err)
		}

		want := 0x201 + op.Mode.OperandLen()
		if got := cpu.PC(); got != want {
			t.Fatalf("%s %s: pc = %04x; want %04x", op.Instr, op.Mode, got, want)
		}
	}
}

func TestInvalidOpcode(t *testing.T) {
	mem := NewMemory(nil)
	cpu := NewCPU(mem)

	mem.SetU8(0x200, 0xff)
	cpu.SetPC(0x200)

	err := cpu.Step()
	if err == nil || !strings.Contains(err.Error(), "invalid opcode") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPCWrap(t *testing.T) {
	mem := NewMemory(nil)
	cpu := NewCPU(mem)

	code, _ := arch.Encode(arch.MOV, arch.AK)
	mem.SetU8(0xffff, int(code))
	mem.SetU8(0x0000, 0x01)
	mem.SetU8(0x0001, 0x2a)
	cpu.SetPC(0xffff)

	if err := cpu.Step(); err != nil {
		t.Fatal(err)
	}

	if got := cpu.Reg(1); got != 0x2a {
		t.Fatalf("$1 = %02x; want 2a", got)
	}
	if got := cpu.PC(); got != 0x0002 {
		t.Fatalf("pc = %04x; want 0002", got)
	}
}
