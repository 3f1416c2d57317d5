package monitor

import "github.com/beevik/cmd"

var cmds *cmd.Tree

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "frame"})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "help",
		Brief:       "Display monitor help",
		Description: "Display a summary of all monitor commands.",
		Usage:       "help",
		Data:        (*Monitor).cmdHelp,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "load",
		Brief:       "Load a program",
		Description: "Assemble and load a source file, or load a raw memory image if the file ends in .bin.",
		Usage:       "load <filename>",
		Data:        (*Monitor).cmdLoad,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "run",
		Brief:       "Run the loaded program",
		Description: "Start execution from the reset vector and run until the machine pauses.",
		Usage:       "run",
		Data:        (*Monitor).cmdRun,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "stop",
		Brief:       "Stop execution",
		Description: "Halt the ticker.",
		Usage:       "stop",
		Data:        (*Monitor).cmdStop,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "pause",
		Brief:       "Toggle execution",
		Description: "Pause or resume ticking without resetting any state.",
		Usage:       "pause",
		Data:        (*Monitor).cmdPause,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "step",
		Brief:       "Single-step the CPU",
		Description: "Execute one cycle, or the given number of cycles.",
		Usage:       "step [<count>]",
		Data:        (*Monitor).cmdStep,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "reset",
		Brief:       "Reset the machine",
		Description: "Reload the current program and restore the power-on state.",
		Usage:       "reset",
		Data:        (*Monitor).cmdReset,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "registers",
		Brief:       "Display CPU state",
		Description: "Display the registers, program counter and flags.",
		Usage:       "registers",
		Data:        (*Monitor).cmdRegisters,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "memory",
		Brief:       "Dump memory",
		Description: "Dump memory starting at the given hex address.",
		Usage:       "memory <addr> [<bytes>]",
		Data:        (*Monitor).cmdMemory,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List the debug listing",
		Description: "Display the assembled instructions surrounding the program counter.",
		Usage:       "list",
		Data:        (*Monitor).cmdList,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "screen",
		Brief:       "Dump the text buffer",
		Description: "Display the 8x8 text buffer as characters.",
		Usage:       "screen",
		Data:        (*Monitor).cmdScreen,
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "quit",
		Brief:       "Quit the monitor",
		Description: "Exit the monitor.",
		Usage:       "quit",
		Data:        (*Monitor).cmdQuit,
	})
	cmds = root
}

const helpText = `Monitor commands:
  help                 Display this help.
  load <file>          Assemble and load a source file (.bin loads raw).
  run                  Run until the machine pauses.
  stop                 Halt execution.
  pause                Toggle execution.
  step [n]             Execute one or more cycles.
  reset                Restore the power-on state.
  registers            Display registers and flags.
  memory <addr> [n]    Dump memory (hex address).
  list                 List instructions around PC.
  screen               Dump the text buffer.
  quit                 Exit the monitor.
Commands may be abbreviated to any unique prefix.`
