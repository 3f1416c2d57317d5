package main

import (
	"fmt"
	"log"
	"os"

	"github.com/hexaflex/frame/asm"
	"github.com/hexaflex/frame/vm"
)

func main() {
	config := parseArgs()

	// Kernel symbols are visible to user programs, exactly as they are
	// when a source file is loaded by the console directly.
	kernel, err := vm.AssembleKernel()
	if err != nil {
		log.Fatal(err)
	}

	prog, err := asm.AssembleFile(config.Input, kernel.External())
	if err != nil {
		log.Fatal(err)
	}

	// Bake the entry point into the image so a raw load finds it.
	prog.Code[vm.VectorReset] = byte(prog.Entrypoint)
	prog.Code[vm.VectorReset+1] = byte(prog.Entrypoint >> 8)

	fd, err := os.OpenFile(config.Output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		log.Fatal(err)
	}
	defer fd.Close()

	if _, err = prog.WriteTo(fd); err != nil {
		log.Fatal(err)
	}

	if config.Listing {
		if err = prog.WriteListing(os.Stdout); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Printf("Assembled '%s' to '%s'; entry point %04x.\n",
		config.Input, config.Output, prog.Entrypoint)
}
