package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/hexaflex/frame/monitor"
	"github.com/hexaflex/frame/vm"
)

func main() {
	flag.Usage = func() {
		fmt.Printf("%s [program]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// The monitor runs headless; rendering goes nowhere.
	console, err := vm.NewConsole(nullSurface{}, nil)
	if err != nil {
		log.Fatal(err)
	}

	m := monitor.New(console)

	if flag.NArg() > 0 {
		if err := console.LoadSourceFile(flag.Arg(0)); err != nil {
			log.Fatal(err)
		}
	}

	// Break on Ctrl-C.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		for range c {
			m.Break()
		}
	}()

	m.RunCommands(os.Stdin, os.Stdout, true)
}

// nullSurface discards all drawing.
type nullSurface struct{}

func (nullSurface) Clear(x, y, w, h int) {}
func (nullSurface) SetColor(on bool)     {}
func (nullSurface) FillPixel(x, y int)   {}
