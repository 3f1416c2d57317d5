package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// Config defines program configuration.
type Config struct {
	Input   string // Source file to assemble.
	Output  string // Path of the image file to write.
	Listing bool   // Print the debug listing to stdout?
}

// parseArgs parses command line arguments as applicable.
func parseArgs() *Config {
	var c Config

	flag.Usage = func() {
		fmt.Printf("%s [options] <source file>\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.StringVar(&c.Output, "o", "", "Path of the output image. Defaults to the source name with a .bin extension.")
	flag.BoolVar(&c.Listing, "listing", false, "Print the debug listing to stdout.")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	c.Input = flag.Arg(0)
	if c.Output == "" {
		c.Output = strings.TrimSuffix(c.Input, ".asm") + ".bin"
	}
	return &c
}
