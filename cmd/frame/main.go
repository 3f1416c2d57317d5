package main

import (
	"log"
	"runtime"
)

// GLFW event handling must run on the main OS thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	config := parseArgs()

	app := NewApp(config)
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
