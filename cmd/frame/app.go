package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-gl/gl/v4.2-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"

	"github.com/hexaflex/frame/display"
	"github.com/hexaflex/frame/input"
	"github.com/hexaflex/frame/vm"
)

// App defines application context.
type App struct {
	config       *Config           // Application configuration.
	window       *glfw.Window      // OpenGL/GLFW context.
	console      *vm.Console       // The machine itself.
	display      *display.Device   // Host surface.
	keyboard     *input.Keyboard   // Button state source.
	lastRendered time.Time         // Last time a frame was rendered.
}

// NewApp creates a new application instance using the given configuration.
func NewApp(config *Config) *App {
	return &App{
		config:   config,
		display:  display.New(),
		keyboard: input.New(),
	}
}

// Run runs the application and does not return until it is finished
// or an error occurred during initialization.
func (a *App) Run() error {
	if err := a.initGL(); err != nil {
		return err
	}

	defer a.dispose()

	log.Println(Version())

	console, err := vm.NewConsole(a.display, a.keyboard.Mask)
	if err != nil {
		return err
	}
	a.console = console

	if a.config.PrintTrace {
		console.CPU.SetTrace(a.printTrace)
	}

	if err := a.loadProgram(); err != nil {
		return err
	}

	printHelp()
	console.Run()

	for !a.window.ShouldClose() {
		a.mainLoop()
	}

	return nil
}

// mainLoop performs all main loop operations.
func (a *App) mainLoop() {
	if err := a.console.Tick(time.Now()); err != nil {
		log.Println(err)
	}

	// Periodically render display contents.
	if time.Since(a.lastRendered) >= time.Second/60 {
		a.lastRendered = time.Now()
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		a.display.Draw()
		a.window.SwapBuffers()
	}

	glfw.PollEvents()
}

// dispose ensures openGL/GLFW and other resources are cleaned up.
func (a *App) dispose() {
	if a.console != nil {
		a.console.Stop()
	}

	a.display.Shutdown()

	if a.window != nil {
		a.window.Destroy()
		a.window = nil
	}

	glfw.Terminate()
}

// keyCallback handles emulator shortcuts and forwards everything else
// to the console's keyboard.
func (a *App) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	a.keyboard.KeyCallback(w, key, scancode, action, mods)

	if action != glfw.Press {
		return
	}

	var err error

	switch key {
	case glfw.KeyEscape:
		a.window.SetShouldClose(true)
	case glfw.KeyF1:
		printHelp()
	case glfw.KeyF5:
		if err = a.loadProgram(); err == nil {
			a.console.Run()
		}
	case glfw.KeyF6:
		a.console.Pause()
	case glfw.KeyF7:
		err = a.console.Step()
	}

	if err != nil {
		log.Println(err)
	}
}

// initGL initializes GLFW and openGL.
func (a *App) initGL() error {
	err := glfw.Init()
	if err != nil {
		return errors.Wrapf(err, "glfw.Init failed")
	}

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.Visible, glfw.True)
	glfw.WindowHint(glfw.Focused, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 2)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	var monitor *glfw.Monitor

	width := vm.DisplayWidth * a.config.ScaleFactor
	height := vm.DisplayHeight * a.config.ScaleFactor

	if a.config.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
		mode := monitor.GetVideoMode()

		width = mode.Width
		height = mode.Height

		glfw.WindowHint(glfw.Decorated, glfw.False)
		glfw.WindowHint(glfw.Maximized, glfw.True)
	} else {
		glfw.WindowHint(glfw.Decorated, glfw.True)
		glfw.WindowHint(glfw.Maximized, glfw.False)
	}

	a.window, err = glfw.CreateWindow(width, height, AppName, monitor, nil)
	if err != nil {
		a.dispose()
		return errors.Wrapf(err, "glfw.CreateWindow failed")
	}

	a.window.MakeContextCurrent()
	a.window.SetKeyCallback(a.keyCallback)

	glfw.SwapInterval(0)

	err = gl.Init()
	if err != nil {
		a.dispose()
		return errors.Wrapf(err, "gl.Init failed")
	}

	gl.ClearColor(0, 0, 0, 1.0)
	return a.display.Startup()
}

// loadProgram loads the configured program and resets the machine.
// Files ending in .bin are treated as raw memory images; anything else
// is assembled on the fly with the kernel symbols visible.
func (a *App) loadProgram() error {
	log.Println("loading", a.config.Program)

	if strings.HasSuffix(a.config.Program, ".bin") {
		image, err := os.ReadFile(a.config.Program)
		if err != nil {
			return errors.Wrapf(err, "failed to read %q", a.config.Program)
		}
		return a.console.LoadImage(image)
	}

	return a.console.LoadSourceFile(a.config.Program)
}

// printTrace prints instruction trace data.
func (a *App) printTrace(in *vm.Instruction) {
	fmt.Println(in)
}

// printHelp writes a short overview of supported shortcut keys to stdout.
func printHelp() {
	var sb strings.Builder
	sb.WriteString("shortcut keys:\n")
	sb.WriteString(" ESC      Exit the console.\n")
	sb.WriteString(" F1       Display this help.\n")
	sb.WriteString(" F5       (re)load the program from disk and restart.\n")
	sb.WriteString(" F6       Pause/resume program execution.\n")
	sb.WriteString(" F7       Perform a single execution step.")
	log.Println(sb.String())
}
