// Package input maps host keyboard events to the console's button
// bitmask, exposed through the memory-mapped input register.
package input

import (
	"sync/atomic"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Button bits of the input register.
const (
	ButtonLeft = 1 << iota
	ButtonDown
	ButtonUp
	ButtonRight
	ButtonA
	ButtonB
	ButtonStart
	ButtonMenu
)

// Keyboard tracks the pressed state of the eight console buttons. The
// host writes it from the key callback; the guest reads it through the
// input register, possibly from another goroutine.
type Keyboard struct {
	mask uint32
}

// New creates a new keyboard state.
func New() *Keyboard {
	return &Keyboard{}
}

// Mask returns the live button bitmask.
func (k *Keyboard) Mask() byte {
	return byte(atomic.LoadUint32(&k.mask))
}

// KeyCallback updates button state from a GLFW key event. Install it
// with window.SetKeyCallback.
func (k *Keyboard) KeyCallback(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	btn, ok := buttonFor(key)
	if !ok {
		return
	}

	switch action {
	case glfw.Press:
		k.set(btn)
	case glfw.Release:
		k.clear(btn)
	}
}

func (k *Keyboard) set(btn byte) {
	for {
		old := atomic.LoadUint32(&k.mask)
		if atomic.CompareAndSwapUint32(&k.mask, old, old|uint32(btn)) {
			return
		}
	}
}

func (k *Keyboard) clear(btn byte) {
	for {
		old := atomic.LoadUint32(&k.mask)
		if atomic.CompareAndSwapUint32(&k.mask, old, old&^uint32(btn)) {
			return
		}
	}
}

// buttonFor maps a logical key to its console button. Arrow keys and
// WASD both map to the direction buttons.
func buttonFor(key glfw.Key) (byte, bool) {
	switch key {
	case glfw.KeyLeft, glfw.KeyA:
		return ButtonLeft, true
	case glfw.KeyDown, glfw.KeyS:
		return ButtonDown, true
	case glfw.KeyUp, glfw.KeyW:
		return ButtonUp, true
	case glfw.KeyRight, glfw.KeyD:
		return ButtonRight, true
	case glfw.KeyZ:
		return ButtonA, true
	case glfw.KeyX:
		return ButtonB, true
	case glfw.KeyEnter:
		return ButtonStart, true
	case glfw.KeyBackspace:
		return ButtonMenu, true
	}
	return 0, false
}
