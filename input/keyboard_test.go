package input

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func TestButtonMapping(t *testing.T) {
	cases := []struct {
		key  glfw.Key
		want byte
	}{
		{glfw.KeyLeft, ButtonLeft},
		{glfw.KeyA, ButtonLeft},
		{glfw.KeyDown, ButtonDown},
		{glfw.KeyS, ButtonDown},
		{glfw.KeyUp, ButtonUp},
		{glfw.KeyW, ButtonUp},
		{glfw.KeyRight, ButtonRight},
		{glfw.KeyD, ButtonRight},
		{glfw.KeyZ, ButtonA},
		{glfw.KeyX, ButtonB},
		{glfw.KeyEnter, ButtonStart},
		{glfw.KeyBackspace, ButtonMenu},
	}

	for _, c := range cases {
		btn, ok := buttonFor(c.key)
		if !ok || btn != c.want {
			t.Fatalf("buttonFor(%d) = (%02x, %v); want %02x", c.key, btn, ok, c.want)
		}
	}

	if _, ok := buttonFor(glfw.KeyQ); ok {
		t.Fatal("unmapped key reported a button")
	}
}

func TestMask(t *testing.T) {
	k := New()

	k.KeyCallback(nil, glfw.KeyZ, 0, glfw.Press, 0)
	k.KeyCallback(nil, glfw.KeyUp, 0, glfw.Press, 0)
	if got := k.Mask(); got != ButtonA|ButtonUp {
		t.Fatalf("mask = %02x; want %02x", got, ButtonA|ButtonUp)
	}

	k.KeyCallback(nil, glfw.KeyZ, 0, glfw.Release, 0)
	if got := k.Mask(); got != ButtonUp {
		t.Fatalf("mask = %02x; want %02x", got, ButtonUp)
	}

	// Repeats change nothing.
	k.KeyCallback(nil, glfw.KeyUp, 0, glfw.Repeat, 0)
	if got := k.Mask(); got != ButtonUp {
		t.Fatalf("mask = %02x; want %02x", got, ButtonUp)
	}
}
