package vm

import (
	"strings"
	"testing"
)

// testSurface records blitted pixels in host memory.
type testSurface struct {
	pixels [DisplayWidth * DisplayHeight]byte
	color  byte
}

func (s *testSurface) Clear(x, y, w, h int) {}

func (s *testSurface) SetColor(on bool) {
	if on {
		s.color = 1
	} else {
		s.color = 0
	}
}

func (s *testSurface) FillPixel(x, y int) {
	s.pixels[y*DisplayWidth+x] = s.color
}

// newTestConsole builds a console around a test surface and loads the
// given source.
func newTestConsole(t *testing.T, source string) (*Console, *testSurface) {
	t.Helper()
	return newTestConsoleInput(t, source, nil)
}

func newTestConsoleInput(t *testing.T, source string, input InputFunc) (*Console, *testSurface) {
	t.Helper()

	surface := &testSurface{}
	con, err := NewConsole(surface, input)
	if err != nil {
		t.Fatal(err)
	}

	if err := con.LoadSource(strings.NewReader(source), "test.asm"); err != nil {
		t.Fatalf("assembly failed: %v", err)
	}
	return con, surface
}

// runProgram runs the loaded program until it pauses.
func runProgram(t *testing.T, con *Console) {
	t.Helper()

	con.Run()
	for i := 0; i < 100000 && con.Running(); i++ {
		if err := con.Step(); err != nil {
			t.Fatalf("step failed: %v", err)
		}
	}
	if con.Running() {
		t.Fatal("program did not pause")
	}
}
