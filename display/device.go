// Package display implements the console's host surface on top of
// OpenGL: a 64x64 pixel buffer uploaded as a texture and drawn as a
// fullscreen quad.
package display

import (
	"github.com/go-gl/gl/v4.2-core/gl"
	"github.com/pkg/errors"

	"github.com/hexaflex/frame/vm"
)

// Pixel colours for the two fill states.
const (
	colorOff = 0x00
	colorOn  = 0xff
)

// Device implements vm.Surface. Pixels are buffered host-side and
// uploaded once per frame.
type Device struct {
	pixels      [vm.DisplayWidth * vm.DisplayHeight]byte
	color       byte
	shader      uint32
	vao         uint32
	vbo         uint32
	texture     uint32
	dirty       bool
	initialized bool
}

var _ vm.Surface = &Device{}

// New creates a new display device.
func New() *Device {
	return &Device{color: colorOn}
}

// Startup initializes GL resources. A current GL context is required.
func (d *Device) Startup() error {
	var err error

	d.shader, err = compileProgram(vertex, fragment)
	if err != nil {
		return errors.Wrapf(err, "failed to compile shaders")
	}

	gl.UseProgram(d.shader)

	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)

	gl.GenBuffers(1, &d.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)

	vertAttrib := uint32(gl.GetAttribLocation(d.shader, glStr("vertPos")))
	texCoordAttrib := uint32(gl.GetAttribLocation(d.shader, glStr("vertTexCoord")))

	gl.EnableVertexAttribArray(vertAttrib)
	gl.VertexAttribPointer(vertAttrib, 3, gl.FLOAT, false, 5*4, gl.PtrOffset(0))

	gl.EnableVertexAttribArray(texCoordAttrib)
	gl.VertexAttribPointer(texCoordAttrib, 2, gl.FLOAT, false, 5*4, gl.PtrOffset(3*4))

	d.texture = makeTexture()
	d.dirty = true
	d.initialized = true
	return nil
}

// Shutdown clears up GL resources.
func (d *Device) Shutdown() error {
	if !d.initialized {
		return nil
	}
	d.initialized = false
	gl.DeleteTextures(1, &d.texture)
	gl.DeleteBuffers(1, &d.vbo)
	gl.DeleteVertexArrays(1, &d.vao)
	gl.DeleteProgram(d.shader)
	return nil
}

// Draw renders the display contents.
func (d *Device) Draw() {
	if !d.initialized {
		return
	}

	if d.dirty {
		uploadTexture(d.texture, gl.RED, vm.DisplayWidth, vm.DisplayHeight,
			gl.RED, gl.UNSIGNED_BYTE, d.pixels[:])
		d.dirty = false
	}

	gl.UseProgram(d.shader)
	gl.BindVertexArray(d.vao)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, d.texture)

	gl.DrawArrays(gl.TRIANGLES, 0, 6)
}

// Clear clears the given pixel rectangle.
func (d *Device) Clear(x, y, w, h int) {
	for py := y; py < y+h; py++ {
		for px := x; px < x+w; px++ {
			d.set(px, py, colorOff)
		}
	}
}

// SetColor selects the fill colour for subsequent pixels.
func (d *Device) SetColor(on bool) {
	if on {
		d.color = colorOn
	} else {
		d.color = colorOff
	}
}

// FillPixel fills the single pixel at (x, y).
func (d *Device) FillPixel(x, y int) {
	d.set(x, y, d.color)
}

func (d *Device) set(x, y int, c byte) {
	if x < 0 || x >= vm.DisplayWidth || y < 0 || y >= vm.DisplayHeight {
		return
	}
	d.pixels[y*vm.DisplayWidth+x] = c
	d.dirty = true
}

var quadVertices = []float32{
	//  X, Y, Z, U, V
	-1.0, -1.0, 0.0, 0.0, 1.0,
	1.0, -1.0, 0.0, 1.0, 1.0,
	-1.0, 1.0, 0.0, 0.0, 0.0,
	1.0, -1.0, 0.0, 1.0, 1.0,
	1.0, 1.0, 0.0, 1.0, 0.0,
	-1.0, 1.0, 0.0, 0.0, 0.0,
}
