package vm

import "testing"

func TestTextRender(t *testing.T) {
	// Cell (0,0) holds 'A'; after a render the framebuffer and the
	// host surface hold the glyph's bits, MSB leftmost.

	con, surface := newTestConsole(t, `
.addr 0x200
@main
	hlt
`)

	con.Mem.SetU8(TextBuffer, 'A')
	con.Render()

	for row := 0; row < CellSize; row++ {
		bits := Font['A'*8+row]
		for col := 0; col < CellSize; col++ {
			want := 0
			if bits&(0x80>>col) != 0 {
				want = 1
			}

			fb := con.Mem.U8(FrameBase + row*DisplayWidth + col)
			if fb != want {
				t.Fatalf("framebuffer (%d,%d) = %d; want %d", col, row, fb, want)
			}
			if got := int(surface.pixels[row*DisplayWidth+col]); got != want {
				t.Fatalf("surface (%d,%d) = %d; want %d", col, row, got, want)
			}
		}
	}
}

func TestTextRenderCellPlacement(t *testing.T) {
	con, surface := newTestConsole(t, `
.addr 0x200
@main
	hlt
`)

	// Cell (2,1) occupies pixels (16..23, 8..15).
	con.Mem.SetU8(TextBuffer+1*TextColumns+2, '_')
	con.Render()

	// The '_' glyph is a solid bottom row.
	bits := Font['_'*8+7]
	if bits != 0xff {
		t.Fatalf("unexpected '_' glyph row: %02x", bits)
	}

	py := 1*CellSize + 7
	for col := 0; col < CellSize; col++ {
		px := 2*CellSize + col
		if got := surface.pixels[py*DisplayWidth+px]; got != 1 {
			t.Fatalf("surface (%d,%d) = %d; want 1", px, py, got)
		}
	}
}

func TestRenderHighBitWraps(t *testing.T) {
	// Characters with the high bit set index the same 128 glyphs.

	con, _ := newTestConsole(t, `
.addr 0x200
@main
	hlt
`)

	con.Mem.SetU8(TextBuffer, 'A'|0x80)
	con.Render()

	for row := 0; row < CellSize; row++ {
		bits := Font['A'*8+row]
		for col := 0; col < CellSize; col++ {
			want := 0
			if bits&(0x80>>col) != 0 {
				want = 1
			}
			if fb := con.Mem.U8(FrameBase + row*DisplayWidth + col); fb != want {
				t.Fatalf("framebuffer (%d,%d) = %d; want %d", col, row, fb, want)
			}
		}
	}
}
