package parser

import (
	"strings"
	"testing"
)

func tokenize(t *testing.T, src string) []Token {
	t.Helper()

	tok, err := NewTokenizer(strings.NewReader(src), "test.asm")
	if err != nil {
		t.Fatal(err)
	}

	var out []Token
	for {
		tk := tok.Next()
		out = append(out, tk)
		if tk.Type == EOF || tk.Type == ErrorToken {
			return out
		}
	}
}

func TestTokenizeInstruction(t *testing.T) {
	toks := tokenize(t, "mov $1, 0x2a # load the answer\n")

	want := []Token{
		{Type: Instruction, Text: "mov"},
		{Type: Register, Value: 1},
		{Type: Comma},
		{Type: Immediate, Value: 0x2a},
		{Type: EOF},
	}

	if len(toks) != len(want) {
		t.Fatalf("token count %d; want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w.Type || toks[i].Value != w.Value {
			t.Fatalf("token %d = %s(%d); want %s(%d)",
				i, toks[i].Type, toks[i].Value, w.Type, w.Value)
		}
	}
}

func TestTokenizeNumberBases(t *testing.T) {
	cases := map[string]int{
		"0x2a":   0x2a,
		"0o17":   15,
		"0b1010": 10,
		"42":     42,

		// A bare leading zero stays decimal; it is not legacy octal.
		"010": 10,
		"08":  8,
		"09":  9,
	}

	for src, want := range cases {
		toks := tokenize(t, src)
		if toks[0].Type != Immediate || toks[0].Value != want {
			t.Fatalf("%q lexed as %s(%d); want Immediate(%d)",
				src, toks[0].Type, toks[0].Value, want)
		}
	}
}

func TestTokenizeCharLiterals(t *testing.T) {
	cases := map[string]int{
		"'A'":   'A',
		"'\\n'": '\n',
		"'\\0'": 0,
		"'\\''": '\'',
	}

	for src, want := range cases {
		toks := tokenize(t, src)
		if toks[0].Type != Immediate || toks[0].Value != want {
			t.Fatalf("%q lexed as %s(%d); want Immediate(%d)",
				src, toks[0].Type, toks[0].Value, want)
		}
	}
}

func TestTokenizeUnterminatedCharLiteral(t *testing.T) {
	toks := tokenize(t, "'A")
	if toks[0].Type != ErrorToken {
		t.Fatalf("expected error token; got %s", toks[0].Type)
	}
}

func TestTokenizeRegisters(t *testing.T) {
	toks := tokenize(t, "$0 $f $s")

	want := []int{0, 15, 16}
	for i, w := range want {
		if toks[i].Type != Register || toks[i].Value != w {
			t.Fatalf("token %d = %s(%d); want Register(%d)",
				i, toks[i].Type, toks[i].Value, w)
		}
	}
}

func TestTokenizeAddress(t *testing.T) {
	toks := tokenize(t, "%e7c0")
	if toks[0].Type != Address || toks[0].Value != 0xe7c0 {
		t.Fatalf("got %s(%04x)", toks[0].Type, toks[0].Value)
	}
}

func TestTokenizeAddressOutOfRange(t *testing.T) {
	toks := tokenize(t, "%10000")
	if toks[0].Type != ErrorToken {
		t.Fatalf("expected error token; got %s", toks[0].Type)
	}
}

func TestTokenizeIndirect(t *testing.T) {
	toks := tokenize(t, "(f0)")
	if toks[0].Type != Indirect || toks[0].Value != 0xf0 {
		t.Fatalf("got %s(%02x)", toks[0].Type, toks[0].Value)
	}
	if toks[1].Type != RightParen {
		t.Fatalf("expected RightParen; got %s", toks[1].Type)
	}
}

func TestTokenizeIndirectOutOfRange(t *testing.T) {
	toks := tokenize(t, "(100)")
	if toks[0].Type != ErrorToken {
		t.Fatalf("expected error token; got %s", toks[0].Type)
	}
}

func TestTokenizeLabels(t *testing.T) {
	toks := tokenize(t, "@main @<data @>data")

	if toks[0].Type != Label || toks[0].Text != "main" {
		t.Fatalf("got %s(%q)", toks[0].Type, toks[0].Text)
	}
	if toks[1].Type != Immediate || toks[1].Ref != RefLow || toks[1].Text != "data" {
		t.Fatalf("got %s ref=%d", toks[1].Type, toks[1].Ref)
	}
	if toks[2].Type != Immediate || toks[2].Ref != RefHigh || toks[2].Text != "data" {
		t.Fatalf("got %s ref=%d", toks[2].Type, toks[2].Ref)
	}
}

func TestTokenizeDirective(t *testing.T) {
	toks := tokenize(t, ".byte 1, 2")
	if toks[0].Type != Directive || toks[0].Text != "byte" {
		t.Fatalf("got %s(%q)", toks[0].Type, toks[0].Text)
	}
}

func TestTokenizePositions(t *testing.T) {
	toks := tokenize(t, "mov $1, 1\nhlt")

	if toks[0].Pos.Line != 1 || toks[0].Pos.Col != 1 {
		t.Fatalf("mov at %d:%d", toks[0].Pos.Line, toks[0].Pos.Col)
	}
	hlt := toks[4]
	if hlt.Type != Instruction || hlt.Pos.Line != 2 || hlt.Pos.Col != 1 {
		t.Fatalf("hlt at %d:%d", hlt.Pos.Line, hlt.Pos.Col)
	}
}
