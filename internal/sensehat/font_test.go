package sensehat

import (
	"reflect"
	"testing"
)

func TestGlyphsWellFormed(t *testing.T) {
	for r, g := range glyphs {
		for y, row := range g {
			if len(row) != 3 {
				t.Errorf("glyph %q row %d has width %d, want 3", r, y, len(row))
			}
		}
	}
}

func TestRenderColumns(t *testing.T) {
	// '1' = .#. / ##. / .#. / .#. / ###
	want := []uint8{
		0b10010, // column 0: rows 1 and 4
		0b11111, // column 1: every row
		0b10000, // column 2: row 4
		0,       // spacing
	}
	if got := renderColumns("1"); !reflect.DeepEqual(got, want) {
		t.Errorf("renderColumns(\"1\") = %05b, want %05b", got, want)
	}

	if !reflect.DeepEqual(renderColumns("a"), renderColumns("A")) {
		t.Error("lowercase should render as uppercase")
	}
	if !reflect.DeepEqual(renderColumns("~"), renderColumns("?")) {
		t.Error("unknown runes should render as '?'")
	}
	if got := len(renderColumns("ON")); got != 8 {
		t.Errorf("len(renderColumns(\"ON\")) = %d, want 8", got)
	}
}

func TestScrollFrames(t *testing.T) {
	fg := Colour{R: 0xFF}
	bg := Black

	frames := scrollFrames("ON", fg, bg)
	// 8 leading blank columns + 8 text columns -> offsets 0..8
	if len(frames) != 9 {
		t.Fatalf("len(frames) = %d, want 9", len(frames))
	}
	if frames[0] != solidFrame(bg) {
		t.Error("first frame should be blank")
	}

	last := frames[len(frames)-1]
	// 'O' top row is ### at columns 0-2, row glyphTop
	for x := range 3 {
		if last[glyphTop*matrixSize+x] != fg {
			t.Errorf("last frame pixel (%d,%d) not lit", x, glyphTop)
		}
	}
	if last[0] != bg {
		t.Error("row 0 should stay background")
	}
}

func TestScrollFramesEmptyText(t *testing.T) {
	frames := scrollFrames("", White, Black)
	if len(frames) != 1 || frames[0] != solidFrame(Black) {
		t.Errorf("scrollFrames(\"\") = %d frames, want one blank frame", len(frames))
	}
}
