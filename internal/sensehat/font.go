package sensehat

import "unicode"

// glyphHeight is the number of rows in every glyph.
const glyphHeight = 5

// glyphTop is the matrix row the glyphs start on.
const glyphTop = 1

// glyphs is a 3x5 pixel font. Lowercase letters render as uppercase.
var glyphs = map[rune][glyphHeight]string{
	' ': {"...", "...", "...", "...", "..."},
	'0': {"###", "#.#", "#.#", "#.#", "###"},
	'1': {".#.", "##.", ".#.", ".#.", "###"},
	'2': {"###", "..#", "###", "#..", "###"},
	'3': {"###", "..#", ".##", "..#", "###"},
	'4': {"#.#", "#.#", "###", "..#", "..#"},
	'5': {"###", "#..", "###", "..#", "###"},
	'6': {"###", "#..", "###", "#.#", "###"},
	'7': {"###", "..#", ".#.", ".#.", ".#."},
	'8': {"###", "#.#", "###", "#.#", "###"},
	'9': {"###", "#.#", "###", "..#", "###"},
	'A': {"###", "#.#", "###", "#.#", "#.#"},
	'B': {"##.", "#.#", "##.", "#.#", "##."},
	'C': {"###", "#..", "#..", "#..", "###"},
	'D': {"##.", "#.#", "#.#", "#.#", "##."},
	'E': {"###", "#..", "##.", "#..", "###"},
	'F': {"###", "#..", "##.", "#..", "#.."},
	'G': {"###", "#..", "#.#", "#.#", "###"},
	'H': {"#.#", "#.#", "###", "#.#", "#.#"},
	'I': {"###", ".#.", ".#.", ".#.", "###"},
	'J': {"..#", "..#", "..#", "#.#", "###"},
	'K': {"#.#", "#.#", "##.", "#.#", "#.#"},
	'L': {"#..", "#..", "#..", "#..", "###"},
	'M': {"#.#", "###", "###", "#.#", "#.#"},
	'N': {"##.", "#.#", "#.#", "#.#", "#.#"},
	'O': {"###", "#.#", "#.#", "#.#", "###"},
	'P': {"###", "#.#", "###", "#..", "#.."},
	'Q': {"###", "#.#", "#.#", "###", "..#"},
	'R': {"##.", "#.#", "##.", "#.#", "#.#"},
	'S': {"###", "#..", "###", "..#", "###"},
	'T': {"###", ".#.", ".#.", ".#.", ".#."},
	'U': {"#.#", "#.#", "#.#", "#.#", "###"},
	'V': {"#.#", "#.#", "#.#", "#.#", ".#."},
	'W': {"#.#", "#.#", "###", "###", "#.#"},
	'X': {"#.#", "#.#", ".#.", "#.#", "#.#"},
	'Y': {"#.#", "#.#", ".#.", ".#.", ".#."},
	'Z': {"###", "..#", ".#.", "#..", "###"},
	'.': {"...", "...", "...", "...", ".#."},
	',': {"...", "...", "...", ".#.", "#.."},
	':': {"...", ".#.", "...", ".#.", "..."},
	'-': {"...", "...", "###", "...", "..."},
	'+': {"...", ".#.", "###", ".#.", "..."},
	'!': {".#.", ".#.", ".#.", "...", ".#."},
	'?': {"###", "..#", ".##", "...", ".#."},
	'%': {"#.#", "..#", ".#.", "#..", "#.#"},
}

// renderColumns lays text out as lit-pixel columns with one blank column
// between glyphs. Bit n of a column is glyph row n.
func renderColumns(text string) []uint8 {
	var cols []uint8
	for _, r := range text {
		g, ok := glyphs[unicode.ToUpper(r)]
		if !ok {
			g = glyphs['?']
		}
		for x := range len(g[0]) {
			var col uint8
			for y, row := range g {
				if row[x] == '#' {
					col |= 1 << y
				}
			}
			cols = append(cols, col)
		}
		cols = append(cols, 0)
	}
	return cols
}

// scrollFrames returns the frames that scroll text in from the right edge
// until its last column reaches the right edge.
func scrollFrames(text string, fg, bg Colour) []Frame {
	cols := append(make([]uint8, matrixSize), renderColumns(text)...)

	frames := make([]Frame, 0, len(cols)-matrixSize+1)
	for offset := 0; offset+matrixSize <= len(cols); offset++ {
		f := solidFrame(bg)
		for x := range matrixSize {
			col := cols[offset+x]
			for y := range glyphHeight {
				if col&(1<<y) != 0 {
					f[(glyphTop+y)*matrixSize+x] = fg
				}
			}
		}
		frames = append(frames, f)
	}
	return frames
}

// solidFrame returns a frame with every pixel set to c.
func solidFrame(c Colour) Frame {
	var f Frame
	for i := range f {
		f[i] = c
	}
	return f
}
