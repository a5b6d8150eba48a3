package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// DefaultWidth is assumed when the terminal width cannot be probed.
const DefaultWidth = 80

// maxClearRows caps how many rows a single clear may erase. When the width
// snapshot is wrong, under-clearing leaves a few stale rows behind;
// over-clearing eats unrelated scrollback, which is worse.
const maxClearRows = 100

const (
	cursorUp  = "\x1b[1A"
	clearLine = "\x1b[2K"
)

// CountRows returns how many terminal rows text occupies at the given
// width, accounting for line wrapping. An empty logical line still takes a
// row. Width is measured in terminal cells so wide runes count double.
func CountRows(text string, width int) int {
	if text == "" {
		return 0
	}
	if width <= 0 {
		width = DefaultWidth
	}
	rows := 0
	for _, line := range strings.Split(text, "\n") {
		w := runewidth.StringWidth(line)
		if w == 0 {
			rows++
			continue
		}
		rows += (w + width - 1) / width
	}
	return rows
}

// ClearRows erases n rows ending at the cursor's row using cursor-up /
// clear-line sequences and leaves the cursor at the start of the top
// cleared row. Terminals that ignore the sequences simply render nothing;
// the write error, if any, is returned so callers can abandon clearing.
func ClearRows(w io.Writer, n int) error {
	if n <= 0 {
		return nil
	}
	if n > maxClearRows {
		n = maxClearRows
	}
	var b strings.Builder
	b.WriteString("\r")
	b.WriteString(clearLine)
	for i := 1; i < n; i++ {
		b.WriteString(cursorUp)
		b.WriteString(clearLine)
	}
	_, err := fmt.Fprint(w, b.String())
	return err
}
