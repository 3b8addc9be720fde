package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// lineBuffer is the editable line of the repl plus its history. It works on
// runes so that CJK text and emoji move the cursor one character at a time.
type lineBuffer struct {
	line   []rune
	cursor int

	history  []string
	histPos  int
	browsing bool
	draft    string
}

func (b *lineBuffer) reset() {
	b.line = b.line[:0]
	b.cursor = 0
	b.histPos = len(b.history)
	b.browsing = false
	b.draft = ""
}

func (b *lineBuffer) String() string { return string(b.line) }

func (b *lineBuffer) insert(r rune) {
	b.line = append(b.line, 0)
	copy(b.line[b.cursor+1:], b.line[b.cursor:])
	b.line[b.cursor] = r
	b.cursor++
}

func (b *lineBuffer) backspace() {
	if b.cursor == 0 {
		return
	}
	b.line = append(b.line[:b.cursor-1], b.line[b.cursor:]...)
	b.cursor--
}

func (b *lineBuffer) deleteForward() {
	if b.cursor < len(b.line) {
		b.line = append(b.line[:b.cursor], b.line[b.cursor+1:]...)
	}
}

func (b *lineBuffer) left() {
	if b.cursor > 0 {
		b.cursor--
	}
}

func (b *lineBuffer) right() {
	if b.cursor < len(b.line) {
		b.cursor++
	}
}

func (b *lineBuffer) home() { b.cursor = 0 }

func (b *lineBuffer) end() { b.cursor = len(b.line) }

func (b *lineBuffer) wordLeft() {
	for b.cursor > 0 && unicode.IsSpace(b.line[b.cursor-1]) {
		b.cursor--
	}
	for b.cursor > 0 && !unicode.IsSpace(b.line[b.cursor-1]) {
		b.cursor--
	}
}

func (b *lineBuffer) wordRight() {
	for b.cursor < len(b.line) && unicode.IsSpace(b.line[b.cursor]) {
		b.cursor++
	}
	for b.cursor < len(b.line) && !unicode.IsSpace(b.line[b.cursor]) {
		b.cursor++
	}
}

func (b *lineBuffer) deleteWordBack() {
	end := b.cursor
	b.wordLeft()
	b.line = append(b.line[:b.cursor], b.line[end:]...)
}

func (b *lineBuffer) deleteWordForward() {
	start := b.cursor
	b.wordRight()
	b.line = append(b.line[:start], b.line[b.cursor:]...)
	b.cursor = start
}

func (b *lineBuffer) killToEnd() {
	b.line = b.line[:b.cursor]
}

func (b *lineBuffer) historyUp() {
	if len(b.history) == 0 {
		return
	}
	if !b.browsing {
		b.draft = string(b.line)
		b.browsing = true
		b.histPos = len(b.history)
	}
	if b.histPos > 0 {
		b.histPos--
		b.set(b.history[b.histPos])
	}
}

func (b *lineBuffer) historyDown() {
	if !b.browsing {
		return
	}
	if b.histPos < len(b.history)-1 {
		b.histPos++
		b.set(b.history[b.histPos])
		return
	}
	b.histPos = len(b.history)
	b.browsing = false
	b.set(b.draft)
}

func (b *lineBuffer) set(s string) {
	b.line = append(b.line[:0], []rune(s)...)
	b.cursor = len(b.line)
}

// commit returns the line and records it in the history unless it is blank
// or repeats the previous entry.
func (b *lineBuffer) commit() string {
	out := string(b.line)
	if strings.TrimSpace(out) != "" && (len(b.history) == 0 || b.history[len(b.history)-1] != out) {
		b.history = append(b.history, out)
	}
	b.reset()
	return out
}

// render returns the escape sequence that redraws prompt and line and puts
// the terminal cursor under b.cursor.
func (b *lineBuffer) render(prompt string) string {
	var sb strings.Builder
	sb.WriteString("\r")
	sb.WriteString(prompt)
	sb.WriteString(displayText(b.line))
	sb.WriteString("\x1b[K")
	if back := runewidth.StringWidth(displayText(b.line[b.cursor:])); back > 0 {
		sb.WriteString("\x1b[")
		sb.WriteString(strconv.Itoa(back))
		sb.WriteString("D")
	}
	return sb.String()
}

// displayText shows control characters in caret notation (tab is ^I) so
// every rune occupies a known number of cells.
func displayText(line []rune) string {
	var sb strings.Builder
	for _, r := range line {
		switch {
		case r < 0x20:
			sb.WriteByte('^')
			sb.WriteRune(r + '@')
		case r == 0x7f:
			sb.WriteString("^?")
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// keyReader decodes raw terminal input into edits of buf. Input read past
// the end of a line is kept in rest for the next line.
type keyReader struct {
	buf lineBuffer

	rest    []byte
	chunk   [64]byte
	esc     int
	csi     []byte
	pending []byte
	skipLF  bool
}

// readLine reads keys from r until Enter and returns the committed line.
// Ctrl+C and Ctrl+D on an empty line return io.EOF.
func (k *keyReader) readLine(r io.Reader, out io.Writer, prompt string) (string, error) {
	b := &k.buf
	b.reset()
	redraw := func() { fmt.Fprint(out, b.render(prompt)) }
	redraw()

	for {
		if len(k.rest) == 0 {
			n, err := r.Read(k.chunk[:])
			if n == 0 && err != nil {
				return "", err
			}
			k.rest = k.chunk[:n]
		}
		for len(k.rest) > 0 {
			c := k.rest[0]
			k.rest = k.rest[1:]

			// CR LF is one line ending.
			if k.skipLF {
				k.skipLF = false
				if c == '\n' {
					continue
				}
			}

			switch k.esc {
			case 1:
				k.esc = 0
				switch c {
				case '[', 'O':
					k.esc = 2
					k.csi = k.csi[:0]
				case 'b', 'B':
					b.wordLeft()
					redraw()
				case 'f', 'F':
					b.wordRight()
					redraw()
				case 127:
					b.deleteWordBack()
					redraw()
				}
				continue
			case 2:
				k.csi = append(k.csi, c)
				if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '~' {
					k.esc = 0
					if k.handleCSI(string(k.csi)) {
						redraw()
					}
				}
				continue
			}

			if len(k.pending) > 0 || c >= utf8.RuneSelf {
				k.pending = append(k.pending, c)
				if !utf8.FullRune(k.pending) {
					continue
				}
				ru, _ := utf8.DecodeRune(k.pending)
				k.pending = k.pending[:0]
				b.insert(ru)
				redraw()
				continue
			}

			switch c {
			case 27:
				k.esc = 1
			case '\r', '\n':
				k.skipLF = c == '\r'
				fmt.Fprint(out, "\r\n")
				return b.commit(), nil
			case 3: // Ctrl+C
				fmt.Fprint(out, "^C\r\n")
				b.reset()
				return "", io.EOF
			case 4: // Ctrl+D
				if len(b.line) == 0 {
					fmt.Fprint(out, "\r\n")
					return "", io.EOF
				}
				b.deleteForward()
				redraw()
			case 127, 8:
				b.backspace()
				redraw()
			case 1: // Ctrl+A
				b.home()
				redraw()
			case 5: // Ctrl+E
				b.end()
				redraw()
			case 11: // Ctrl+K
				b.killToEnd()
				redraw()
			case 23: // Ctrl+W
				b.deleteWordBack()
				redraw()
			case '\t':
				b.insert('\t')
				redraw()
			default:
				if c >= 32 {
					b.insert(rune(c))
					redraw()
				}
			}
		}
	}
}

func (k *keyReader) handleCSI(seq string) bool {
	b := &k.buf
	switch seq {
	case "A":
		b.historyUp()
	case "B":
		b.historyDown()
	case "C":
		b.right()
	case "D":
		b.left()
	case "H", "1~":
		b.home()
	case "F", "4~":
		b.end()
	case "3~":
		b.deleteForward()
	case "1;5D", "5D":
		b.wordLeft()
	case "1;5C", "5C":
		b.wordRight()
	case "3;5~":
		b.deleteWordForward()
	default:
		return false
	}
	return true
}

func trimTrailingNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
