//go:build linux

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// lineReader reads repl input. On a terminal it switches stdin to raw mode
// for each line and supports cursor movement and history; otherwise it
// reads plain lines.
type lineReader struct {
	in   io.Reader
	out  io.Writer
	keys keyReader
	br   *bufio.Reader
}

func newLineReader(in io.Reader, out io.Writer) *lineReader {
	return &lineReader{in: in, out: out, br: bufio.NewReader(in)}
}

func (lr *lineReader) ReadLine(prompt string) (string, error) {
	f, ok := lr.in.(*os.File)
	if !ok || !stdinIsTTY() {
		fmt.Fprint(lr.out, prompt)
		s, err := lr.br.ReadString('\n')
		if err != nil && (err != io.EOF || s == "") {
			return "", err
		}
		return trimTrailingNewline(s), nil
	}

	fd := int(f.Fd())
	oldState, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return "", err
	}
	newState := *oldState
	newState.Lflag &^= unix.ICANON | unix.ECHO
	newState.Cc[unix.VMIN] = 1
	newState.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &newState); err != nil {
		return "", err
	}
	defer func() {
		_ = unix.IoctlSetTermios(fd, unix.TCSETS, oldState)
	}()

	return lr.keys.readLine(f, lr.out, prompt)
}
