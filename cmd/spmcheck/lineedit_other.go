//go:build !linux

package main

import (
	"bufio"
	"fmt"
	"io"
)

type lineReader struct {
	out io.Writer
	br  *bufio.Reader
}

func newLineReader(in io.Reader, out io.Writer) *lineReader {
	return &lineReader{out: out, br: bufio.NewReader(in)}
}

func (lr *lineReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(lr.out, prompt)
	s, err := lr.br.ReadString('\n')
	if err != nil && (err != io.EOF || s == "") {
		return "", err
	}
	return trimTrailingNewline(s), nil
}
