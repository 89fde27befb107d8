package stream

import (
	"bufio"
	"bytes"
	"io"
)

// lineReader yields non-blank lines of newline-delimited JSON. Providers
// send bare newlines as keep-alives.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// next returns io.EOF once the input is exhausted. A final line without a
// trailing newline is still returned.
func (l *lineReader) next() ([]byte, error) {
	for {
		line, err := l.r.ReadBytes('\n')
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			if err != nil && err != io.EOF {
				return nil, err
			}
			return trimmed, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
