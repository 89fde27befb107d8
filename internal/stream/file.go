package stream

import (
	"context"
	"errors"
	"io"
	"os"
)

// FileProvider replays a newline-delimited JSON file, one payload per
// line. Track terms are ignored: the file is taken as already filtered.
// Path "-" reads standard input.
type FileProvider struct {
	Path string
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) Connect(ctx context.Context, track []string) (Stream, error) {
	if p.Path == "-" {
		return &fileStream{lines: newLineReader(os.Stdin)}, nil
	}
	f, err := os.Open(p.Path)
	if err != nil {
		return nil, transportErr(p.Name(), "open", err)
	}
	return &fileStream{lines: newLineReader(f), closer: f}, nil
}

// NewReaderStream wraps r as a Stream of newline-delimited payloads.
func NewReaderStream(r io.Reader) Stream {
	closer, _ := r.(io.Closer)
	return &fileStream{lines: newLineReader(r), closer: closer}
}

type fileStream struct {
	lines  *lineReader
	closer io.Closer
}

func (s *fileStream) Next(ctx context.Context) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	line, err := s.lines.next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Message{}, io.EOF
		}
		return Message{}, transportErr("file", "read", err)
	}
	return Message{Kind: Data, Payload: line}, nil
}

func (s *fileStream) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
