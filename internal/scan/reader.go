package scan

import (
	"bufio"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// ResolveEncoding looks up a text encoding by IANA name. An empty name means
// UTF-8 passthrough (nil decoder). Exposed so configuration can be validated
// before any file I/O happens.
func ResolveEncoding(name string) (*encoding.Decoder, error) {
	switch name {
	case "", "utf-8", "utf8", "ascii", "us-ascii":
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc.NewDecoder(), nil
}

// lineReader yields lines and their exact on-disk byte sizes. Offsets are
// tracked in raw file bytes, before decoding, so a persisted offset is
// always valid as a seek target regardless of input encoding.
type lineReader struct {
	br        *bufio.Reader
	decoder   *encoding.Decoder
	normalize bool
	eof       bool
}

func newLineReader(r io.Reader, decoder *encoding.Decoder, normalizeCRLF bool) *lineReader {
	return &lineReader{
		br:        bufio.NewReaderSize(r, 64*1024),
		decoder:   decoder,
		normalize: normalizeCRLF,
	}
}

// next returns the next line (without its terminator) and the raw byte count
// it consumed, including the terminator. A final unterminated line is
// returned like any other; its bytes count toward the offset. Returns io.EOF
// once the input is exhausted.
func (lr *lineReader) next() (string, int64, error) {
	if lr.eof {
		return "", 0, io.EOF
	}

	raw, err := lr.br.ReadBytes('\n')
	if len(raw) == 0 {
		if err == nil {
			err = io.EOF
		}
		return "", 0, err
	}
	if err == io.EOF {
		lr.eof = true
	} else if err != nil {
		return "", 0, err
	}

	size := int64(len(raw))
	line := raw
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if lr.normalize {
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
	}

	if lr.decoder != nil {
		decoded, derr := lr.decoder.Bytes(line)
		if derr != nil {
			return "", 0, fmt.Errorf("decoding line: %w", derr)
		}
		line = decoded
	}
	return string(line), size, nil
}
