package object

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Codec is the reversible transform applied to every stored frame.
type Codec string

const (
	Zlib Codec = "zlib"
	Zstd Codec = "zstd"
)

// ParseCodec maps a configuration value to a Codec. Empty means Zlib.
func ParseCodec(s string) (Codec, error) {
	switch Codec(s) {
	case "", Zlib:
		return Zlib, nil
	case Zstd:
		return Zstd, nil
	}
	return "", fmt.Errorf("unknown compression codec %q", s)
}

// Encode compresses data.
func (c Codec) Encode(data []byte) ([]byte, error) {
	if c == Zstd {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	}

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode. Any malformed input is reported as ErrCorrupt.
func (c Codec) Decode(compressed []byte) ([]byte, error) {
	if c == Zstd {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		return out, nil
	}

	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib new reader: %v", ErrCorrupt, err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: zlib read: %v", ErrCorrupt, err)
	}
	return out, nil
}
