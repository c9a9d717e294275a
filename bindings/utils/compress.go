package utils

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/cryguy/raven/internal/binding"
)

// maxDecompressedSize bounds decompress output.
const maxDecompressedSize = 16 * 1024 * 1024

var errTooLarge = errors.New("output exceeds maximum allowed size")

func newCompressWriter(buf *bytes.Buffer, format string) (io.WriteCloser, error) {
	switch format {
	case "gzip":
		return gzip.NewWriter(buf), nil
	case "deflate":
		return zlib.NewWriter(buf), nil
	case "deflate-raw":
		return flate.NewWriter(buf, flate.DefaultCompression)
	case "br":
		return brotli.NewWriter(buf), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func newDecompressReader(data []byte, format string) (io.ReadCloser, error) {
	src := bytes.NewReader(data)
	switch format {
	case "gzip":
		return gzip.NewReader(src)
	case "deflate":
		return zlib.NewReader(src)
	case "deflate-raw":
		return flate.NewReader(src), nil
	case "br":
		return io.NopCloser(brotli.NewReader(src)), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Compress encodes data in format: gzip, deflate (zlib), deflate-raw or br.
func Compress(data []byte, format string) ([]byte, error) {
	var buf bytes.Buffer
	w, err := newCompressWriter(&buf, format)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte, format string) ([]byte, error) {
	r, err := newDecompressReader(data, format)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	out, err := io.ReadAll(io.LimitReader(r, maxDecompressedSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxDecompressedSize {
		return nil, errTooLarge
	}
	return out, nil
}

func formatArg(args []binding.Value) string {
	if s, ok := binding.Arg(args, 1).AsString(); ok {
		return s
	}
	return "gzip"
}

func compress(args []binding.Value) binding.Value {
	data, ok := payload(binding.Arg(args, 0))
	if !ok {
		return binding.Error("compress requires string or bytes")
	}
	out, err := Compress(data, formatArg(args))
	if err != nil {
		return binding.Errorf("compress: %v", err)
	}
	return binding.Bytes(out)
}

func decompress(args []binding.Value) binding.Value {
	data, ok := payload(binding.Arg(args, 0))
	if !ok {
		return binding.Error("decompress requires bytes")
	}
	out, err := Decompress(data, formatArg(args))
	if err != nil {
		return binding.Errorf("decompress: %v", err)
	}
	return textOrBytes(out)
}
