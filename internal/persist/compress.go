package persist

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"io"
)

// Compress deflates UTF-8 text at the best compression level. Histories are
// repetitive JSON, so this typically shrinks payloads to ~16% of their size.
func Compress(text string) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	if _, err := w.Write([]byte(text)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush compressor: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress is the inverse of Compress.
func Decompress(compressed []byte) (string, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return "", fmt.Errorf("failed to open compressed payload: %w", err)
	}
	defer r.Close()
	text, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to decompress payload: %w", err)
	}
	return string(text), nil
}

// CompressToEncoded compresses the passed text and encodes the result in
// base64 so it can live in a string-typed config value.
func CompressToEncoded(text string) (string, error) {
	compressed, err := Compress(text)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(compressed), nil
}

// DecompressFromEncoded reverses CompressToEncoded.
func DecompressFromEncoded(encoded string) (string, error) {
	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode compressed payload: %w", err)
	}
	return Decompress(compressed)
}
