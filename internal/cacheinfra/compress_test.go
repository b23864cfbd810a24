package cacheinfra

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestCompress_RoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		[]byte(`{"id":1}`),
		[]byte(strings.Repeat(`{"filename":"index.js"},`, 5000)),
	}

	for _, input := range inputs {
		compressed, err := Compress(input)
		if err != nil {
			t.Fatalf("Compress() error = %v", err)
		}
		out, err := Decompress(compressed)
		if err != nil {
			t.Fatalf("Decompress() error = %v", err)
		}
		if !bytes.Equal(out, input) {
			t.Errorf("round trip mismatch for %d bytes", len(input))
		}
	}
}

func TestCompress_ShrinksRepetitiveValues(t *testing.T) {
	input := []byte(strings.Repeat("abcdef", 10000))
	compressed, err := Compress(input)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if len(compressed) >= len(input)/10 {
		t.Errorf("expected strong compression, got %d -> %d bytes", len(input), len(compressed))
	}
}

func TestDecompress_InvalidFrame(t *testing.T) {
	if _, err := Decompress([]byte("plain text")); !errors.Is(err, ErrDecompress) {
		t.Errorf("Decompress() error = %v, want ErrDecompress", err)
	}
}
