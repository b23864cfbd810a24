package cacheinfra

import (
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ErrDecompress is returned when a stored value is not a valid zstd frame.
var ErrDecompress = errors.New("cacheinfra: failed to decompress value")

var (
	codecOnce sync.Once
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	codecErr  error
)

// zstd encoders and decoders are safe for concurrent EncodeAll/DecodeAll calls.
func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	codecOnce.Do(func() {
		encoder, codecErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithZeroFrames(true))
		if codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
	return encoder, decoder, codecErr
}

// Compress returns the zstd frame for value.
func Compress(value []byte) ([]byte, error) {
	enc, _, err := zstdCodec()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(value, make([]byte, 0, len(value)/2+16)), nil
}

// Decompress reverses Compress.
func Decompress(value []byte) ([]byte, error) {
	_, dec, err := zstdCodec()
	if err != nil {
		return nil, err
	}
	out, err := dec.DecodeAll(value, nil)
	if err != nil {
		return nil, errors.Join(ErrDecompress, err)
	}
	return out, nil
}
