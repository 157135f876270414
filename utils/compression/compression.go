// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package compression compresses exported snapshots.
package compression

import (
	"errors"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
)

var (
	ErrInvalidMaxSize          = errors.New("invalid compressor max size")
	ErrMsgTooLarge             = errors.New("msg too large to be compressed")
	ErrDecompressedMsgTooLarge = errors.New("decompressed msg too large")

	_ Compressor = (*zstdCompressor)(nil)
)

// Compressor compresses and decompresses byte strings up to a fixed size.
type Compressor interface {
	Compress([]byte) ([]byte, error)
	Decompress([]byte) ([]byte, error)
}

// NewZstdCompressor bounds both inputs to Compress and outputs of
// Decompress by maxSize.
func NewZstdCompressor(maxSize int64) (Compressor, error) {
	if maxSize <= 0 || maxSize == math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMaxSize, maxSize)
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(uint64(maxSize)),
		zstd.WithDecoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}
	return &zstdCompressor{
		maxSize: maxSize,
		encoder: encoder,
		decoder: decoder,
	}, nil
}

type zstdCompressor struct {
	maxSize int64
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (z *zstdCompressor) Compress(msg []byte) ([]byte, error) {
	if int64(len(msg)) > z.maxSize {
		return nil, fmt.Errorf("%w: (%d) > (%d)", ErrMsgTooLarge, len(msg), z.maxSize)
	}
	return z.encoder.EncodeAll(msg, nil), nil
}

func (z *zstdCompressor) Decompress(msg []byte) ([]byte, error) {
	decompressed, err := z.decoder.DecodeAll(msg, nil)
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
		return nil, fmt.Errorf("%w: %w", ErrDecompressedMsgTooLarge, err)
	}
	if err != nil {
		return nil, err
	}
	if int64(len(decompressed)) > z.maxSize {
		return nil, fmt.Errorf("%w: (%d) > (%d)", ErrDecompressedMsgTooLarge, len(decompressed), z.maxSize)
	}
	return decompressed, nil
}
