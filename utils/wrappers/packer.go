// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import (
	"encoding/binary"
	"errors"
)

const (
	IntLen  = 4
	LongLen = 8
)

var (
	ErrInsufficientLength = errors.New("packer has insufficient length for input")
	errNegativeOffset     = errors.New("negative offset")
	errInvalidInput       = errors.New("input does not match expected format")
)

// Packer writes and reads big-endian values at Offset. The first failure
// is kept in Errs and turns later calls into no-ops.
type Packer struct {
	Errs

	// MaxSize bounds how far Bytes may grow while packing.
	MaxSize int
	Bytes   []byte
	Offset  int
}

func (p *Packer) PackInt(val uint32) {
	p.expand(IntLen)
	if p.Errored() {
		return
	}
	binary.BigEndian.PutUint32(p.Bytes[p.Offset:], val)
	p.Offset += IntLen
}

func (p *Packer) UnpackInt() uint32 {
	p.checkSpace(IntLen)
	if p.Errored() {
		return 0
	}
	val := binary.BigEndian.Uint32(p.Bytes[p.Offset:])
	p.Offset += IntLen
	return val
}

func (p *Packer) PackLong(val uint64) {
	p.expand(LongLen)
	if p.Errored() {
		return
	}
	binary.BigEndian.PutUint64(p.Bytes[p.Offset:], val)
	p.Offset += LongLen
}

func (p *Packer) UnpackLong() uint64 {
	p.checkSpace(LongLen)
	if p.Errored() {
		return 0
	}
	val := binary.BigEndian.Uint64(p.Bytes[p.Offset:])
	p.Offset += LongLen
	return val
}

// PackFixedBytes appends bytes without a length prefix.
func (p *Packer) PackFixedBytes(bytes []byte) {
	p.expand(len(bytes))
	if p.Errored() {
		return
	}
	copy(p.Bytes[p.Offset:], bytes)
	p.Offset += len(bytes)
}

func (p *Packer) UnpackFixedBytes(size int) []byte {
	p.checkSpace(size)
	if p.Errored() {
		return nil
	}
	bytes := p.Bytes[p.Offset : p.Offset+size]
	p.Offset += size
	return bytes
}

func (p *Packer) checkSpace(bytes int) {
	switch {
	case p.Offset < 0:
		p.Add(errNegativeOffset)
	case bytes < 0:
		p.Add(errInvalidInput)
	case len(p.Bytes)-p.Offset < bytes:
		p.Add(ErrInsufficientLength)
	}
}

// expand grows Bytes to hold bytes more past Offset, up to MaxSize.
func (p *Packer) expand(bytes int) {
	if p.Errored() {
		return
	}
	needed := p.Offset + bytes
	switch {
	case needed <= len(p.Bytes):
	case needed > p.MaxSize:
		p.Add(ErrInsufficientLength)
	case needed <= cap(p.Bytes):
		p.Bytes = p.Bytes[:needed]
	default:
		p.Bytes = append(p.Bytes[:cap(p.Bytes)], make([]byte, needed-cap(p.Bytes))...)
	}
}
