// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackerRoundTrip(t *testing.T) {
	require := require.New(t)

	p := Packer{MaxSize: LongLen + IntLen + 3}
	p.PackLong(0x0102030405060708)
	p.PackInt(42)
	p.PackFixedBytes([]byte{7, 8, 9})
	require.NoError(p.Err)
	require.Len(p.Bytes, LongLen+IntLen+3)

	r := Packer{Bytes: p.Bytes}
	require.Equal(uint64(0x0102030405060708), r.UnpackLong())
	require.Equal(uint32(42), r.UnpackInt())
	require.Equal([]byte{7, 8, 9}, r.UnpackFixedBytes(3))
	require.NoError(r.Err)

	require.Zero(r.UnpackInt())
	require.ErrorIs(r.Err, ErrInsufficientLength)
}

func TestPackerMaxSize(t *testing.T) {
	require := require.New(t)

	p := Packer{MaxSize: IntLen}
	p.PackLong(1)
	require.ErrorIs(p.Err, ErrInsufficientLength)

	// later writes are dropped
	p.PackInt(1)
	require.Empty(p.Bytes)
}

func TestErrsKeepsFirst(t *testing.T) {
	require := require.New(t)

	var errs Errs
	errs.Add(nil, errNegativeOffset, errInvalidInput)
	errs.Add(ErrInsufficientLength)
	require.ErrorIs(errs.Err, errNegativeOffset)
}
