// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package json

import (
	stdjson "encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint64JSON(t *testing.T) {
	require := require.New(t)

	type reply struct {
		Amount Uint64 `json:"amount"`
		Index  Uint32 `json:"index"`
	}

	b, err := stdjson.Marshal(reply{Amount: 18_446_744_073_709_551_615, Index: 7})
	require.NoError(err)
	require.JSONEq(`{"amount":"18446744073709551615","index":"7"}`, string(b))

	var got reply
	require.NoError(stdjson.Unmarshal([]byte(`{"amount":12,"index":"3"}`), &got))
	require.Equal(Uint64(12), got.Amount)
	require.Equal(Uint32(3), got.Index)

	got = reply{Amount: 5}
	require.NoError(stdjson.Unmarshal([]byte(`{"amount":null}`), &got))
	require.Equal(Uint64(5), got.Amount)

	require.Error(stdjson.Unmarshal([]byte(`{"index":"4294967296"}`), &got))
}
