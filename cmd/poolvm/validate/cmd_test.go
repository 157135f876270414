// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validate

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lendvm/vms/poolvm/config"
	"github.com/luxfi/lendvm/vms/poolvm/reserve"
)

func TestValidate(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(os.WriteFile(bad, []byte(`{"name":"x"}`), 0o600))
	_, err := Genesis(bad)
	require.ErrorIs(err, config.ErrInvalidPool)

	cfg := filepath.Join(dir, "config.json")
	require.NoError(os.WriteFile(cfg, []byte(`{"maxTxsPerBlock":0}`), 0o600))

	cmd := Command()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{bad})
	require.ErrorIs(cmd.Execute(), config.ErrInvalidPool)

	pool := config.DefaultPool()
	pool.BackstopToken = ids.GenerateTestID()
	pool.Reserves = []config.Reserve{{
		Asset: ids.GenerateTestID(),
		Config: reserve.Config{
			Decimals:         7,
			CollateralFactor: 9_000_000,
			LiabilityFactor:  10_000_000,
			MaxUtil:          9_000_000,
			Enabled:          true,
			Curve:            reserve.DefaultRateCurve(),
		},
	}}
	b, err := json.Marshal(pool)
	require.NoError(err)
	good := filepath.Join(dir, "genesis.json")
	require.NoError(os.WriteFile(good, b, 0o600))

	cmd = Command()
	cmd.SetOut(out)
	cmd.SetArgs([]string{good})
	require.NoError(cmd.Execute())
	require.Contains(out.String(), `pool "pool": 1 reserves`)

	cmd = Command()
	cmd.SetOut(out)
	cmd.SetArgs([]string{good, cfg})
	require.ErrorIs(cmd.Execute(), config.ErrInvalidConfig)

	_, err = Genesis(filepath.Join(dir, "missing.json"))
	require.ErrorIs(err, os.ErrNotExist)
}
