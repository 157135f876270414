// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package serve

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/luxfi/ids"
)

const (
	DataDirKey        = "data-dir"
	GenesisKey        = "genesis"
	ConfigKey         = "config"
	ChainIDKey        = "chain-id"
	HTTPHostKey       = "http-host"
	HTTPPortKey       = "http-port"
	AllowedOriginsKey = "allowed-origins"
	ProfileDirKey     = "profile-dir"
	ProfileFreqKey    = "profile-freq"
	ProfileFilesKey   = "profile-files"
)

func AddFlags(flags *pflag.FlagSet) {
	flags.String(DataDirKey, "", "Directory of the pool database. Empty keeps state in memory")
	flags.String(GenesisKey, "", "Path to the JSON pool bundle, required on first start")
	flags.String(ConfigKey, "", "Path to a JSON runtime config")
	flags.String(ChainIDKey, "", "Chain ID to report. Empty uses the empty ID")
	flags.String(HTTPHostKey, "127.0.0.1", "Address the API listens on")
	flags.Uint16(HTTPPortKey, 9650, "Port the API listens on")
	flags.StringSlice(AllowedOriginsKey, []string{"*"}, "Origins allowed to make cross-origin API requests")
	flags.String(ProfileDirKey, "", "Directory for continuous profiles. Empty disables profiling")
	flags.Duration(ProfileFreqKey, 15*time.Minute, "How often a new profile is started")
	flags.Int(ProfileFilesKey, 5, "Number of old profiles kept")
}

type Config struct {
	DataDir        string
	GenesisFile    string
	ConfigFile     string
	ChainID        ids.ID
	HTTPHost       string
	HTTPPort       uint16
	AllowedOrigins []string
	ProfileDir     string
	ProfileFreq    time.Duration
	ProfileFiles   int
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	var (
		cfg Config
		err error
	)
	if cfg.DataDir, err = flags.GetString(DataDirKey); err != nil {
		return nil, err
	}
	if cfg.GenesisFile, err = flags.GetString(GenesisKey); err != nil {
		return nil, err
	}
	if cfg.ConfigFile, err = flags.GetString(ConfigKey); err != nil {
		return nil, err
	}
	chainIDStr, err := flags.GetString(ChainIDKey)
	if err != nil {
		return nil, err
	}
	if chainIDStr != "" {
		if cfg.ChainID, err = ids.FromString(chainIDStr); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", ChainIDKey, err)
		}
	}
	if cfg.HTTPHost, err = flags.GetString(HTTPHostKey); err != nil {
		return nil, err
	}
	if cfg.HTTPPort, err = flags.GetUint16(HTTPPortKey); err != nil {
		return nil, err
	}
	if cfg.AllowedOrigins, err = flags.GetStringSlice(AllowedOriginsKey); err != nil {
		return nil, err
	}
	if cfg.ProfileDir, err = flags.GetString(ProfileDirKey); err != nil {
		return nil, err
	}
	if cfg.ProfileFreq, err = flags.GetDuration(ProfileFreqKey); err != nil {
		return nil, err
	}
	if cfg.ProfileFiles, err = flags.GetInt(ProfileFilesKey); err != nil {
		return nil, err
	}
	return &cfg, nil
}
