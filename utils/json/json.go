// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package json provides JSON string encodings for integer types so large
// amounts survive JavaScript clients.
package json

import "strconv"

const Null = "null"

// Uint32 is a uint32 that is JSON marshaled as a string.
type Uint32 uint32

func (u Uint32) MarshalJSON() ([]byte, error) {
	return quote(uint64(u)), nil
}

func (u *Uint32) UnmarshalJSON(b []byte) error {
	str, ok := unquote(b)
	if !ok {
		return nil
	}
	val, err := strconv.ParseUint(str, 10, 32)
	*u = Uint32(val)
	return err
}

// Uint64 is a uint64 that is JSON marshaled as a string.
type Uint64 uint64

func (u Uint64) MarshalJSON() ([]byte, error) {
	return quote(uint64(u)), nil
}

func (u *Uint64) UnmarshalJSON(b []byte) error {
	str, ok := unquote(b)
	if !ok {
		return nil
	}
	val, err := strconv.ParseUint(str, 10, 64)
	*u = Uint64(val)
	return err
}

func quote(v uint64) []byte {
	return []byte(`"` + strconv.FormatUint(v, 10) + `"`)
}

// unquote strips optional surrounding quotes. It reports false for null.
func unquote(b []byte) (string, bool) {
	str := string(b)
	if str == Null {
		return "", false
	}
	if len(str) >= 2 {
		if last := len(str) - 1; str[0] == '"' && str[last] == '"' {
			str = str[1:last]
		}
	}
	return str, true
}
