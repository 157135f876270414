// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wrappers packs fixed width values into byte strings.
package wrappers

// Errs keeps the first error of a series of operations.
type Errs struct {
	Err error
}

func (errs *Errs) Errored() bool {
	return errs.Err != nil
}

// Add records the first non-nil error; later ones are dropped.
func (errs *Errs) Add(errors ...error) {
	if errs.Err != nil {
		return
	}
	for _, err := range errors {
		if err != nil {
			errs.Err = err
			return
		}
	}
}
