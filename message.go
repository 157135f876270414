// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lendvm

// Message signals from a VM to its host.
type Message struct {
	Type MessageType
	// Content is the number of waiting transactions, big endian, for
	// PendingTxs.
	Content []byte
}

// MessageType identifies the message kind
type MessageType uint32

const (
	// PendingTxs indicates there are pending transactions to process
	PendingTxs MessageType = iota
	// Halted indicates the VM stopped accepting transactions
	Halted
)

// String returns the string representation of the message type
func (m MessageType) String() string {
	switch m {
	case PendingTxs:
		return "PendingTxs"
	case Halted:
		return "Halted"
	default:
		return "Unknown"
	}
}
