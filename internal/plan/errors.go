package plan

import "errors"

var (
	// ErrUnknownTransferKind indicates a kind label matched no TransferKind,
	// neither exactly nor upper-cased.
	ErrUnknownTransferKind = errors.New("unrecognized transfer kind")

	// ErrNegativeField indicates a length, offset or index below zero.
	ErrNegativeField = errors.New("negative field value")

	// ErrInvalidWindow indicates a swap window whose deadline precedes its start.
	ErrInvalidWindow = errors.New("invalid swap window")
)
