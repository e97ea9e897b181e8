package psi

import "errors"

// Error kinds surfaced to callers (spec §7). They are sentinel values so
// callers can compare with errors.Is even though the concrete error returned
// is usually wrapped with github.com/pkg/errors for context.
var (
	ErrInvalidLength    = errors.New("psi: wire buffer ends inside a declared field")
	ErrBadCRC           = errors.New("psi: CRC-32 mismatch")
	ErrWrongTableID     = errors.New("psi: binary table id does not match typed table")
	ErrInvalidStructure = errors.New("psi: table structure violates a per-family invariant")
	ErrOverflow         = errors.New("psi: atomic record does not fit in a single section")
	ErrVersionExhausted = errors.New("psi: version number out of range 0-31")
	ErrUnknownElement   = errors.New("psi: XML/JSON element name not in the registry")
	ErrIncompleteTable  = errors.New("psi: finalize called while sections are missing")
	ErrDuplicatedSlot   = errors.New("psi: section_number already present with different content")
	ErrConflict         = errors.New("psi: section disagrees with the table instance in progress")
)
