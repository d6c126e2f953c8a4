// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog

import (
	"fmt"

	"github.com/canonical/go-tpm2"
)

// UnsupportedSpecError is returned from ReadLog if the log starts with
// a spec ID event with a signature that isn't understood.
type UnsupportedSpecError struct {
	Signature string
}

func (e *UnsupportedSpecError) Error() string {
	return fmt.Sprintf("unsupported spec ID event signature %q", e.Signature)
}

// InconsistentSpecError is returned from ReadLog if the spec ID event
// declares a digest size that doesn't match the size defined for the
// algorithm.
type InconsistentSpecError struct {
	Algorithm  tpm2.HashAlgorithmId
	DigestSize uint16
}

func (e *InconsistentSpecError) Error() string {
	return fmt.Sprintf("spec ID event declares digest size %d for algorithm %v, expected %d",
		e.DigestSize, e.Algorithm, e.Algorithm.Size())
}

// UndeclaredAlgorithmError is returned from ReadLog if a crypto-agile
// event contains a digest for an algorithm that the spec ID event
// didn't declare.
type UndeclaredAlgorithmError struct {
	Algorithm tpm2.HashAlgorithmId
}

func (e *UndeclaredAlgorithmError) Error() string {
	return fmt.Sprintf("event contains a digest for algorithm %v which is not declared by the spec ID event",
		e.Algorithm)
}
