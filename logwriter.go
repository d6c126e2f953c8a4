// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/canonical/go-tpm2"

	"golang.org/x/xerrors"
)

// Write serializes the event to w using the non crypto-agile format.
// The event must contain a SHA-1 digest.
func (e *Event) Write(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, e.PCRIndex); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.EventType); err != nil {
		return err
	}

	digest, ok := e.Digests[tpm2.HashAlgorithmSHA1]
	if !ok {
		return fmt.Errorf("missing SHA-1 digest")
	}
	if len(digest) != tpm2.HashAlgorithmSHA1.Size() {
		return fmt.Errorf("invalid SHA-1 digest length %d", len(digest))
	}
	if _, err := w.Write(digest); err != nil {
		return err
	}

	return writeLengthPrefixed[uint32](w, e.Data)
}

// WriteCryptoAgile serializes the event to w using the crypto-agile
// format. The event must contain a digest for every algorithm in
// digestSizes, and digests for other algorithms are not written.
func (e *Event) WriteCryptoAgile(w io.Writer, digestSizes []EFISpecIdEventAlgorithmSize) error {
	if err := binary.Write(w, binary.LittleEndian, e.PCRIndex); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.EventType); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(digestSizes))); err != nil {
		return err
	}

	for _, s := range digestSizes {
		digest, ok := e.Digests[s.AlgorithmId]
		if !ok {
			return fmt.Errorf("missing digest for algorithm %v", s.AlgorithmId)
		}
		if len(digest) != int(s.DigestSize) {
			return fmt.Errorf("invalid digest length %d for algorithm %v", len(digest), s.AlgorithmId)
		}
		if err := binary.Write(w, binary.LittleEndian, s.AlgorithmId); err != nil {
			return err
		}
		if _, err := w.Write(digest); err != nil {
			return err
		}
	}

	return writeLengthPrefixed[uint32](w, e.Data)
}

// WriteLog serializes a sequence of events to w. The first event is
// always written using the non crypto-agile format. If it is a TPM
// family 2.0 spec ID event, the remaining events are written using the
// crypto-agile format with the digest sizes that it declares.
func WriteLog(w io.Writer, events []*Event) error {
	if len(events) == 0 {
		return nil
	}

	var digestSizes []EFISpecIdEventAlgorithmSize
	if events[0].EventType == EventTypeNoAction && events[0].PCRIndex == 0 {
		if sig, ok := specIdEventSignature(events[0].Data); ok && sig == specIdEventSig03 {
			spec, err := decodeSpecIdEvent03(bytes.NewReader(events[0].Data[16:]))
			if err != nil {
				return xerrors.Errorf("cannot decode spec ID event: %w", err)
			}
			for _, s := range spec.DigestSizes {
				if s.AlgorithmId.IsValid() && uint16(s.AlgorithmId.Size()) != s.DigestSize {
					return &InconsistentSpecError{Algorithm: s.AlgorithmId, DigestSize: s.DigestSize}
				}
			}
			digestSizes = spec.DigestSizes
		}
	}

	if err := events[0].Write(w); err != nil {
		return xerrors.Errorf("cannot write event 0: %w", err)
	}

	for i, event := range events[1:] {
		var err error
		if digestSizes != nil {
			err = event.WriteCryptoAgile(w, digestSizes)
		} else {
			err = event.Write(w)
		}
		if err != nil {
			return xerrors.Errorf("cannot write event %d: %w", i+1, err)
		}
	}

	return nil
}
