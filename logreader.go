// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/canonical/go-tpm2"

	"github.com/canonical/tcglog-diff/internal/ioerr"
)

// ReadEvent reads an event from r using the non crypto-agile format
// defined in the TCG PC Client Specific Implementation Specification
// for Conventional BIOS (section 11.1.1, "TCG_PCClientPCREventStruct
// Structure").
func ReadEvent(r io.Reader) (*Event, error) {
	var pcrIndex PCRIndex
	if err := binary.Read(r, binary.LittleEndian, &pcrIndex); err != nil {
		return nil, err
	}

	var eventType EventType
	if err := binary.Read(r, binary.LittleEndian, &eventType); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read event type: %w", err)
	}

	digest := make(Digest, tpm2.HashAlgorithmSHA1.Size())
	if _, err := io.ReadFull(r, digest); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read SHA-1 digest: %w", err)
	}

	data, err := readLengthPrefixed[uint32, byte](r)
	if err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read event data: %w", err)
	}

	return &Event{
		PCRIndex:  pcrIndex,
		EventType: eventType,
		Digests:   DigestMap{tpm2.HashAlgorithmSHA1: digest},
		Data:      data}, nil
}

// ReadEventCryptoAgile reads an event from r using the crypto-agile
// format defined in the TCG PC Client Platform Firmware Profile
// Specification (section 9.2.2, "TCG_PCR_EVENT2 Structure"). The
// digestSizes argument is the table declared by the log's spec ID
// event and determines how each digest is decoded.
func ReadEventCryptoAgile(r io.Reader, digestSizes []EFISpecIdEventAlgorithmSize) (*Event, error) {
	var pcrIndex PCRIndex
	if err := binary.Read(r, binary.LittleEndian, &pcrIndex); err != nil {
		return nil, err
	}

	var eventType EventType
	if err := binary.Read(r, binary.LittleEndian, &eventType); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read event type: %w", err)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read digest count: %w", err)
	}

	digests := make(DigestMap)
	for i := uint32(0); i < count; i++ {
		var algorithmId tpm2.HashAlgorithmId
		if err := binary.Read(r, binary.LittleEndian, &algorithmId); err != nil {
			return nil, ioerr.EOFIsUnexpected("cannot read algorithm for digest %d: %w", i, err)
		}

		var digestSize uint16
		found := false
		for _, s := range digestSizes {
			if s.AlgorithmId == algorithmId {
				digestSize = s.DigestSize
				found = true
				break
			}
		}
		if !found {
			return nil, &UndeclaredAlgorithmError{Algorithm: algorithmId}
		}

		digest := make(Digest, digestSize)
		if _, err := io.ReadFull(r, digest); err != nil {
			return nil, ioerr.EOFIsUnexpected("cannot read digest for algorithm %v: %w", algorithmId, err)
		}
		digests[algorithmId] = digest
	}

	data, err := readLengthPrefixed[uint32, byte](r)
	if err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read event data: %w", err)
	}

	return &Event{
		PCRIndex:  pcrIndex,
		EventType: eventType,
		Digests:   digests,
		Data:      data}, nil
}

// specIdEventSignature extracts the NUL padded 16 byte signature from
// the data of a spec ID event.
func specIdEventSignature(data []byte) (string, bool) {
	if len(data) < 16 {
		return "", false
	}
	return string(bytes.TrimRight(data[:16], "\x00")), true
}

func classifyLog(event *Event) (*Log, error) {
	log := new(Log)

	if event.EventType != EventTypeNoAction || event.PCRIndex != 0 {
		log.Algorithms = AlgorithmIdList{tpm2.HashAlgorithmSHA1}
		return log, nil
	}

	sig, ok := specIdEventSignature(event.Data)
	if !ok {
		log.Algorithms = AlgorithmIdList{tpm2.HashAlgorithmSHA1}
		return log, nil
	}

	r := bytes.NewReader(event.Data[16:])

	switch sig {
	case specIdEventSig00:
		if _, err := decodeSpecIdEvent00(r); err != nil {
			return nil, ioerr.EOFIsUnexpected("cannot decode spec ID event: %w", err)
		}
		log.Spec = SpecPCClient
		log.Algorithms = AlgorithmIdList{tpm2.HashAlgorithmSHA1}
	case specIdEventSig02:
		if _, err := decodeSpecIdEvent02(r); err != nil {
			return nil, ioerr.EOFIsUnexpected("cannot decode spec ID event: %w", err)
		}
		log.Spec = SpecEFI_1_2
		log.Algorithms = AlgorithmIdList{tpm2.HashAlgorithmSHA1}
	case specIdEventSig03:
		spec, err := decodeSpecIdEvent03(r)
		if err != nil {
			return nil, ioerr.EOFIsUnexpected("cannot decode spec ID event: %w", err)
		}
		for _, s := range spec.DigestSizes {
			if s.AlgorithmId.IsValid() && uint16(s.AlgorithmId.Size()) != s.DigestSize {
				return nil, &InconsistentSpecError{Algorithm: s.AlgorithmId, DigestSize: s.DigestSize}
			}
			log.Algorithms = append(log.Algorithms, s.AlgorithmId)
		}
		log.Spec = SpecEFI_2
		log.DigestSizes = spec.DigestSizes
	default:
		return nil, &UnsupportedSpecError{Signature: sig}
	}

	return log, nil
}

// ReadLog reads an event log from r. The log must be in the format
// defined in one of the PC Client Platform Firmware Profile
// specifications. The first event is read using the non crypto-agile
// format; if it is a TPM family 2.0 spec ID event, the remaining
// events are read using the crypto-agile format. If an error occurs
// during parsing, this may return an incomplete list of events with
// the error.
func ReadLog(r io.Reader) (*Log, error) {
	event, err := ReadEvent(r)
	switch {
	case err == io.EOF:
		return new(Log), nil
	case err != nil:
		return nil, err
	}

	log, err := classifyLog(event)
	if err != nil {
		return nil, err
	}
	log.Events = append(log.Events, event)

	for {
		var event *Event
		var err error
		if log.Spec.IsEFI_2() {
			event, err = ReadEventCryptoAgile(r, log.DigestSizes)
		} else {
			event, err = ReadEvent(r)
		}

		switch {
		case err == io.EOF:
			return log, nil
		case err != nil:
			return log, err
		default:
			log.Events = append(log.Events, event)
		}
	}
}
