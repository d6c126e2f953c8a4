// Copyright 2019-2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog_test

import (
	"bytes"

	"github.com/canonical/go-tpm2"

	. "gopkg.in/check.v1"

	. "github.com/canonical/tcglog-diff"
)

type logwriterSuite struct{}

var _ = Suite(&logwriterSuite{})

func (s *logwriterSuite) TestWriteLogCryptoAgileRoundTrip(c *C) {
	events := []*Event{
		specIdEvent03Header(c),
		{
			PCRIndex:  1,
			EventType: EventTypeEFIVariableBoot,
			Digests: DigestMap{
				tpm2.HashAlgorithmSHA1:   sha1Digest("BootOrder"),
				tpm2.HashAlgorithmSHA256: sha256Digest("BootOrder")},
			Data: []byte{0x01, 0x02}}}

	w := new(bytes.Buffer)
	c.Assert(WriteLog(w, events), IsNil)

	log, err := ReadLog(bytes.NewReader(w.Bytes()))
	c.Assert(err, IsNil)

	w2 := new(bytes.Buffer)
	c.Assert(WriteLog(w2, log.Events), IsNil)
	c.Check(w2.Bytes(), DeepEquals, w.Bytes())
}

func (s *logwriterSuite) TestWriteLogMissingDigest(c *C) {
	events := []*Event{
		specIdEvent03Header(c),
		{
			PCRIndex:  1,
			EventType: EventTypeSeparator,
			Digests:   DigestMap{tpm2.HashAlgorithmSHA1: sha1Digest("\x00\x00\x00\x00")},
			Data:      []byte{0, 0, 0, 0}}}

	w := new(bytes.Buffer)
	err := WriteLog(w, events)
	c.Check(err, ErrorMatches, "cannot write event 1: missing digest for algorithm TPM_ALG_SHA256")
}

func (s *logwriterSuite) TestWriteEventLegacy(c *C) {
	event := &Event{
		PCRIndex:  4,
		EventType: EventTypeSeparator,
		Digests:   DigestMap{tpm2.HashAlgorithmSHA1: make(Digest, 20)},
		Data:      []byte{0, 0, 0, 0}}

	w := new(bytes.Buffer)
	c.Assert(event.Write(w), IsNil)

	expected := append([]byte{
		0x04, 0x00, 0x00, 0x00,
		0x04, 0x00, 0x00, 0x00},
		make([]byte, 20)...)
	expected = append(expected, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00)
	c.Check(w.Bytes(), DeepEquals, expected)
}

func (s *logwriterSuite) TestWriteEventMissingSHA1(c *C) {
	event := &Event{
		PCRIndex:  4,
		EventType: EventTypeSeparator,
		Digests:   DigestMap{tpm2.HashAlgorithmSHA256: make(Digest, 32)},
		Data:      []byte{0, 0, 0, 0}}

	c.Check(event.Write(new(bytes.Buffer)), ErrorMatches, "missing SHA-1 digest")
}
