// Copyright 2019-2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog_test

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"

	"github.com/canonical/go-tpm2"

	. "gopkg.in/check.v1"

	. "github.com/canonical/tcglog-diff"
)

type logreaderSuite struct{}

var _ = Suite(&logreaderSuite{})

func sha1Digest(data string) Digest {
	h := sha1.Sum([]byte(data))
	return h[:]
}

func sha256Digest(data string) Digest {
	h := sha256.Sum256([]byte(data))
	return h[:]
}

func specIdEvent03Header(c *C) *Event {
	spec := &SpecIdEvent03{
		SpecVersionMinor: 0,
		SpecVersionMajor: 2,
		UintnSize:        2,
		DigestSizes: []EFISpecIdEventAlgorithmSize{
			{AlgorithmId: tpm2.HashAlgorithmSHA1, DigestSize: 20},
			{AlgorithmId: tpm2.HashAlgorithmSHA256, DigestSize: 32}}}
	return &Event{
		PCRIndex:  0,
		EventType: EventTypeNoAction,
		Digests:   DigestMap{tpm2.HashAlgorithmSHA1: make(Digest, 20)},
		Data:      spec.Bytes()}
}

func specIdEvent02Header(c *C) *Event {
	spec := &SpecIdEvent02{
		SpecVersionMinor: 2,
		SpecVersionMajor: 1,
		UintnSize:        2}
	return &Event{
		PCRIndex:  0,
		EventType: EventTypeNoAction,
		Digests:   DigestMap{tpm2.HashAlgorithmSHA1: make(Digest, 20)},
		Data:      spec.Bytes()}
}

func (s *logreaderSuite) TestReadLogEmpty(c *C) {
	log, err := ReadLog(bytes.NewReader(nil))
	c.Assert(err, IsNil)
	c.Check(log.Spec, Equals, SpecUnknown)
	c.Check(log.Events, HasLen, 0)
}

func (s *logreaderSuite) TestReadLogCryptoAgile(c *C) {
	events := []*Event{
		specIdEvent03Header(c),
		{
			PCRIndex:  0,
			EventType: EventTypeSeparator,
			Digests: DigestMap{
				tpm2.HashAlgorithmSHA1:   sha1Digest("\x00\x00\x00\x00"),
				tpm2.HashAlgorithmSHA256: sha256Digest("\x00\x00\x00\x00")},
			Data: []byte{0, 0, 0, 0}},
		{
			PCRIndex:  4,
			EventType: EventTypeEFIAction,
			Digests: DigestMap{
				tpm2.HashAlgorithmSHA1:   sha1Digest("Calling EFI Application from Boot Option"),
				tpm2.HashAlgorithmSHA256: sha256Digest("Calling EFI Application from Boot Option")},
			Data: []byte("Calling EFI Application from Boot Option")}}

	w := new(bytes.Buffer)
	c.Assert(WriteLog(w, events), IsNil)

	log, err := ReadLog(bytes.NewReader(w.Bytes()))
	c.Assert(err, IsNil)
	c.Check(log.Spec, Equals, SpecEFI_2)
	c.Check(log.Algorithms, DeepEquals, AlgorithmIdList{tpm2.HashAlgorithmSHA1, tpm2.HashAlgorithmSHA256})
	c.Check(log.Events, DeepEquals, events)
}

func (s *logreaderSuite) TestReadLogEFI_1_2(c *C) {
	events := []*Event{
		specIdEvent02Header(c),
		{
			PCRIndex:  8,
			EventType: EventTypeIPL,
			Digests:   DigestMap{tpm2.HashAlgorithmSHA1: sha1Digest("grub_cmd set foo=bar")},
			Data:      []byte("grub_cmd set foo=bar\x00")}}

	w := new(bytes.Buffer)
	c.Assert(WriteLog(w, events), IsNil)

	log, err := ReadLog(bytes.NewReader(w.Bytes()))
	c.Assert(err, IsNil)
	c.Check(log.Spec, Equals, SpecEFI_1_2)
	c.Check(log.Algorithms, DeepEquals, AlgorithmIdList{tpm2.HashAlgorithmSHA1})
	c.Check(log.Events, DeepEquals, events)
}

func (s *logreaderSuite) TestReadLogNoSpecIdEvent(c *C) {
	events := []*Event{
		{
			PCRIndex:  0,
			EventType: EventTypePostCode,
			Digests:   DigestMap{tpm2.HashAlgorithmSHA1: sha1Digest("POST CODE")},
			Data:      []byte("POST CODE")}}

	w := new(bytes.Buffer)
	c.Assert(WriteLog(w, events), IsNil)

	log, err := ReadLog(bytes.NewReader(w.Bytes()))
	c.Assert(err, IsNil)
	c.Check(log.Spec, Equals, SpecUnknown)
	c.Check(log.Events, DeepEquals, events)
}

func (s *logreaderSuite) TestReadLogPreservesUnknownEventTypes(c *C) {
	events := []*Event{
		specIdEvent02Header(c),
		{
			PCRIndex:  6,
			EventType: EventType(0x1234),
			Digests:   DigestMap{tpm2.HashAlgorithmSHA1: sha1Digest("mystery")},
			Data:      []byte("mystery")}}

	w := new(bytes.Buffer)
	c.Assert(WriteLog(w, events), IsNil)

	log, err := ReadLog(bytes.NewReader(w.Bytes()))
	c.Assert(err, IsNil)
	c.Check(log.Events[1].EventType, Equals, EventType(0x1234))
	c.Check(log.Events[1].EventType.String(), Equals, "00001234")
}

func (s *logreaderSuite) TestReadLogUnsupportedSpecSignature(c *C) {
	header := specIdEvent02Header(c)
	copy(header.Data, []byte("Spec ID Event04\x00"))

	w := new(bytes.Buffer)
	c.Assert(header.Write(w), IsNil)

	_, err := ReadLog(bytes.NewReader(w.Bytes()))
	c.Assert(err, FitsTypeOf, &UnsupportedSpecError{})
	c.Check(err, ErrorMatches, `unsupported spec ID event signature "Spec ID Event04"`)
}

func (s *logreaderSuite) TestReadLogInconsistentDigestSize(c *C) {
	spec := &SpecIdEvent03{
		SpecVersionMajor: 2,
		UintnSize:        2,
		DigestSizes: []EFISpecIdEventAlgorithmSize{
			{AlgorithmId: tpm2.HashAlgorithmSHA256, DigestSize: 20}}}
	header := &Event{
		PCRIndex:  0,
		EventType: EventTypeNoAction,
		Digests:   DigestMap{tpm2.HashAlgorithmSHA1: make(Digest, 20)},
		Data:      spec.Bytes()}

	w := new(bytes.Buffer)
	c.Assert(header.Write(w), IsNil)

	_, err := ReadLog(bytes.NewReader(w.Bytes()))
	c.Assert(err, FitsTypeOf, &InconsistentSpecError{})
}

func (s *logreaderSuite) TestReadLogUndeclaredAlgorithm(c *C) {
	header := specIdEvent03Header(c)

	w := new(bytes.Buffer)
	c.Assert(header.Write(w), IsNil)

	event := &Event{
		PCRIndex:  0,
		EventType: EventTypeSeparator,
		Digests:   DigestMap{tpm2.HashAlgorithmSHA384: make(Digest, 48)},
		Data:      []byte{0, 0, 0, 0}}
	c.Assert(event.WriteCryptoAgile(w, []EFISpecIdEventAlgorithmSize{
		{AlgorithmId: tpm2.HashAlgorithmSHA384, DigestSize: 48}}), IsNil)

	log, err := ReadLog(bytes.NewReader(w.Bytes()))
	c.Assert(err, FitsTypeOf, &UndeclaredAlgorithmError{})
	c.Check(err.(*UndeclaredAlgorithmError).Algorithm, Equals, tpm2.HashAlgorithmSHA384)
	// The spec ID event was still decoded.
	c.Check(log.Events, HasLen, 1)
}

func (s *logreaderSuite) TestReadLogTruncated(c *C) {
	events := []*Event{
		specIdEvent03Header(c),
		{
			PCRIndex:  0,
			EventType: EventTypeSeparator,
			Digests: DigestMap{
				tpm2.HashAlgorithmSHA1:   sha1Digest("\x00\x00\x00\x00"),
				tpm2.HashAlgorithmSHA256: sha256Digest("\x00\x00\x00\x00")},
			Data: []byte{0, 0, 0, 0}}}

	w := new(bytes.Buffer)
	c.Assert(WriteLog(w, events), IsNil)

	log, err := ReadLog(bytes.NewReader(w.Bytes()[:w.Len()-2]))
	c.Check(err, ErrorMatches, "cannot read event data: unexpected EOF")
	c.Check(log.Events, HasLen, 1)
}
