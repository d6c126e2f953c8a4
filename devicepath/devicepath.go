// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

// Package devicepath decodes, encodes and displays UEFI device paths,
// as defined in section 10 of the UEFI specification.
package devicepath

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/canonical/tcglog-diff/internal/ioerr"
)

// DisplayMode controls the amount of detail included in the string
// form of a device path node.
type DisplayMode int

const (
	// DisplayShort elides detail that isn't needed to identify a
	// device, and is the form used when comparing paths.
	DisplayShort DisplayMode = iota

	// DisplayFull includes all decoded fields.
	DisplayFull
)

const (
	nodeTypeHardware  uint8 = 0x01
	nodeTypeACPI      uint8 = 0x02
	nodeTypeMessaging uint8 = 0x03
	nodeTypeMedia     uint8 = 0x04
	nodeTypeBios      uint8 = 0x05
	nodeTypeEnd       uint8 = 0x7f

	nodeSubTypeEndInstance uint8 = 0x01
	nodeSubTypeEndEntire   uint8 = 0xff
)

// Node is a single node of a device path.
type Node interface {
	// Display returns the string form of this node.
	Display(mode DisplayMode) string

	// Write serializes this node to w, reproducing the bytes it
	// was decoded from.
	Write(w io.Writer) error
}

// InvalidNodeLengthError is returned when a node's declared length
// doesn't match what its type requires.
type InvalidNodeLengthError struct {
	Type    uint8
	SubType uint8
	Length  uint16
}

func (e *InvalidNodeLengthError) Error() string {
	return fmt.Sprintf("invalid length %d for device path node (type 0x%02x, sub-type 0x%02x)",
		e.Length, e.Type, e.SubType)
}

// expectedLength describes the length constraint for a node type. The
// length includes the 4 byte header.
type expectedLength struct {
	n   uint16
	min bool
}

func exactLength(n uint16) expectedLength { return expectedLength{n: n} }
func minLength(n uint16) expectedLength   { return expectedLength{n: n, min: true} }

func (e expectedLength) check(typ, subTyp uint8, length uint16) error {
	if length < e.n || (!e.min && length > e.n) {
		return &InvalidNodeLengthError{Type: typ, SubType: subTyp, Length: length}
	}
	return nil
}

func writeNodeHeader(w io.Writer, typ, subTyp uint8, payloadLen int) error {
	hdr := struct {
		Type    uint8
		SubType uint8
		Length  uint16
	}{typ, subTyp, uint16(payloadLen + 4)}
	return binary.Write(w, binary.LittleEndian, &hdr)
}

// EndNode is a device path terminator. EndEntire terminates the whole
// path and EndInstance separates path instances.
type EndNode struct {
	SubType uint8
}

func (n *EndNode) Display(mode DisplayMode) string {
	return ""
}

func (n *EndNode) Write(w io.Writer) error {
	return writeNodeHeader(w, nodeTypeEnd, n.SubType, 0)
}

// IsEntire indicates that this node terminates the whole device path.
func (n *EndNode) IsEntire() bool {
	return n.SubType == nodeSubTypeEndEntire
}

// UnknownNode corresponds to a node that this package has no decoder
// for. The payload is preserved so that the node can be re-encoded.
type UnknownNode struct {
	Type    uint8
	SubType uint8
	Data    []byte
}

func (n *UnknownNode) Display(mode DisplayMode) string {
	data := "null"
	if len(n.Data) > 0 {
		data = fmt.Sprintf("%x", n.Data)
	}
	switch n.Type {
	case nodeTypeHardware:
		return fmt.Sprintf("HardwarePath(%d,%s)", n.SubType, data)
	case nodeTypeACPI:
		return fmt.Sprintf("AcpiPath(%d,%s)", n.SubType, data)
	case nodeTypeMessaging:
		return fmt.Sprintf("MessagingPath(%d,%s)", n.SubType, data)
	case nodeTypeMedia:
		return fmt.Sprintf("MediaPath(%d,%s)", n.SubType, data)
	default:
		return fmt.Sprintf("Path(%d,%d,%s)", n.Type, n.SubType, data)
	}
}

func (n *UnknownNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, n.Type, n.SubType, len(n.Data)); err != nil {
		return err
	}
	_, err := w.Write(n.Data)
	return err
}

// DevicePath is a sequence of device path nodes. A decoded path
// includes its terminating end node, if it has one.
type DevicePath []Node

// Display returns the string form of this path, with the node strings
// joined by "/". A terminated path ends with a trailing separator
// because end nodes render as empty strings.
func (p DevicePath) Display(mode DisplayMode) string {
	var builder bytes.Buffer
	for i, node := range p {
		if i > 0 {
			builder.WriteString("/")
		}
		builder.WriteString(node.Display(mode))
	}
	return builder.String()
}

func (p DevicePath) String() string {
	return p.Display(DisplayFull)
}

// Write serializes this path to w, reproducing the bytes it was
// decoded from.
func (p DevicePath) Write(w io.Writer) error {
	for _, node := range p {
		if err := node.Write(w); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the serialized form of this path.
func (p DevicePath) Bytes() ([]byte, error) {
	w := new(bytes.Buffer)
	if err := p.Write(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// IsUSB indicates whether any node of this path addresses a USB
// device.
func (p DevicePath) IsUSB() bool {
	for _, node := range p {
		switch node.(type) {
		case *USBNode, *USBWWIDNode, *USBClassNode:
			return true
		}
	}
	return false
}

func decodeNode(r io.Reader) (Node, error) {
	var hdr struct {
		Type    uint8
		SubType uint8
		Length  uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, ioerr.PassRawEOF(err)
	}

	if hdr.Length < 4 {
		return nil, &InvalidNodeLengthError{Type: hdr.Type, SubType: hdr.SubType, Length: hdr.Length}
	}
	data := make([]byte, hdr.Length-4)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, ioerr.EOFIsUnexpected("cannot read node payload: %w", err)
	}

	switch hdr.Type {
	case nodeTypeHardware:
		return decodeHardwareNode(hdr.SubType, hdr.Length, data)
	case nodeTypeACPI:
		return decodeACPINode(hdr.SubType, hdr.Length, data)
	case nodeTypeMessaging:
		return decodeMessagingNode(hdr.SubType, hdr.Length, data)
	case nodeTypeMedia:
		return decodeMediaNode(hdr.SubType, hdr.Length, data)
	case nodeTypeEnd:
		if err := exactLength(4).check(hdr.Type, hdr.SubType, hdr.Length); err != nil {
			return nil, err
		}
		return &EndNode{SubType: hdr.SubType}, nil
	default:
		return &UnknownNode{Type: hdr.Type, SubType: hdr.SubType, Data: data}, nil
	}
}

// ReadDevicePath decodes a device path from data. Decoding stops at an
// end-entire node or at the end of the buffer, whichever comes first;
// end nodes are kept in the decoded path.
func ReadDevicePath(data []byte) (DevicePath, error) {
	r := bytes.NewReader(data)

	var path DevicePath
	for {
		node, err := decodeNode(r)
		switch {
		case err == io.EOF:
			return path, nil
		case err != nil:
			return nil, err
		}

		path = append(path, node)

		if end, ok := node.(*EndNode); ok && end.IsEntire() {
			return path, nil
		}
	}
}
