// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package devicepath

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/canonical/tcglog-diff/internal/decode"
)

const (
	acpiSubTypeACPI     uint8 = 0x01
	acpiSubTypeExpanded uint8 = 0x02
	acpiSubTypeADR      uint8 = 0x03
)

// pnpEISAID is the compressed EISA vendor ID for "PNP". HIDs carrying
// it have well known display names.
const pnpEISAID = 0x41d0

var acpiDisplayNames = map[uint32]string{
	0x0a03: "PciRoot",
	0x0a08: "PcieRoot",
	0x0604: "Floppy",
	0x0301: "Keyboard",
	0x0501: "Serial",
	0x0401: "ParallelPort",
}

// ACPINode corresponds to an ACPI device path node.
type ACPINode struct {
	HID uint32
	UID uint32
}

func (n *ACPINode) Display(mode DisplayMode) string {
	if n.HID&0xffff == pnpEISAID {
		if name, ok := acpiDisplayNames[n.HID>>16]; ok {
			return fmt.Sprintf("%s(0x%X)", name, n.UID)
		}
	}
	return fmt.Sprintf("Acpi(0x%X,0x%X)", n.HID, n.UID)
}

func (n *ACPINode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeACPI, acpiSubTypeACPI, 8); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.HID); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, n.UID)
}

// ExpandedACPINode corresponds to an expanded ACPI device path node.
// It has no dedicated display form.
type ExpandedACPINode struct {
	HID    uint32
	UID    uint32
	CID    uint32
	HIDStr string
	UIDStr string
	CIDStr string
}

func (n *ExpandedACPINode) payload() ([]byte, error) {
	w := new(bytes.Buffer)
	if err := binary.Write(w, binary.LittleEndian, n.HID); err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.LittleEndian, n.UID); err != nil {
		return nil, err
	}
	if err := binary.Write(w, binary.LittleEndian, n.CID); err != nil {
		return nil, err
	}
	for _, s := range []string{n.HIDStr, n.UIDStr, n.CIDStr} {
		if err := decode.WriteASCIIZ(w, s); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

func (n *ExpandedACPINode) Display(mode DisplayMode) string {
	data, err := n.payload()
	if err != nil {
		return "AcpiPath(2,invalid)"
	}
	return (&UnknownNode{Type: nodeTypeACPI, SubType: acpiSubTypeExpanded, Data: data}).Display(mode)
}

func (n *ExpandedACPINode) Write(w io.Writer) error {
	data, err := n.payload()
	if err != nil {
		return err
	}
	if err := writeNodeHeader(w, nodeTypeACPI, acpiSubTypeExpanded, len(data)); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ADRNode corresponds to an _ADR device path node. It has no dedicated
// display form.
type ADRNode struct {
	ADR []uint32
}

func (n *ADRNode) Display(mode DisplayMode) string {
	w := new(bytes.Buffer)
	binary.Write(w, binary.LittleEndian, n.ADR)
	return (&UnknownNode{Type: nodeTypeACPI, SubType: acpiSubTypeADR, Data: w.Bytes()}).Display(mode)
}

func (n *ADRNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeACPI, acpiSubTypeADR, 4*len(n.ADR)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, n.ADR)
}

func decodeACPINode(subTyp uint8, length uint16, data []byte) (Node, error) {
	r := bytes.NewReader(data)

	switch subTyp {
	case acpiSubTypeACPI:
		if err := exactLength(12).check(nodeTypeACPI, subTyp, length); err != nil {
			return nil, err
		}
		n := new(ACPINode)
		if err := binary.Read(r, binary.LittleEndian, &n.HID); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.UID); err != nil {
			return nil, err
		}
		return n, nil
	case acpiSubTypeExpanded:
		if err := minLength(19).check(nodeTypeACPI, subTyp, length); err != nil {
			return nil, err
		}
		n := new(ExpandedACPINode)
		if err := binary.Read(r, binary.LittleEndian, &n.HID); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.UID); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.CID); err != nil {
			return nil, err
		}
		var err error
		if n.HIDStr, err = decode.ReadASCIIZ(r); err != nil {
			return nil, err
		}
		if n.UIDStr, err = decode.ReadASCIIZ(r); err != nil {
			return nil, err
		}
		if n.CIDStr, err = decode.ReadASCIIZ(r); err != nil {
			return nil, err
		}
		return n, nil
	case acpiSubTypeADR:
		if err := minLength(8).check(nodeTypeACPI, subTyp, length); err != nil {
			return nil, err
		}
		if len(data)%4 != 0 {
			return nil, &InvalidNodeLengthError{Type: nodeTypeACPI, SubType: subTyp, Length: length}
		}
		n := &ADRNode{ADR: make([]uint32, len(data)/4)}
		if err := binary.Read(r, binary.LittleEndian, &n.ADR); err != nil {
			return nil, err
		}
		return n, nil
	default:
		if err := minLength(4).check(nodeTypeACPI, subTyp, length); err != nil {
			return nil, err
		}
		return &UnknownNode{Type: nodeTypeACPI, SubType: subTyp, Data: data}, nil
	}
}
