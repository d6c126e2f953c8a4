// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package devicepath

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	efi "github.com/canonical/go-efilib"
)

const (
	hardwareSubTypePCI          uint8 = 0x01
	hardwareSubTypePCCARD       uint8 = 0x02
	hardwareSubTypeMemoryMapped uint8 = 0x03
	hardwareSubTypeVendor       uint8 = 0x04
	hardwareSubTypeController   uint8 = 0x05
	hardwareSubTypeBMC          uint8 = 0x06
)

// PCINode corresponds to a PCI device path node.
type PCINode struct {
	Function uint8
	Device   uint8
}

func (n *PCINode) Display(mode DisplayMode) string {
	return fmt.Sprintf("Pci(0x%X,0x%X)", n.Device, n.Function)
}

func (n *PCINode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeHardware, hardwareSubTypePCI, 2); err != nil {
		return err
	}
	_, err := w.Write([]byte{n.Function, n.Device})
	return err
}

// PCCARDNode corresponds to a PC Card device path node.
type PCCARDNode struct {
	FunctionNumber uint8
}

func (n *PCCARDNode) Display(mode DisplayMode) string {
	return fmt.Sprintf("PcCard(0x%X)", n.FunctionNumber)
}

func (n *PCCARDNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeHardware, hardwareSubTypePCCARD, 1); err != nil {
		return err
	}
	_, err := w.Write([]byte{n.FunctionNumber})
	return err
}

// MemoryMappedNode corresponds to a memory mapped device path node.
type MemoryMappedNode struct {
	MemoryType   uint32
	StartAddress uint64
	EndAddress   uint64
}

func (n *MemoryMappedNode) Display(mode DisplayMode) string {
	return fmt.Sprintf("MemoryMapped(0x%X,0x%X,0x%X)", n.MemoryType, n.StartAddress, n.EndAddress)
}

func (n *MemoryMappedNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeHardware, hardwareSubTypeMemoryMapped, 20); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.MemoryType); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.StartAddress); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, n.EndAddress)
}

// HardwareVendorNode corresponds to a vendor defined hardware device
// path node.
type HardwareVendorNode struct {
	GUID efi.GUID
	Data []byte
}

func (n *HardwareVendorNode) Display(mode DisplayMode) string {
	if len(n.Data) == 0 {
		return fmt.Sprintf("VenHw(%s)", n.GUID)
	}
	return fmt.Sprintf("VenHw(%s,%x)", n.GUID, n.Data)
}

func (n *HardwareVendorNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeHardware, hardwareSubTypeVendor, 16+len(n.Data)); err != nil {
		return err
	}
	if _, err := w.Write(n.GUID[:]); err != nil {
		return err
	}
	_, err := w.Write(n.Data)
	return err
}

// ControllerNode corresponds to a controller device path node.
type ControllerNode struct {
	ControllerNumber uint32
}

func (n *ControllerNode) Display(mode DisplayMode) string {
	return fmt.Sprintf("Ctrl(0x%X)", n.ControllerNumber)
}

func (n *ControllerNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeHardware, hardwareSubTypeController, 4); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, n.ControllerNumber)
}

// BMCNode corresponds to a baseboard management controller device path
// node.
type BMCNode struct {
	InterfaceType uint8
	BaseAddress   uint64
}

func (n *BMCNode) Display(mode DisplayMode) string {
	return fmt.Sprintf("BMC(%d,0x%X)", n.InterfaceType, n.BaseAddress)
}

func (n *BMCNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeHardware, hardwareSubTypeBMC, 9); err != nil {
		return err
	}
	if _, err := w.Write([]byte{n.InterfaceType}); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, n.BaseAddress)
}

func decodeHardwareNode(subTyp uint8, length uint16, data []byte) (Node, error) {
	r := bytes.NewReader(data)

	switch subTyp {
	case hardwareSubTypePCI:
		if err := exactLength(6).check(nodeTypeHardware, subTyp, length); err != nil {
			return nil, err
		}
		n := new(PCINode)
		if err := binary.Read(r, binary.LittleEndian, &n.Function); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.Device); err != nil {
			return nil, err
		}
		return n, nil
	case hardwareSubTypePCCARD:
		if err := exactLength(5).check(nodeTypeHardware, subTyp, length); err != nil {
			return nil, err
		}
		return &PCCARDNode{FunctionNumber: data[0]}, nil
	case hardwareSubTypeMemoryMapped:
		if err := exactLength(24).check(nodeTypeHardware, subTyp, length); err != nil {
			return nil, err
		}
		n := new(MemoryMappedNode)
		if err := binary.Read(r, binary.LittleEndian, &n.MemoryType); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.StartAddress); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.EndAddress); err != nil {
			return nil, err
		}
		return n, nil
	case hardwareSubTypeVendor:
		if err := minLength(20).check(nodeTypeHardware, subTyp, length); err != nil {
			return nil, err
		}
		guid, err := efi.ReadGUID(r)
		if err != nil {
			return nil, err
		}
		return &HardwareVendorNode{GUID: guid, Data: data[16:]}, nil
	case hardwareSubTypeController:
		if err := exactLength(8).check(nodeTypeHardware, subTyp, length); err != nil {
			return nil, err
		}
		n := new(ControllerNode)
		if err := binary.Read(r, binary.LittleEndian, &n.ControllerNumber); err != nil {
			return nil, err
		}
		return n, nil
	case hardwareSubTypeBMC:
		if err := exactLength(13).check(nodeTypeHardware, subTyp, length); err != nil {
			return nil, err
		}
		n := &BMCNode{InterfaceType: data[0]}
		if err := binary.Read(bytes.NewReader(data[1:]), binary.LittleEndian, &n.BaseAddress); err != nil {
			return nil, err
		}
		return n, nil
	default:
		if err := minLength(4).check(nodeTypeHardware, subTyp, length); err != nil {
			return nil, err
		}
		return &UnknownNode{Type: nodeTypeHardware, SubType: subTyp, Data: data}, nil
	}
}
