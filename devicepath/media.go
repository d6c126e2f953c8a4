// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package devicepath

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	efi "github.com/canonical/go-efilib"

	"github.com/canonical/tcglog-diff/internal/decode"
)

const (
	mediaSubTypeHardDrive           uint8 = 0x01
	mediaSubTypeCDROM               uint8 = 0x02
	mediaSubTypeVendor              uint8 = 0x03
	mediaSubTypeFilePath            uint8 = 0x04
	mediaSubTypeMediaProtocol       uint8 = 0x05
	mediaSubTypeFwVolFile           uint8 = 0x06
	mediaSubTypeFwVol               uint8 = 0x07
	mediaSubTypeRelativeOffsetRange uint8 = 0x08
	mediaSubTypeRamDisk             uint8 = 0x09
)

const (
	partitionFormatMBR uint8 = 0x01
	partitionFormatGPT uint8 = 0x02

	partitionSigTypeMBR  uint8 = 0x01
	partitionSigTypeGUID uint8 = 0x02
)

// HardDriveNode corresponds to a hard drive device path node. The
// partition signature is kept raw and interpreted according to the
// signature type.
type HardDriveNode struct {
	PartitionNumber uint32
	PartitionStart  uint64
	PartitionSize   uint64
	Signature       [16]uint8
	PartitionFormat uint8
	SignatureType   uint8
}

func (n *HardDriveNode) formatString() string {
	switch n.PartitionFormat {
	case partitionFormatMBR:
		return "MBR"
	case partitionFormatGPT:
		return "GPT"
	default:
		return fmt.Sprintf("%02x", n.PartitionFormat)
	}
}

func (n *HardDriveNode) signatureString() string {
	switch n.SignatureType {
	case partitionSigTypeMBR:
		return fmt.Sprintf("%04x", binary.LittleEndian.Uint16(n.Signature[:]))
	case partitionSigTypeGUID:
		guid := efi.GUID(n.Signature)
		return guid.String()
	default:
		return ""
	}
}

func (n *HardDriveNode) Display(mode DisplayMode) string {
	if mode == DisplayShort || n.PartitionNumber == 0 {
		return fmt.Sprintf("HD(%d,%s,%s)", n.PartitionNumber, n.formatString(), n.signatureString())
	}
	return fmt.Sprintf("HD(%d,%s,%s,%d,%d)", n.PartitionNumber, n.formatString(), n.signatureString(),
		n.PartitionStart, n.PartitionSize)
}

func (n *HardDriveNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMedia, mediaSubTypeHardDrive, 38); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.PartitionNumber); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.PartitionStart); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.PartitionSize); err != nil {
		return err
	}
	if _, err := w.Write(n.Signature[:]); err != nil {
		return err
	}
	_, err := w.Write([]byte{n.PartitionFormat, n.SignatureType})
	return err
}

// CDROMNode corresponds to an El Torito CD-ROM device path node.
type CDROMNode struct {
	BootEntry      uint32
	PartitionStart uint64
	PartitionSize  uint64
}

func (n *CDROMNode) Display(mode DisplayMode) string {
	if mode == DisplayShort {
		return "CdRom"
	}
	return fmt.Sprintf("CdRom(%d,%d,%d)", n.BootEntry, n.PartitionStart, n.PartitionSize)
}

func (n *CDROMNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMedia, mediaSubTypeCDROM, 20); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.BootEntry); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.PartitionStart); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, n.PartitionSize)
}

// MediaVendorNode corresponds to a vendor defined media device path
// node.
type MediaVendorNode struct {
	GUID efi.GUID
	Data []byte
}

func (n *MediaVendorNode) Display(mode DisplayMode) string {
	if mode == DisplayShort {
		return "Vendor"
	}
	return fmt.Sprintf("Vendor(%s,%X)", n.GUID, n.Data)
}

func (n *MediaVendorNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMedia, mediaSubTypeVendor, 16+len(n.Data)); err != nil {
		return err
	}
	if _, err := w.Write(n.GUID[:]); err != nil {
		return err
	}
	_, err := w.Write(n.Data)
	return err
}

// FilePathNode corresponds to a file path device path node. It
// displays as the path itself.
type FilePathNode struct {
	Path string
}

func (n *FilePathNode) Display(mode DisplayMode) string {
	return n.Path
}

func (n *FilePathNode) Write(w io.Writer) error {
	buf := new(bytes.Buffer)
	if err := decode.WriteUCS2Z(buf, n.Path); err != nil {
		return err
	}
	if err := writeNodeHeader(w, nodeTypeMedia, mediaSubTypeFilePath, buf.Len()); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// FwVolFileNode corresponds to a firmware volume file device path
// node.
type FwVolFileNode struct {
	GUID efi.GUID
}

func (n *FwVolFileNode) Display(mode DisplayMode) string {
	return fmt.Sprintf("FvFile(%s)", strings.ToUpper(n.GUID.String()))
}

func (n *FwVolFileNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMedia, mediaSubTypeFwVolFile, 16); err != nil {
		return err
	}
	_, err := w.Write(n.GUID[:])
	return err
}

// FwVolNode corresponds to a firmware volume device path node.
type FwVolNode struct {
	GUID efi.GUID
}

func (n *FwVolNode) Display(mode DisplayMode) string {
	return fmt.Sprintf("Fv(%s)", strings.ToUpper(n.GUID.String()))
}

func (n *FwVolNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMedia, mediaSubTypeFwVol, 16); err != nil {
		return err
	}
	_, err := w.Write(n.GUID[:])
	return err
}

func decodeMediaNode(subTyp uint8, length uint16, data []byte) (Node, error) {
	r := bytes.NewReader(data)

	switch subTyp {
	case mediaSubTypeHardDrive:
		if err := exactLength(42).check(nodeTypeMedia, subTyp, length); err != nil {
			return nil, err
		}
		n := new(HardDriveNode)
		if err := binary.Read(r, binary.LittleEndian, &n.PartitionNumber); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.PartitionStart); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.PartitionSize); err != nil {
			return nil, err
		}
		copy(n.Signature[:], data[20:36])
		n.PartitionFormat = data[36]
		n.SignatureType = data[37]
		return n, nil
	case mediaSubTypeCDROM:
		if err := exactLength(24).check(nodeTypeMedia, subTyp, length); err != nil {
			return nil, err
		}
		n := new(CDROMNode)
		if err := binary.Read(r, binary.LittleEndian, &n.BootEntry); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.PartitionStart); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.PartitionSize); err != nil {
			return nil, err
		}
		return n, nil
	case mediaSubTypeVendor:
		if err := minLength(20).check(nodeTypeMedia, subTyp, length); err != nil {
			return nil, err
		}
		guid, err := efi.ReadGUID(r)
		if err != nil {
			return nil, err
		}
		return &MediaVendorNode{GUID: guid, Data: data[16:]}, nil
	case mediaSubTypeFilePath:
		if err := minLength(4).check(nodeTypeMedia, subTyp, length); err != nil {
			return nil, err
		}
		path, err := decode.ReadUCS2Z(r)
		if err != nil {
			return nil, err
		}
		return &FilePathNode{Path: path}, nil
	case mediaSubTypeFwVolFile:
		if err := exactLength(20).check(nodeTypeMedia, subTyp, length); err != nil {
			return nil, err
		}
		guid, err := efi.ReadGUID(r)
		if err != nil {
			return nil, err
		}
		return &FwVolFileNode{GUID: guid}, nil
	case mediaSubTypeFwVol:
		if err := exactLength(20).check(nodeTypeMedia, subTyp, length); err != nil {
			return nil, err
		}
		guid, err := efi.ReadGUID(r)
		if err != nil {
			return nil, err
		}
		return &FwVolNode{GUID: guid}, nil
	case mediaSubTypeMediaProtocol:
		if err := exactLength(20).check(nodeTypeMedia, subTyp, length); err != nil {
			return nil, err
		}
		return &UnknownNode{Type: nodeTypeMedia, SubType: subTyp, Data: data}, nil
	case mediaSubTypeRelativeOffsetRange:
		if err := exactLength(24).check(nodeTypeMedia, subTyp, length); err != nil {
			return nil, err
		}
		return &UnknownNode{Type: nodeTypeMedia, SubType: subTyp, Data: data}, nil
	case mediaSubTypeRamDisk:
		if err := exactLength(38).check(nodeTypeMedia, subTyp, length); err != nil {
			return nil, err
		}
		return &UnknownNode{Type: nodeTypeMedia, SubType: subTyp, Data: data}, nil
	default:
		if err := minLength(4).check(nodeTypeMedia, subTyp, length); err != nil {
			return nil, err
		}
		return &UnknownNode{Type: nodeTypeMedia, SubType: subTyp, Data: data}, nil
	}
}
