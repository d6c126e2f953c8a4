// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package devicepath_test

import (
	"strings"
	"testing"

	efi "github.com/canonical/go-efilib"

	. "gopkg.in/check.v1"

	. "github.com/canonical/tcglog-diff/devicepath"
)

func Test(t *testing.T) { TestingT(t) }

type devicepathSuite struct{}

var _ = Suite(&devicepathSuite{})

// iscsiBootPath is the example path from section 3.1.2 of the UEFI
// specification: an iSCSI boot device hanging off a PCI NIC.
func iscsiBootPath() []byte {
	var data []byte

	// PciRoot(0x0)
	data = append(data, 0x02, 0x01, 0x0c, 0x00, 0xd0, 0x41, 0x03, 0x0a, 0x00, 0x00, 0x00, 0x00)
	// Pci(0x19,0x0)
	data = append(data, 0x01, 0x01, 0x06, 0x00, 0x00, 0x19)
	// MAC(00:13:20:F5:FA:77,1)
	data = append(data, 0x03, 0x0b, 0x25, 0x00)
	data = append(data, 0x00, 0x13, 0x20, 0xf5, 0xfa, 0x77)
	data = append(data, make([]byte, 26)...)
	data = append(data, 0x01)
	// IPv4(192.168.0.100:3260,TCP,Static,192.168.0.1:0,0.0.0.0,255.255.255.0)
	data = append(data, 0x03, 0x0c, 0x1b, 0x00)
	data = append(data, 192, 168, 0, 1) // local
	data = append(data, 192, 168, 0, 100) // remote
	data = append(data, 0x00, 0x00) // local port
	data = append(data, 0xbc, 0x0c) // remote port 3260
	data = append(data, 0x06, 0x00) // TCP
	data = append(data, 0x01)       // static
	data = append(data, 0, 0, 0, 0)
	data = append(data, 255, 255, 255, 0)
	// iSCSI target
	data = append(data, 0x03, 0x13, 0x49, 0x00)
	data = append(data, 0x00, 0x00) // protocol
	data = append(data, 0x00, 0x00) // options
	data = append(data, make([]byte, 8)...) // LUN
	data = append(data, 0x01, 0x00) // group tag
	data = append(data, []byte("iqn.1991-05.com.microsoft:iscsitarget-iscsidisk-target\x00")...)
	// HD(1,GPT,15e39a00-1dd2-1000-8d7f-00a0c92408fc)
	data = append(data, 0x04, 0x01, 0x2a, 0x00)
	data = append(data, 0x01, 0x00, 0x00, 0x00) // partition number
	data = append(data, 0x00, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00) // start
	data = append(data, 0x00, 0x00, 0x20, 0x00, 0x00, 0x00, 0x00, 0x00) // size
	data = append(data, 0x00, 0x9a, 0xe3, 0x15, 0xd2, 0x1d, 0x00, 0x10, 0x8d, 0x7f, 0x00, 0xa0, 0xc9, 0x24, 0x08, 0xfc)
	data = append(data, 0x02, 0x02)
	// End
	data = append(data, 0x7f, 0xff, 0x04, 0x00)

	return data
}

func (s *devicepathSuite) TestReadISCSIBootPath(c *C) {
	path, err := ReadDevicePath(iscsiBootPath())
	c.Assert(err, IsNil)
	c.Assert(path, HasLen, 7)

	c.Check(path[0], DeepEquals, Node(&ACPINode{HID: 0x0a0341d0, UID: 0}))
	c.Check(path[1], DeepEquals, Node(&PCINode{Function: 0x00, Device: 0x19}))
	c.Check(path[2], DeepEquals, Node(&MACAddrNode{MAC: []uint8{0x00, 0x13, 0x20, 0xf5, 0xfa, 0x77}, IfType: 1}))
	c.Check(path[3], FitsTypeOf, &IPv4Node{})
	c.Check(path[4], FitsTypeOf, &ISCSINode{})
	c.Check(path[5], FitsTypeOf, &HardDriveNode{})
	c.Check(path[6], DeepEquals, Node(&EndNode{SubType: 0xff}))

	c.Check(path.Display(DisplayShort), Equals,
		"PciRoot(0x0)/Pci(0x19,0x0)/MAC(00:13:20:F5:FA:77,1)/IPv4(192.168.0.100)/"+
			"iSCSI(iqn.1991-05.com.microsoft:iscsitarget-iscsidisk-target)/"+
			"HD(1,GPT,15e39a00-1dd2-1000-8d7f-00a0c92408fc)/")
	c.Check(path.Display(DisplayFull), Equals,
		"PciRoot(0x0)/Pci(0x19,0x0)/MAC(00:13:20:F5:FA:77,1)/"+
			"IPv4(192.168.0.100:3260,TCP,Static,192.168.0.1:0,0.0.0.0,255.255.255.0)/"+
			"iSCSI(iqn.1991-05.com.microsoft:iscsitarget-iscsidisk-target,1,0x0)/"+
			"HD(1,GPT,15e39a00-1dd2-1000-8d7f-00a0c92408fc,2048,2097152)/")
}

func (s *devicepathSuite) TestISCSIBootPathRoundTrip(c *C) {
	data := iscsiBootPath()
	path, err := ReadDevicePath(data)
	c.Assert(err, IsNil)

	out, err := path.Bytes()
	c.Assert(err, IsNil)
	c.Check(out, DeepEquals, data)
}

func (s *devicepathSuite) TestReadSASVendorNode(c *C) {
	data := []byte{0x03, 0x0a, 0x2c, 0x00}
	// SAS vendor GUID in wire order
	data = append(data, 0xb4, 0xdd, 0x87, 0xd4, 0x8b, 0x00, 0xd9, 0x11, 0xaf, 0xdc, 0x00, 0x10, 0x83, 0xff, 0xca, 0x4d)
	data = append(data, 0x00, 0x00, 0x00, 0x00)                         // reserved
	data = append(data, 0x50, 0x00, 0xc5, 0x00, 0x35, 0xb9, 0x95, 0x04) // address
	data = append(data, make([]byte, 8)...)                             // LUN
	data = append(data, 0x01, 0x00)                                     // topology: info present, SAS, internal
	data = append(data, 0x00, 0x00)                                     // RTP

	path, err := ReadDevicePath(data)
	c.Assert(err, IsNil)
	c.Assert(path, HasLen, 1)

	sas, ok := path[0].(*SASNode)
	c.Assert(ok, Equals, true)
	c.Check(sas.Address, Equals, [8]uint8{0x50, 0x00, 0xc5, 0x00, 0x35, 0xb9, 0x95, 0x04})
	c.Check(sas.DeviceTopology, Equals, uint16(1))

	c.Check(path.Display(DisplayShort), Equals, "SAS(0x5000C50035B99504)")
	c.Check(path.Display(DisplayFull), Equals, "SAS(0x5000C50035B99504,0x0,0x0,SAS,Internal)")

	out, err := path.Bytes()
	c.Assert(err, IsNil)
	c.Check(out, DeepEquals, data)
}

func (s *devicepathSuite) TestReadVendorNodeWithWrongPayloadSize(c *C) {
	// The SAS GUID with a payload that isn't 24 bytes stays a
	// plain vendor node.
	data := []byte{0x03, 0x0a, 0x16, 0x00}
	data = append(data, 0xb4, 0xdd, 0x87, 0xd4, 0x8b, 0x00, 0xd9, 0x11, 0xaf, 0xdc, 0x00, 0x10, 0x83, 0xff, 0xca, 0x4d)
	data = append(data, 0x01, 0x02)

	path, err := ReadDevicePath(data)
	c.Assert(err, IsNil)
	c.Assert(path, HasLen, 1)
	c.Check(path[0], FitsTypeOf, &MessagingVendorNode{})

	out, err := path.Bytes()
	c.Assert(err, IsNil)
	c.Check(out, DeepEquals, data)
}

func (s *devicepathSuite) TestReadSASExNode(c *C) {
	data := []byte{0x03, 0x16, 0x18, 0x00}
	data = append(data, 0x50, 0x00, 0xc5, 0x00, 0x35, 0xb9, 0x95, 0x04)
	data = append(data, make([]byte, 8)...)
	data = append(data, 0x00, 0x00)
	data = append(data, 0x00, 0x00)

	path, err := ReadDevicePath(data)
	c.Assert(err, IsNil)
	c.Assert(path, HasLen, 1)
	c.Check(path[0], FitsTypeOf, &SASExNode{})
	c.Check(path.Display(DisplayShort), Equals, "SasEx(0x5000C50035B99504)")
	c.Check(path.Display(DisplayFull), Equals, "SasEx(0x5000C50035B99504,0x0,0x0,NoTopology)")

	out, err := path.Bytes()
	c.Assert(err, IsNil)
	c.Check(out, DeepEquals, data)
}

func (s *devicepathSuite) TestReadFwVolFilePath(c *C) {
	data := []byte{0x04, 0x07, 0x14, 0x00}
	data = append(data, 0xc9, 0xbd, 0xb8, 0x7c, 0xeb, 0xf8, 0x34, 0x4f, 0xaa, 0xea, 0x3e, 0xe4, 0xaf, 0x65, 0x16, 0xa1)
	data = append(data, 0x04, 0x06, 0x14, 0x00)
	data = append(data, 0x21, 0xaa, 0x2c, 0x46, 0x14, 0x76, 0x03, 0x45, 0x83, 0x6e, 0x8a, 0xb6, 0xf4, 0x66, 0x23, 0x31)
	data = append(data, 0x7f, 0xff, 0x04, 0x00)

	path, err := ReadDevicePath(data)
	c.Assert(err, IsNil)
	c.Assert(path, HasLen, 3)
	c.Check(path.Display(DisplayShort), Equals,
		"Fv(7CB8BDC9-F8EB-4F34-AAEA-3EE4AF6516A1)/FvFile(462CAA21-7614-4503-836E-8AB6F4662331)/")

	out, err := path.Bytes()
	c.Assert(err, IsNil)
	c.Check(out, DeepEquals, data)
}

func (s *devicepathSuite) TestReadFilePathNode(c *C) {
	var data []byte
	data = append(data, 0x04, 0x04, byte(4+2*len(`\EFI\ubuntu\shimx64.efi`)+2), 0x00)
	for _, r := range `\EFI\ubuntu\shimx64.efi` {
		data = append(data, byte(r), 0x00)
	}
	data = append(data, 0x00, 0x00)

	path, err := ReadDevicePath(data)
	c.Assert(err, IsNil)
	c.Assert(path, HasLen, 1)
	c.Check(path.Display(DisplayShort), Equals, `\EFI\ubuntu\shimx64.efi`)

	out, err := path.Bytes()
	c.Assert(err, IsNil)
	c.Check(out, DeepEquals, data)
}

func (s *devicepathSuite) TestReadUnknownNodePreserved(c *C) {
	data := []byte{0x05, 0x01, 0x08, 0x00, 0xde, 0xad, 0xbe, 0xef}

	path, err := ReadDevicePath(data)
	c.Assert(err, IsNil)
	c.Assert(path, HasLen, 1)
	c.Check(path[0], DeepEquals, Node(&UnknownNode{Type: 0x05, SubType: 0x01, Data: []byte{0xde, 0xad, 0xbe, 0xef}}))
	c.Check(path.Display(DisplayFull), Equals, "Path(5,1,deadbeef)")

	out, err := path.Bytes()
	c.Assert(err, IsNil)
	c.Check(out, DeepEquals, data)
}

func (s *devicepathSuite) TestReadUnknownMessagingSubType(c *C) {
	data := []byte{0x03, 0x7b, 0x06, 0x00, 0x01, 0x02}

	path, err := ReadDevicePath(data)
	c.Assert(err, IsNil)

	out, err := path.Bytes()
	c.Assert(err, IsNil)
	c.Check(out, DeepEquals, data)
}

func (s *devicepathSuite) TestReadEmptyURI(c *C) {
	path, err := ReadDevicePath([]byte{0x03, 0x18, 0x04, 0x00})
	c.Assert(err, IsNil)
	c.Check(path.Display(DisplayFull), Equals, "Uri()")
}

func (s *devicepathSuite) TestReadURI(c *C) {
	uri := "http://example.com/boot.efi"
	data := append([]byte{0x03, 0x18, byte(4 + len(uri)), 0x00}, []byte(uri)...)
	path, err := ReadDevicePath(data)
	c.Assert(err, IsNil)
	c.Check(path.Display(DisplayFull), Equals, "Uri(http://example.com/boot.efi)")

	out, err := path.Bytes()
	c.Assert(err, IsNil)
	c.Check(out, DeepEquals, data)
}

func (s *devicepathSuite) TestReadURIInvalidUTF8(c *C) {
	_, err := ReadDevicePath([]byte{0x03, 0x18, 0x08, 0x00, 0xff, 0xfe, 0xfd, 0xfc})
	c.Check(err, ErrorMatches, `invalid UTF-8 in URI device path node`)
}

func (s *devicepathSuite) TestDisplayMACAddr(c *C) {
	n := &MACAddrNode{MAC: []uint8{0xaa, 0x11, 0x22, 0x33, 0x44, 0x55}, IfType: 1}
	c.Check(n.Display(DisplayFull), Equals, "MAC(AA:11:22:33:44:55,1)")
}

func (s *devicepathSuite) TestReadInvalidLength(c *C) {
	// A PCI node must be exactly 6 bytes.
	_, err := ReadDevicePath([]byte{0x01, 0x01, 0x07, 0x00, 0x00, 0x19, 0x00})
	c.Assert(err, FitsTypeOf, &InvalidNodeLengthError{})
	c.Check(err, ErrorMatches, `invalid length 7 for device path node \(type 0x01, sub-type 0x01\)`)
}

func (s *devicepathSuite) TestEndInstanceContinues(c *C) {
	var data []byte
	data = append(data, 0x03, 0x11, 0x05, 0x00, 0x01) // Lun(1)
	data = append(data, 0x7f, 0x01, 0x04, 0x00)       // end instance
	data = append(data, 0x03, 0x11, 0x05, 0x00, 0x02) // Lun(2)
	data = append(data, 0x7f, 0xff, 0x04, 0x00)       // end entire

	path, err := ReadDevicePath(data)
	c.Assert(err, IsNil)
	c.Assert(path, HasLen, 4)
	c.Check(path.Display(DisplayFull), Equals, "Lun(1)//Lun(2)/")

	out, err := path.Bytes()
	c.Assert(err, IsNil)
	c.Check(out, DeepEquals, data)
}

func (s *devicepathSuite) TestIsUSB(c *C) {
	usb := DevicePath{&PCINode{}, &USBNode{ParentPortNumber: 1}}
	c.Check(usb.IsUSB(), Equals, true)

	usbClass := DevicePath{&USBClassNode{DeviceClass: 8}}
	c.Check(usbClass.IsUSB(), Equals, true)

	usbWwid := DevicePath{&USBWWIDNode{}}
	c.Check(usbWwid.IsUSB(), Equals, true)

	disk := DevicePath{&PCINode{}, &SATANode{}, &HardDriveNode{}}
	c.Check(disk.IsUSB(), Equals, false)
}

func (s *devicepathSuite) TestShortDisplayIsPrefixOfFull(c *C) {
	nodes := []Node{
		&IPv4Node{RemoteAddress: [4]uint8{10, 0, 0, 1}},
		&ISCSINode{Target: "iqn.2024-01.com.example:disk"},
		&HardDriveNode{PartitionNumber: 3, PartitionFormat: 2, SignatureType: 2},
		&CDROMNode{BootEntry: 1},
		&MediaVendorNode{GUID: efi.MakeGUID(0x12345678, 0x1234, 0x1234, 0x1234, [...]uint8{1, 2, 3, 4, 5, 6}), Data: []byte{1}},
		&SASNode{Address: [8]uint8{1, 2, 3, 4, 5, 6, 7, 8}},
		&SASExNode{Address: [8]uint8{1, 2, 3, 4, 5, 6, 7, 8}},
	}
	for _, n := range nodes {
		short := n.Display(DisplayShort)
		full := n.Display(DisplayFull)
		c.Check(strings.HasPrefix(full, strings.TrimSuffix(short, ")")), Equals, true,
			Commentf("short %q is not a prefix of full %q", short, full))
	}
}
