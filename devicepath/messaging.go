// Copyright 2024 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package devicepath

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strings"
	"unicode/utf8"

	efi "github.com/canonical/go-efilib"

	"github.com/canonical/tcglog-diff/internal/decode"
)

const (
	messagingSubTypeATAPI          uint8 = 0x01
	messagingSubTypeSCSI           uint8 = 0x02
	messagingSubTypeFibreChannel   uint8 = 0x03
	messagingSubTypeUSB            uint8 = 0x05
	messagingSubTypeI2O            uint8 = 0x06
	messagingSubTypeMACAddr        uint8 = 0x0b
	messagingSubTypeIPv4           uint8 = 0x0c
	messagingSubTypeIPv6           uint8 = 0x0d
	messagingSubTypeVendor         uint8 = 0x0a
	messagingSubTypeUSBClass       uint8 = 0x0f
	messagingSubTypeUSBWWID        uint8 = 0x10
	messagingSubTypeLUN            uint8 = 0x11
	messagingSubTypeSATA           uint8 = 0x12
	messagingSubTypeISCSI          uint8 = 0x13
	messagingSubTypeVLAN           uint8 = 0x14
	messagingSubTypeFibreChannelEx uint8 = 0x15
	messagingSubTypeSASEx          uint8 = 0x16
	messagingSubTypeNVMe           uint8 = 0x17
	messagingSubTypeURI            uint8 = 0x18
	messagingSubTypeSD             uint8 = 0x1a
	messagingSubTypeEMMC           uint8 = 0x1d
)

// sasVendorGUID identifies a vendor defined messaging node that
// carries a Serial Attached SCSI address.
var sasVendorGUID = efi.MakeGUID(0xd487ddb4, 0x008b, 0x11d9, 0xafdc, [...]uint8{0x00, 0x10, 0x83, 0xff, 0xca, 0x4d})

// ATAPINode corresponds to an ATAPI device path node.
type ATAPINode struct {
	PrimarySecondary uint8
	SlaveMaster      uint8
	LUN              uint16
}

func (n *ATAPINode) Display(mode DisplayMode) string {
	if mode == DisplayShort {
		return fmt.Sprintf("Ata(%d)", n.LUN)
	}
	controller := "Primary"
	if n.PrimarySecondary != 0 {
		controller = "Secondary"
	}
	drive := "Master"
	if n.SlaveMaster != 0 {
		drive = "Slave"
	}
	return fmt.Sprintf("Ata(%s,%s,%d)", controller, drive, n.LUN)
}

func (n *ATAPINode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeATAPI, 4); err != nil {
		return err
	}
	if _, err := w.Write([]byte{n.PrimarySecondary, n.SlaveMaster}); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, n.LUN)
}

// SCSINode corresponds to a SCSI device path node.
type SCSINode struct {
	TargetID uint16
	LUN      uint16
}

func (n *SCSINode) Display(mode DisplayMode) string {
	return fmt.Sprintf("Scsi(%d,%d)", n.TargetID, n.LUN)
}

func (n *SCSINode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeSCSI, 4); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.TargetID); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, n.LUN)
}

// FibreChannelNode corresponds to a Fibre Channel device path node.
type FibreChannelNode struct {
	Reserved uint32
	WWN      uint64
	LUN      uint64
}

func (n *FibreChannelNode) Display(mode DisplayMode) string {
	return fmt.Sprintf("Fibre(%d,%d)", n.WWN, n.LUN)
}

func (n *FibreChannelNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeFibreChannel, 20); err != nil {
		return err
	}
	for _, f := range []any{n.Reserved, n.WWN, n.LUN} {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

// FibreChannelExNode corresponds to a Fibre Channel Ex device path
// node. The WWN and LUN are stored in big-endian byte order.
type FibreChannelExNode struct {
	Reserved uint32
	WWN      [8]uint8
	LUN      [8]uint8
}

func (n *FibreChannelExNode) Display(mode DisplayMode) string {
	return fmt.Sprintf("FibreEx(%d,%d)", binary.BigEndian.Uint64(n.WWN[:]), binary.BigEndian.Uint64(n.LUN[:]))
}

func (n *FibreChannelExNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeFibreChannelEx, 20); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.Reserved); err != nil {
		return err
	}
	if _, err := w.Write(n.WWN[:]); err != nil {
		return err
	}
	_, err := w.Write(n.LUN[:])
	return err
}

// USBNode corresponds to a USB device path node.
type USBNode struct {
	ParentPortNumber uint8
	InterfaceNumber  uint8
}

func (n *USBNode) Display(mode DisplayMode) string {
	return fmt.Sprintf("Usb(%d,%d)", n.ParentPortNumber, n.InterfaceNumber)
}

func (n *USBNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeUSB, 2); err != nil {
		return err
	}
	_, err := w.Write([]byte{n.ParentPortNumber, n.InterfaceNumber})
	return err
}

// I2ONode corresponds to an I2O device path node.
type I2ONode struct {
	TID uint32
}

func (n *I2ONode) Display(mode DisplayMode) string {
	return fmt.Sprintf("I2O(%d)", n.TID)
}

func (n *I2ONode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeI2O, 4); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, n.TID)
}

// MACAddrNode corresponds to a MAC address device path node. The
// address is either 6 bytes or an 8 byte EUI-64 address.
type MACAddrNode struct {
	MAC    []uint8
	IfType uint8
}

func (n *MACAddrNode) Display(mode DisplayMode) string {
	parts := make([]string, len(n.MAC))
	for i, b := range n.MAC {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("MAC(%s,%d)", strings.Join(parts, ":"), n.IfType)
}

func (n *MACAddrNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeMACAddr, 33); err != nil {
		return err
	}
	var padded [32]uint8
	copy(padded[:], n.MAC)
	if _, err := w.Write(padded[:]); err != nil {
		return err
	}
	_, err := w.Write([]byte{n.IfType})
	return err
}

// IPv4Node corresponds to an IPv4 device path node.
type IPv4Node struct {
	LocalAddress  [4]uint8
	RemoteAddress [4]uint8
	LocalPort     uint16
	RemotePort    uint16
	Protocol      uint16
	StaticIP      uint8
	GatewayIP     [4]uint8
	SubnetMask    [4]uint8
}

func ipProtocolString(p uint16) string {
	switch p {
	case 6:
		return "TCP"
	case 17:
		return "UDP"
	default:
		return fmt.Sprintf("%d", p)
	}
}

func ipv4String(a [4]uint8) string {
	return net.IP(a[:]).String()
}

func (n *IPv4Node) Display(mode DisplayMode) string {
	if mode == DisplayShort {
		return fmt.Sprintf("IPv4(%s)", ipv4String(n.RemoteAddress))
	}
	origin := "DHCP"
	if n.StaticIP != 0 {
		origin = "Static"
	}
	return fmt.Sprintf("IPv4(%s:%d,%s,%s,%s:%d,%s,%s)",
		ipv4String(n.RemoteAddress), n.RemotePort, ipProtocolString(n.Protocol), origin,
		ipv4String(n.LocalAddress), n.LocalPort, ipv4String(n.GatewayIP), ipv4String(n.SubnetMask))
}

func (n *IPv4Node) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeIPv4, 23); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, n.fields())
}

func (n *IPv4Node) fields() any {
	return struct {
		LocalAddress  [4]uint8
		RemoteAddress [4]uint8
		LocalPort     uint16
		RemotePort    uint16
		Protocol      uint16
		StaticIP      uint8
		GatewayIP     [4]uint8
		SubnetMask    [4]uint8
	}{n.LocalAddress, n.RemoteAddress, n.LocalPort, n.RemotePort, n.Protocol, n.StaticIP, n.GatewayIP, n.SubnetMask}
}

// IPv6Node corresponds to an IPv6 device path node.
type IPv6Node struct {
	LocalAddress  [16]uint8
	RemoteAddress [16]uint8
	LocalPort     uint16
	RemotePort    uint16
	Protocol      uint16
	IPAddrOrigin  uint8
	PrefixLength  uint8
	GatewayIP     [16]uint8
}

func ipv6String(a [16]uint8) string {
	return net.IP(a[:]).String()
}

func (n *IPv6Node) Display(mode DisplayMode) string {
	if mode == DisplayShort {
		return fmt.Sprintf("IPv6(%s)", ipv6String(n.RemoteAddress))
	}
	var origin string
	switch n.IPAddrOrigin {
	case 0:
		origin = "Static"
	case 1:
		origin = "StatelessAutoConfigure"
	case 2:
		origin = "StatefulAutoConfigure"
	default:
		origin = fmt.Sprintf("%d", n.IPAddrOrigin)
	}
	return fmt.Sprintf("IPv6(%s:%d,%s,%s,%s:%d,%s,%d)",
		ipv6String(n.RemoteAddress), n.RemotePort, ipProtocolString(n.Protocol), origin,
		ipv6String(n.LocalAddress), n.LocalPort, ipv6String(n.GatewayIP), n.PrefixLength)
}

func (n *IPv6Node) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeIPv6, 56); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, n.fields())
}

func (n *IPv6Node) fields() any {
	return struct {
		LocalAddress  [16]uint8
		RemoteAddress [16]uint8
		LocalPort     uint16
		RemotePort    uint16
		Protocol      uint16
		IPAddrOrigin  uint8
		PrefixLength  uint8
		GatewayIP     [16]uint8
	}{n.LocalAddress, n.RemoteAddress, n.LocalPort, n.RemotePort, n.Protocol, n.IPAddrOrigin, n.PrefixLength, n.GatewayIP}
}

// USBClassNode corresponds to a USB class device path node.
type USBClassNode struct {
	VendorID       uint16
	ProductID      uint16
	DeviceClass    uint8
	DeviceSubClass uint8
	DeviceProtocol uint8
}

var usbClassNames = map[uint8]string{
	1:   "UsbAudio",
	2:   "UsbCDCControl",
	3:   "UsbHID",
	6:   "UsbImage",
	7:   "UsbPrinter",
	8:   "UsbMassStorage",
	9:   "UsbHub",
	10:  "UsbCDCData",
	11:  "UsbSmartCard",
	14:  "UsbVideo",
	220: "UsbDiagnostic",
	224: "UsbWireless",
}

func (n *USBClassNode) Display(mode DisplayMode) string {
	if name, ok := usbClassNames[n.DeviceClass]; ok {
		return fmt.Sprintf("%s(%d,%d,%d,%d)", name, n.VendorID, n.ProductID, n.DeviceSubClass, n.DeviceProtocol)
	}
	if n.DeviceClass == 254 {
		switch n.DeviceSubClass {
		case 1:
			return fmt.Sprintf("UsbDeviceFirmwareUpdate(%d,%d,%d)", n.VendorID, n.ProductID, n.DeviceProtocol)
		case 2:
			return fmt.Sprintf("UsbIrdaBridge(%d,%d,%d)", n.VendorID, n.ProductID, n.DeviceProtocol)
		case 3:
			return fmt.Sprintf("UsbTestAndMeasurement(%d,%d,%d)", n.VendorID, n.ProductID, n.DeviceProtocol)
		}
	}
	return fmt.Sprintf("UsbClass(%d,%d,%d,%d,%d)", n.VendorID, n.ProductID, n.DeviceClass, n.DeviceSubClass, n.DeviceProtocol)
}

func (n *USBClassNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeUSBClass, 7); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.VendorID); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.ProductID); err != nil {
		return err
	}
	_, err := w.Write([]byte{n.DeviceClass, n.DeviceSubClass, n.DeviceProtocol})
	return err
}

// USBWWIDNode corresponds to a USB WWID device path node. The serial
// number is kept as raw UTF-16 bytes.
type USBWWIDNode struct {
	InterfaceNumber uint16
	VendorID        uint16
	ProductID       uint16
	SerialNumber    []byte
}

func (n *USBWWIDNode) Display(mode DisplayMode) string {
	return fmt.Sprintf("UsbWwid(%d,%d,%d,WWID)", n.VendorID, n.ProductID, n.InterfaceNumber)
}

func (n *USBWWIDNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeUSBWWID, 6+len(n.SerialNumber)); err != nil {
		return err
	}
	for _, f := range []uint16{n.InterfaceNumber, n.VendorID, n.ProductID} {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	_, err := w.Write(n.SerialNumber)
	return err
}

// LUNNode corresponds to a logical unit device path node.
type LUNNode struct {
	LUN uint8
}

func (n *LUNNode) Display(mode DisplayMode) string {
	return fmt.Sprintf("Lun(%d)", n.LUN)
}

func (n *LUNNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeLUN, 1); err != nil {
		return err
	}
	_, err := w.Write([]byte{n.LUN})
	return err
}

// SATANode corresponds to a SATA device path node.
type SATANode struct {
	HBAPortNumber  uint16
	PortMultiplier uint16
	LUN            uint16
}

func (n *SATANode) Display(mode DisplayMode) string {
	return fmt.Sprintf("Sata(%d,%d,%d)", n.HBAPortNumber, n.PortMultiplier, n.LUN)
}

func (n *SATANode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeSATA, 6); err != nil {
		return err
	}
	for _, f := range []uint16{n.HBAPortNumber, n.PortMultiplier, n.LUN} {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

// ISCSINode corresponds to an iSCSI device path node.
type ISCSINode struct {
	Protocol uint16
	Options  uint16
	LUN      [8]uint8
	GroupTag uint16
	Target   string
}

func (n *ISCSINode) Display(mode DisplayMode) string {
	if mode == DisplayShort {
		return fmt.Sprintf("iSCSI(%s)", n.Target)
	}
	return fmt.Sprintf("iSCSI(%s,%d,0x%X)", n.Target, n.GroupTag, binary.BigEndian.Uint64(n.LUN[:]))
}

func (n *ISCSINode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeISCSI, 14+len(n.Target)+1); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.Protocol); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.Options); err != nil {
		return err
	}
	if _, err := w.Write(n.LUN[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.GroupTag); err != nil {
		return err
	}
	return decode.WriteASCIIZ(w, n.Target)
}

// VLANNode corresponds to a VLAN device path node.
type VLANNode struct {
	VlanID uint16
}

func (n *VLANNode) Display(mode DisplayMode) string {
	return fmt.Sprintf("Vlan(%d)", n.VlanID)
}

func (n *VLANNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeVLAN, 2); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, n.VlanID)
}

// NVMeNode corresponds to an NVM Express namespace device path node.
type NVMeNode struct {
	NamespaceID   uint32
	NamespaceUUID [8]uint8
}

func (n *NVMeNode) Display(mode DisplayMode) string {
	parts := make([]string, len(n.NamespaceUUID))
	for i, b := range n.NamespaceUUID {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return fmt.Sprintf("Nvme(%d,%s)", n.NamespaceID, strings.Join(parts, "-"))
}

func (n *NVMeNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeNVMe, 12); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.NamespaceID); err != nil {
		return err
	}
	_, err := w.Write(n.NamespaceUUID[:])
	return err
}

// URINode corresponds to a URI device path node. An empty URI is
// legal.
type URINode struct {
	URI string
}

func (n *URINode) Display(mode DisplayMode) string {
	if n.URI == "" {
		return "Uri()"
	}
	return fmt.Sprintf("Uri(%s)", n.URI)
}

func (n *URINode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeURI, len(n.URI)); err != nil {
		return err
	}
	_, err := io.WriteString(w, n.URI)
	return err
}

// SDNode corresponds to an SD card device path node.
type SDNode struct {
	SlotNumber uint8
}

func (n *SDNode) Display(mode DisplayMode) string {
	return fmt.Sprintf("Sd(%d)", n.SlotNumber)
}

func (n *SDNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeSD, 1); err != nil {
		return err
	}
	_, err := w.Write([]byte{n.SlotNumber})
	return err
}

// EMMCNode corresponds to an eMMC device path node.
type EMMCNode struct {
	SlotNumber uint8
}

func (n *EMMCNode) Display(mode DisplayMode) string {
	return fmt.Sprintf("EMMC(%d)", n.SlotNumber)
}

func (n *EMMCNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeEMMC, 1); err != nil {
		return err
	}
	_, err := w.Write([]byte{n.SlotNumber})
	return err
}

func sasTopologyString(t uint16) string {
	switch t & 0xf {
	case 0:
		return "NoTopology"
	case 1, 2:
		device := "SAS"
		if t&0x10 != 0 {
			device = "SATA"
		}
		location := "Internal"
		if t&0x20 != 0 {
			location = "External"
		}
		return device + "," + location
	default:
		return fmt.Sprintf("0x%X", t)
	}
}

// SASNode corresponds to a vendor defined messaging node that carries
// a Serial Attached SCSI address. It re-encodes as the vendor node it
// was decoded from.
type SASNode struct {
	Reserved       uint32
	Address        [8]uint8
	LUN            [8]uint8
	DeviceTopology uint16
	RelativeTarget uint16
}

func (n *SASNode) Display(mode DisplayMode) string {
	if mode == DisplayShort {
		return fmt.Sprintf("SAS(0x%016X)", binary.BigEndian.Uint64(n.Address[:]))
	}
	return fmt.Sprintf("SAS(0x%016X,0x%X,0x%X,%s)",
		binary.BigEndian.Uint64(n.Address[:]), binary.BigEndian.Uint64(n.LUN[:]),
		n.RelativeTarget, sasTopologyString(n.DeviceTopology))
}

func (n *SASNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeVendor, 16+24); err != nil {
		return err
	}
	if _, err := w.Write(sasVendorGUID[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.Reserved); err != nil {
		return err
	}
	if _, err := w.Write(n.Address[:]); err != nil {
		return err
	}
	if _, err := w.Write(n.LUN[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.DeviceTopology); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, n.RelativeTarget)
}

// SASExNode corresponds to a SAS Ex device path node.
type SASExNode struct {
	Address        [8]uint8
	LUN            [8]uint8
	DeviceTopology uint16
	RelativeTarget uint16
}

func (n *SASExNode) Display(mode DisplayMode) string {
	if mode == DisplayShort {
		return fmt.Sprintf("SasEx(0x%016X)", binary.BigEndian.Uint64(n.Address[:]))
	}
	return fmt.Sprintf("SasEx(0x%016X,0x%X,0x%X,%s)",
		binary.BigEndian.Uint64(n.Address[:]), binary.BigEndian.Uint64(n.LUN[:]),
		n.RelativeTarget, sasTopologyString(n.DeviceTopology))
}

func (n *SASExNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeSASEx, 20); err != nil {
		return err
	}
	if _, err := w.Write(n.Address[:]); err != nil {
		return err
	}
	if _, err := w.Write(n.LUN[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, n.DeviceTopology); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, n.RelativeTarget)
}

// MessagingVendorNode corresponds to a vendor defined messaging device
// path node that isn't recognized as a SAS node.
type MessagingVendorNode struct {
	GUID efi.GUID
	Data []byte
}

func (n *MessagingVendorNode) Display(mode DisplayMode) string {
	if len(n.Data) == 0 {
		return fmt.Sprintf("VenMsg(%s)", n.GUID)
	}
	return fmt.Sprintf("VenMsg(%s,%x)", n.GUID, n.Data)
}

func (n *MessagingVendorNode) Write(w io.Writer) error {
	if err := writeNodeHeader(w, nodeTypeMessaging, messagingSubTypeVendor, 16+len(n.Data)); err != nil {
		return err
	}
	if _, err := w.Write(n.GUID[:]); err != nil {
		return err
	}
	_, err := w.Write(n.Data)
	return err
}

func allZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

func decodeMessagingVendorNode(data []byte) (Node, error) {
	r := bytes.NewReader(data)
	guid, err := efi.ReadGUID(r)
	if err != nil {
		return nil, err
	}

	if guid != sasVendorGUID || len(data)-16 != 24 {
		return &MessagingVendorNode{GUID: guid, Data: data[16:]}, nil
	}

	n := new(SASNode)
	if err := binary.Read(r, binary.LittleEndian, &n.Reserved); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, n.Address[:]); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, n.LUN[:]); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &n.DeviceTopology); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &n.RelativeTarget); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeMACAddrNode(data []byte) (Node, error) {
	n := &MACAddrNode{IfType: data[32]}
	switch {
	case allZero(data[6:32]):
		n.MAC = append(n.MAC, data[:6]...)
	case allZero(data[8:32]):
		n.MAC = append(n.MAC, data[:8]...)
	default:
		return nil, fmt.Errorf("invalid padding in MAC address device path node")
	}
	return n, nil
}

func decodeMessagingNode(subTyp uint8, length uint16, data []byte) (Node, error) {
	r := bytes.NewReader(data)

	switch subTyp {
	case messagingSubTypeATAPI:
		if err := exactLength(8).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		n := &ATAPINode{PrimarySecondary: data[0], SlaveMaster: data[1]}
		n.LUN = binary.LittleEndian.Uint16(data[2:])
		return n, nil
	case messagingSubTypeSCSI:
		if err := exactLength(8).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		return &SCSINode{
			TargetID: binary.LittleEndian.Uint16(data),
			LUN:      binary.LittleEndian.Uint16(data[2:])}, nil
	case messagingSubTypeFibreChannel:
		if err := exactLength(24).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		n := new(FibreChannelNode)
		if err := binary.Read(r, binary.LittleEndian, &n.Reserved); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.WWN); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.LUN); err != nil {
			return nil, err
		}
		return n, nil
	case messagingSubTypeFibreChannelEx:
		if err := exactLength(24).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		n := new(FibreChannelExNode)
		if err := binary.Read(r, binary.LittleEndian, &n.Reserved); err != nil {
			return nil, err
		}
		copy(n.WWN[:], data[4:12])
		copy(n.LUN[:], data[12:20])
		return n, nil
	case messagingSubTypeUSB:
		if err := exactLength(6).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		return &USBNode{ParentPortNumber: data[0], InterfaceNumber: data[1]}, nil
	case messagingSubTypeI2O:
		if err := exactLength(8).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		return &I2ONode{TID: binary.LittleEndian.Uint32(data)}, nil
	case messagingSubTypeVendor:
		if err := minLength(20).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		return decodeMessagingVendorNode(data)
	case messagingSubTypeMACAddr:
		if err := exactLength(37).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		return decodeMACAddrNode(data)
	case messagingSubTypeIPv4:
		if err := exactLength(27).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		n := new(IPv4Node)
		copy(n.LocalAddress[:], data[0:4])
		copy(n.RemoteAddress[:], data[4:8])
		n.LocalPort = binary.LittleEndian.Uint16(data[8:])
		n.RemotePort = binary.LittleEndian.Uint16(data[10:])
		n.Protocol = binary.LittleEndian.Uint16(data[12:])
		n.StaticIP = data[14]
		copy(n.GatewayIP[:], data[15:19])
		copy(n.SubnetMask[:], data[19:23])
		return n, nil
	case messagingSubTypeIPv6:
		if err := exactLength(60).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		n := new(IPv6Node)
		copy(n.LocalAddress[:], data[0:16])
		copy(n.RemoteAddress[:], data[16:32])
		n.LocalPort = binary.LittleEndian.Uint16(data[32:])
		n.RemotePort = binary.LittleEndian.Uint16(data[34:])
		n.Protocol = binary.LittleEndian.Uint16(data[36:])
		n.IPAddrOrigin = data[38]
		n.PrefixLength = data[39]
		copy(n.GatewayIP[:], data[40:56])
		return n, nil
	case messagingSubTypeUSBClass:
		if err := exactLength(11).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		return &USBClassNode{
			VendorID:       binary.LittleEndian.Uint16(data),
			ProductID:      binary.LittleEndian.Uint16(data[2:]),
			DeviceClass:    data[4],
			DeviceSubClass: data[5],
			DeviceProtocol: data[6]}, nil
	case messagingSubTypeUSBWWID:
		if err := minLength(10).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		return &USBWWIDNode{
			InterfaceNumber: binary.LittleEndian.Uint16(data),
			VendorID:        binary.LittleEndian.Uint16(data[2:]),
			ProductID:       binary.LittleEndian.Uint16(data[4:]),
			SerialNumber:    data[6:]}, nil
	case messagingSubTypeLUN:
		if err := exactLength(5).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		return &LUNNode{LUN: data[0]}, nil
	case messagingSubTypeSATA:
		if err := exactLength(10).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		return &SATANode{
			HBAPortNumber:  binary.LittleEndian.Uint16(data),
			PortMultiplier: binary.LittleEndian.Uint16(data[2:]),
			LUN:            binary.LittleEndian.Uint16(data[4:])}, nil
	case messagingSubTypeISCSI:
		if err := minLength(38).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		n := new(ISCSINode)
		if err := binary.Read(r, binary.LittleEndian, &n.Protocol); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.Options); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(r, n.LUN[:]); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.GroupTag); err != nil {
			return nil, err
		}
		target, err := decode.ReadASCIIZ(r)
		if err != nil {
			return nil, err
		}
		n.Target = target
		return n, nil
	case messagingSubTypeVLAN:
		if err := exactLength(6).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		return &VLANNode{VlanID: binary.LittleEndian.Uint16(data)}, nil
	case messagingSubTypeSASEx:
		if err := exactLength(24).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		n := new(SASExNode)
		copy(n.Address[:], data[0:8])
		copy(n.LUN[:], data[8:16])
		n.DeviceTopology = binary.LittleEndian.Uint16(data[16:])
		n.RelativeTarget = binary.LittleEndian.Uint16(data[18:])
		return n, nil
	case messagingSubTypeNVMe:
		if err := exactLength(16).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		n := &NVMeNode{NamespaceID: binary.LittleEndian.Uint32(data)}
		copy(n.NamespaceUUID[:], data[4:12])
		return n, nil
	case messagingSubTypeURI:
		if err := minLength(4).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		// RFC 3986 URIs are ASCII
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("invalid UTF-8 in URI device path node")
		}
		return &URINode{URI: string(data)}, nil
	case messagingSubTypeSD:
		if err := exactLength(5).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		return &SDNode{SlotNumber: data[0]}, nil
	case messagingSubTypeEMMC:
		if err := exactLength(5).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		return &EMMCNode{SlotNumber: data[0]}, nil
	default:
		if err := minLength(4).check(nodeTypeMessaging, subTyp, length); err != nil {
			return nil, err
		}
		return &UnknownNode{Type: nodeTypeMessaging, SubType: subTyp, Data: data}, nil
	}
}
