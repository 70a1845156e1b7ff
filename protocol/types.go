package protocol

import "fmt"

// DeviceID is the software ID of a device: manufacturer code in the high
// byte, device code in the low byte.
type DeviceID uint16

// NewDeviceID composes a DeviceID from the two ID-mode bytes.
func NewDeviceID(manufacturer, device byte) DeviceID {
	return DeviceID(uint16(manufacturer)<<8 | uint16(device))
}

// Manufacturer returns the manufacturer code.
func (id DeviceID) Manufacturer() byte {
	return byte(id >> 8)
}

// Device returns the device code.
func (id DeviceID) Device() byte {
	return byte(id)
}

func (id DeviceID) String() string {
	return fmt.Sprintf("0x%04x", uint16(id))
}

// Part describes a known device.
type Part struct {
	// Name is the part number
	Name string

	// Vendor is the manufacturer name
	Vendor string

	// Size is the array size in bytes
	Size int

	// SectorSize is the smallest erasable unit in bytes
	SectorSize int
}

// Manufacturer codes.
const (
	VendorSST   byte = 0xBF
	VendorAtmel byte = 0x1F
	VendorAMD   byte = 0x01
)

var knownParts = map[DeviceID]Part{
	NewDeviceID(VendorSST, 0xB5):   {Name: "SST39SF010A", Vendor: "SST", Size: 128 << 10, SectorSize: 4 << 10},
	NewDeviceID(VendorSST, 0xB6):   {Name: "SST39SF020A", Vendor: "SST", Size: 256 << 10, SectorSize: 4 << 10},
	NewDeviceID(VendorSST, 0xB7):   {Name: "SST39SF040", Vendor: "SST", Size: 512 << 10, SectorSize: 4 << 10},
	NewDeviceID(VendorSST, 0xD5):   {Name: "SST39VF010", Vendor: "SST", Size: 128 << 10, SectorSize: 4 << 10},
	NewDeviceID(VendorSST, 0xD6):   {Name: "SST39VF020", Vendor: "SST", Size: 256 << 10, SectorSize: 4 << 10},
	NewDeviceID(VendorAtmel, 0xD5): {Name: "AT29C010A", Vendor: "Atmel", Size: 128 << 10, SectorSize: 128},
	NewDeviceID(VendorAMD, 0x20):   {Name: "Am29F010", Vendor: "AMD", Size: 128 << 10, SectorSize: 16 << 10},
}

// LookupPart returns the part description for a device ID.
func LookupPart(id DeviceID) (Part, bool) {
	p, ok := knownParts[id]
	return p, ok
}

// VendorName returns the manufacturer name for a manufacturer code.
func VendorName(code byte) string {
	switch code {
	case VendorSST:
		return "SST"
	case VendorAtmel:
		return "Atmel"
	case VendorAMD:
		return "AMD"
	default:
		return fmt.Sprintf("unknown vendor 0x%02X", code)
	}
}
