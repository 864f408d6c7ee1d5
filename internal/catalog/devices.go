// Package catalog holds the compiled-in device descriptor tables (C8): two
// maps from uppercase-hex SHA-256 of a device's verified-boot key to its
// policy descriptor, one for stock OS builds and one for alternative OSes
// whose verified boot chain is self-signed rather than Google-rooted.
package catalog

// StockOrAlt distinguishes the verified-boot trust model a descriptor was
// catalogued under.
type StockOrAlt int

const (
	Stock StockOrAlt = iota
	AltOS
)

// DeviceDescriptor is a catalog entry.
type DeviceDescriptor struct {
	DisplayName               string
	MinAttestationVersion     int
	MinKeymasterVersion       int
	RequiresRollbackResistance bool
	StockOrAlt                StockOrAlt
}

// StockDevices maps verified-boot-key hex (state == Verified) to descriptors for
// devices running their manufacturer's stock OS, Google-rooted verified
// boot chain.
//
// The key values below are placeholders: this deployment has not yet loaded
// a real device fleet's verified-boot key fingerprints. They illustrate the
// shape collected data takes and are replaced wholesale when a real catalog
// snapshot is compiled in.
var StockDevices = map[string]DeviceDescriptor{
	"1F4C8ED16E2C1E5F8C9A6D3B0F7E2A4D5B6C8E9A1F3D5B7C9E1A3F5D7B9C1E3F": {
		DisplayName:               "Pixel 2",
		MinAttestationVersion:     2,
		MinKeymasterVersion:       3,
		RequiresRollbackResistance: false,
		StockOrAlt:                Stock,
	},
	"2A5D9FE27F3D2F6F9DAB7E4C1F8F3B5E6C7D9FAB2F4E6C8DAF2B4D6F8EAC2F4A": {
		DisplayName:               "Pixel 3",
		MinAttestationVersion:     3,
		MinKeymasterVersion:       4,
		RequiresRollbackResistance: true,
		StockOrAlt:                Stock,
	},
}

// AltOSDevices maps verified-boot-key hex (state == SelfSigned) to descriptors for
// devices running a self-signed alternative OS (e.g. a user-rooted AVB
// chain that still enforces a locked bootloader).
var AltOSDevices = map[string]DeviceDescriptor{
	"3B6EAFD38E4E3F7FAEBC8F5D2E9F4C6F7D8EAFBC3F5F7D9EBF3C5E7F9FBD3F5B": {
		DisplayName:               "Pixel 3 (GrapheneOS)",
		MinAttestationVersion:     3,
		MinKeymasterVersion:       4,
		RequiresRollbackResistance: true,
		StockOrAlt:                AltOS,
	},
}

// Lookup resolves verifiedBootKeyHex in the table selected by selfSigned,
// returning the descriptor and whether it was found.
func Lookup(verifiedBootKeyHex string, selfSigned bool) (DeviceDescriptor, bool) {
	table := StockDevices
	if selfSigned {
		table = AltOSDevices
	}
	d, ok := table[verifiedBootKeyHex]
	return d, ok
}
