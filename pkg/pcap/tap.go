// Package pcap writes and reads classic pcap capture files carrying the
// Z-Wave TAP link layer encapsulation (LINKTYPE_ZWAVE_TAP, 297). Each packet
// record holds a small TAP header, three fixed TLVs (frame check sequence
// type, receive signal strength, radio frequency information) and the raw
// over-the-air payload.
package pcap

import (
	"github.com/zwavetools/ztrace/pkg/rail"
)

// pcap file header fields
const (
	magicNumber  = 0xA1B2C3D4 // seconds + microseconds timestamp variant
	versionMajor = 2
	versionMinor = 4
	snapLen      = 4096
	linkType     = 297 // LINKTYPE_ZWAVE_TAP
)

// layout sizes (in bytes)
const (
	fileHeaderSize   = 24
	recordHeaderSize = 16
	tapHeaderSize    = 4
	tapTLVWords      = 7  // the three TLVs in 32 bit words
	tapTotalSize     = 32 // TAP header plus all three TLVs
)

// tapVersion is the only TAP header version in use
const tapVersion = 1

// TAP TLV type tags
const (
	tlvTypeFCS    = 0
	tlvTypeRSS    = 1
	tlvTypeRFInfo = 2
)

// DataRate is the Z-Wave data rate class in TAP encoding
type DataRate uint16

const (
	DataRateUnknown DataRate = 0
	DataRateR1      DataRate = 1 // 9.6 kbit/s
	DataRateR2      DataRate = 2 // 40 kbit/s
	DataRateR3      DataRate = 3 // 100 kbit/s
)

// FCS type TLV values: R1 and R2 frames end with an 8 bit checksum, R3
// frames with a 16 bit CRC.
const (
	FCSType8Bit  = 1
	FCSType16Bit = 2
)

// Region is the regulatory region in TAP encoding
type Region uint16

const (
	RegionUnknown       Region = 0
	RegionEU            Region = 1
	RegionUS            Region = 2
	RegionANZ           Region = 3
	RegionHK            Region = 4
	RegionIN            Region = 5
	RegionIL            Region = 6
	RegionRU            Region = 7
	RegionCN            Region = 8
	RegionUSLR1         Region = 9
	RegionUSLR2         Region = 10
	RegionUSLREndDevice Region = 11
	RegionEULR1         Region = 12
	RegionEULR2         Region = 13
	RegionEULREndDevice Region = 14
	RegionJP            Region = 32
	RegionKR            Region = 33
	RegionMY            Region = 48
)

// railRegionToTap converts a RAIL region id into the TAP region code
var railRegionToTap = map[rail.RegionID]Region{
	rail.RegionINV:   RegionUnknown,
	rail.RegionEU:    RegionEU,
	rail.RegionUS:    RegionUS,
	rail.RegionANZ:   RegionANZ,
	rail.RegionHK:    RegionHK,
	rail.RegionMY:    RegionMY,
	rail.RegionIN:    RegionIN,
	rail.RegionJP:    RegionJP,
	rail.RegionRU:    RegionRU,
	rail.RegionIL:    RegionIL,
	rail.RegionKR:    RegionKR,
	rail.RegionCN:    RegionCN,
	rail.RegionUSLR1: RegionUSLR1,
	rail.RegionUSLR2: RegionUSLR2,
	rail.RegionUSLR3: RegionUSLREndDevice,
	rail.RegionEULR1: RegionEULR1,
	rail.RegionEULR2: RegionEULR2,
	rail.RegionEULR3: RegionEULREndDevice,
}

// railBaudToDataRate converts a RAIL baud class into the TAP data rate.
// RAIL keeps a separate value for 100K on long range channels, TAP does not.
var railBaudToDataRate = map[rail.Baud]DataRate{
	rail.Baud9600:   DataRateR1,
	rail.Baud40K:    DataRateR2,
	rail.Baud100K:   DataRateR3,
	rail.Baud100KLR: DataRateR3,
}

// fcsForDataRate returns the FCS type TLV value for a data rate
func fcsForDataRate(rate DataRate) byte {
	if rate == DataRateR3 {
		return FCSType16Bit
	}
	return FCSType8Bit
}
