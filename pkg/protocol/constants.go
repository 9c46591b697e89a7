package protocol

// DCH framing symbols
const (
	DchStartSymbol = 0x5B // '['
	DchStopSymbol  = 0x5D // ']'
)

// Supported DCH protocol versions
const (
	DchVersion2 = 2
	DchVersion3 = 3
)

// DCH frame type identifiers - only the radio packet trace (PTI) types are of
// interest, every other type is dropped by the parser
const (
	DchTypePTITx    = 0x0029 // PTI transmit frame
	DchTypePTIRx    = 0x002A // PTI receive frame
	DchTypePTIOther = 0x002B // PTI frame with another origin
)

// DCH frame size constants (in bytes)
const (
	DchCommonPrefixSize = 5  // Start symbol + length + version
	DchV2HeaderSize     = 13 // Everything the length field covers except the payload (DCHv2)
	DchV3HeaderSize     = 20 // Everything the length field covers except the payload (DCHv3)
)

// PTI hardware start/end markers
const (
	PtiRxStart   = 0xF8 // Rx start
	PtiRxSuccess = 0xF9 // Rx end, frame received
	PtiRxAbort   = 0xFA // Rx end, reception aborted
	PtiTxStart   = 0xFC // Tx start
	PtiTxSuccess = 0xFD // Tx end, frame sent
	PtiTxAbort   = 0xFE // Tx end, transmission aborted
)

// PtiProtocolZWave is the protocol id carried in STATUS_0 for Z-Wave traffic.
// Frames tagged with any other protocol id are dropped.
const PtiProtocolZWave = 6

// PtiRssiOffset is subtracted from the raw RSSI byte for appended-info
// version 1 and onward to obtain the real value in dBm.
const PtiRssiOffset = 0x32

// PTI frame size constants (in bytes)
const (
	PtiMinFrameSize      = 6 // hw start + empty payload + hw end + minimum appended info
	PtiMandatoryInfoSize = 3 // RADIO_INFO + STATUS_0 + APPENDED_INFO_CFG are always present
)

// APPENDED_INFO_CFG bit masks (bit 7 is always 0)
const (
	CfgRxMask      = 0x40 // Bit 6: direction (1=Rx, 0=Tx)
	CfgLengthMask  = 0x38 // Bits 3-5: appended info length minus the 3 mandatory bytes
	CfgVersionMask = 0x07 // Bits 0-2: PTI version
)

// STATUS_0 bit masks
const (
	Status0ErrorCodeMask  = 0xF0 // Bits 4-7: error code
	Status0ProtocolIDMask = 0x0F // Bits 0-3: protocol id
)

// RADIO_INFO bit masks
const (
	RadioInfoAntennaMask  = 0x80 // Bit 7: antenna selected
	RadioInfoSyncwordMask = 0x40 // Bit 6: syncword selected
	RadioInfoChannelMask  = 0x3F // Bits 0-5: channel number
)

// RADIO_CONFIG bit masks (Z-Wave layout, bits 5-7 are always 0)
const (
	RadioConfigRegionMask = 0x1F // Bits 0-4: Z-Wave region id
)
