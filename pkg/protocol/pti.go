package protocol

import (
	"errors"
	"fmt"
)

// ErrProtocolMismatch is returned when the protocol id in STATUS_0 does not
// identify Z-Wave. Other protocols share the same trace transport, so the
// caller treats this as "drop the frame", not as a fatal condition.
var ErrProtocolMismatch = errors.New("PTI frame does not carry Z-Wave traffic")

// RadioConfig is the Z-Wave flavour of the RADIO_CONFIG byte. For Z-Wave it
// is exactly one byte holding the RAIL region id.
type RadioConfig struct {
	RegionID byte // 5 bits
}

// RadioConfigFromByte unpacks a RADIO_CONFIG byte
func RadioConfigFromByte(b byte) RadioConfig {
	return RadioConfig{
		RegionID: b & RadioConfigRegionMask,
	}
}

// Byte packs the RADIO_CONFIG byte
func (c RadioConfig) Byte() byte {
	return c.RegionID & RadioConfigRegionMask
}

// RadioInfo is the unpacked RADIO_INFO byte
type RadioInfo struct {
	AntennaSelected  byte // 1 bit
	SyncwordSelected byte // 1 bit
	ChannelNumber    byte // 6 bits
}

// RadioInfoFromByte unpacks a RADIO_INFO byte
func RadioInfoFromByte(b byte) RadioInfo {
	return RadioInfo{
		AntennaSelected:  (b & RadioInfoAntennaMask) >> 7,
		SyncwordSelected: (b & RadioInfoSyncwordMask) >> 6,
		ChannelNumber:    b & RadioInfoChannelMask,
	}
}

// Byte packs the RADIO_INFO byte
func (i RadioInfo) Byte() byte {
	return (i.AntennaSelected&0x01)<<7 |
		(i.SyncwordSelected&0x01)<<6 |
		i.ChannelNumber&RadioInfoChannelMask
}

// Status0 is the unpacked STATUS_0 byte
type Status0 struct {
	ErrorCode  byte // 4 bits
	ProtocolID byte // 4 bits
}

// Status0FromByte unpacks a STATUS_0 byte
func Status0FromByte(b byte) Status0 {
	return Status0{
		ErrorCode:  (b & Status0ErrorCodeMask) >> 4,
		ProtocolID: b & Status0ProtocolIDMask,
	}
}

// Byte packs the STATUS_0 byte
func (s Status0) Byte() byte {
	return (s.ErrorCode&0x0F)<<4 | s.ProtocolID&Status0ProtocolIDMask
}

// AppendedInfoCfg is the unpacked APPENDED_INFO_CFG byte, always the last
// byte of a PTI frame. It is self-describing: its length field gives the
// total appended info size and its direction bit says whether an RSSI byte
// precedes the appended info block.
type AppendedInfoCfg struct {
	IsRx    byte // 1 bit, Rx = 1, Tx = 0
	Length  byte // 3 bits, appended info size minus the 3 mandatory bytes
	Version byte // 3 bits
}

// AppendedInfoCfgFromByte unpacks an APPENDED_INFO_CFG byte
func AppendedInfoCfgFromByte(b byte) AppendedInfoCfg {
	return AppendedInfoCfg{
		IsRx:    (b & CfgRxMask) >> 6,
		Length:  (b & CfgLengthMask) >> 3,
		Version: b & CfgVersionMask,
	}
}

// Byte packs the APPENDED_INFO_CFG byte
func (c AppendedInfoCfg) Byte() byte {
	return (c.IsRx&0x01)<<6 | (c.Length&0x07)<<3 | c.Version&CfgVersionMask
}

// AppendedInfo is the radio metadata block at the tail of a PTI frame. For
// Z-Wave it is 4 bytes on Tx and 5 bytes on Rx (the extra byte is the RSSI).
type AppendedInfo struct {
	RSSI        byte // raw value, present on the wire only when Cfg.IsRx is set
	RadioConfig RadioConfig
	RadioInfo   RadioInfo
	Status0     Status0
	Cfg         AppendedInfoCfg
}

// Size returns the on-wire size of the appended info block
func (ai *AppendedInfo) Size() int {
	return int(ai.Cfg.Length) + PtiMandatoryInfoSize
}

// RSSIValue returns the corrected RSSI in dBm. Tx frames carry no RSSI so
// the value is 0. From appended-info version 1 onward the hardware reports
// the raw value shifted by PtiRssiOffset.
func (ai *AppendedInfo) RSSIValue() int {
	if ai.Cfg.IsRx == 0 {
		return 0
	}
	if ai.Cfg.Version >= 1 {
		return int(ai.RSSI) - PtiRssiOffset
	}
	return int(ai.RSSI)
}

// parseAppendedInfo walks the PTI frame backward from its last byte. The
// caller guarantees len(frame) >= PtiMinFrameSize.
func parseAppendedInfo(frame []byte) (*AppendedInfo, error) {
	n := len(frame)

	cfg := AppendedInfoCfgFromByte(frame[n-1])
	status0 := Status0FromByte(frame[n-2])

	// no point going any further when the frame belongs to another protocol
	if status0.ProtocolID != PtiProtocolZWave {
		return nil, ErrProtocolMismatch
	}

	radioInfo := RadioInfoFromByte(frame[n-3])
	radioConfig := RadioConfigFromByte(frame[n-4])

	var rssi byte
	if cfg.IsRx == 1 {
		rssi = frame[n-5]
	}

	return &AppendedInfo{
		RSSI:        rssi,
		RadioConfig: radioConfig,
		RadioInfo:   radioInfo,
		Status0:     status0,
		Cfg:         cfg,
	}, nil
}

// encode appends the on-wire appended info block. The RSSI byte is emitted
// only for Rx frames, keyed on the direction bit.
func (ai *AppendedInfo) encode(buf []byte) []byte {
	if ai.Cfg.IsRx == 1 {
		buf = append(buf, ai.RSSI)
	}
	buf = append(buf, ai.RadioConfig.Byte())
	buf = append(buf, ai.RadioInfo.Byte())
	buf = append(buf, ai.Status0.Byte())
	buf = append(buf, ai.Cfg.Byte())
	return buf
}

// PtiFrame is one radio diagnostic record: the raw over-the-air payload
// bracketed by hardware start/end markers, followed by the appended info
// block. The frame must be parsed back to front because the appended info
// describes its own length and whether an RSSI byte is present.
type PtiFrame struct {
	HwStart byte
	Payload []byte // raw OTA bytes, opaque to this package
	HwEnd   byte
	Info    AppendedInfo
}

// Parse parses a PTI frame from raw bytes
func (f *PtiFrame) Parse(data []byte) error {
	if len(data) < PtiMinFrameSize {
		return fmt.Errorf("PTI frame too short: %d bytes (minimum %d)", len(data), PtiMinFrameSize)
	}

	info, err := parseAppendedInfo(data)
	if err != nil {
		return err
	}

	hwEndPos := len(data) - 1 - info.Size()
	if hwEndPos < 1 {
		return fmt.Errorf("PTI appended info size %d leaves no room for markers", info.Size())
	}

	f.HwStart = data[0]
	f.Payload = make([]byte, hwEndPos-1)
	copy(f.Payload, data[1:hwEndPos])
	f.HwEnd = data[hwEndPos]
	f.Info = *info

	return nil
}

// Encode encodes the PTI frame to raw bytes
func (f *PtiFrame) Encode() ([]byte, error) {
	buf := make([]byte, 0, f.Size())
	buf = append(buf, f.HwStart)
	buf = append(buf, f.Payload...)
	buf = append(buf, f.HwEnd)
	buf = f.Info.encode(buf)
	return buf, nil
}

// Size returns the on-wire size of the frame
func (f *PtiFrame) Size() int {
	return len(f.Payload) + f.Info.Size() + 2 // + 2 for the hardware markers
}

// ParsePtiFrame parses a PTI frame from raw bytes
func ParsePtiFrame(data []byte) (*PtiFrame, error) {
	f := &PtiFrame{}
	if err := f.Parse(data); err != nil {
		return nil, err
	}
	return f, nil
}
