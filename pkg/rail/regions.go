// Package rail holds the static RAIL radio tables for Z-Wave: the region
// identifiers reported in PTI appended info and the predefined channel slots
// (center frequency and baud class) of every region.
package rail

import "fmt"

// RegionID identifies a RAIL Z-Wave region as reported in RADIO_CONFIG
type RegionID uint8

const (
	RegionINV   RegionID = 0 // invalid region id in RAIL
	RegionEU    RegionID = 1
	RegionUS    RegionID = 2
	RegionANZ   RegionID = 3
	RegionHK    RegionID = 4
	RegionMY    RegionID = 5
	RegionIN    RegionID = 6
	RegionJP    RegionID = 7
	RegionRU    RegionID = 8
	RegionIL    RegionID = 9
	RegionKR    RegionID = 10
	RegionCN    RegionID = 11
	RegionUSLR1 RegionID = 12
	RegionUSLR2 RegionID = 13
	RegionUSLR3 RegionID = 14
	RegionEULR1 RegionID = 15
	RegionEULR2 RegionID = 16
	RegionEULR3 RegionID = 17

	// LR end devices hop between the two LR channels only
	RegionUSLREndDevice = RegionUSLR3
	RegionEULREndDevice = RegionEULR3
)

// Baud is the RAIL data rate class of a channel
type Baud int

const (
	Baud9600   Baud = 0 // R1
	Baud40K    Baud = 1 // R2
	Baud100K   Baud = 2 // R3
	Baud100KLR Baud = 3 // R3 on a long range channel, RAIL keeps it separate
)

// MaxChannels is the number of channel slots per region. RAIL allows up to 4
// channels per region for channel hopping.
const MaxChannels = 4

// Channel is one predefined RAIL channel slot
type Channel struct {
	FrequencyKHz uint32
	Baud         Baud
}

// Region is a RAIL Z-Wave region with its channel slots. Unused slots are
// nil: classic regions use 3 slots, LR controllers 4 and LR end devices 2.
type Region struct {
	Name     string
	Channels [MaxChannels]*Channel
}

// Is2CH reports whether the region uses 2 channels (Z-Wave LR end device)
func (id RegionID) Is2CH() bool {
	return id == RegionUSLR3 || id == RegionEULR3
}

// Is4CH reports whether the region uses 4 channels (Z-Wave LR controller)
func (id RegionID) Is4CH() bool {
	return id == RegionUSLR1 || id == RegionUSLR2 || id == RegionEULR1 || id == RegionEULR2
}

// Is3CH reports whether the region uses 3 channels (Z-Wave classic)
func (id RegionID) Is3CH() bool {
	_, ok := Regions[id]
	return ok && !id.Is2CH() && !id.Is4CH()
}

// Regions maps every RAIL region id to its channel table. Loaded once,
// never mutated.
var Regions = map[RegionID]Region{
	RegionINV: {"INV", [MaxChannels]*Channel{
		{916000, Baud100K},
		{908400, Baud40K},
		{908420, Baud9600},
		nil,
	}},
	RegionEU: {"EU", [MaxChannels]*Channel{
		{869850, Baud100K},
		{868400, Baud40K},
		{868420, Baud9600},
		nil,
	}},
	RegionUS: {"US", [MaxChannels]*Channel{
		{916000, Baud100K},
		{908400, Baud40K},
		{908420, Baud9600},
		nil,
	}},
	RegionANZ: {"ANZ", [MaxChannels]*Channel{
		{919800, Baud100K},
		{921400, Baud40K},
		{921420, Baud9600},
		nil,
	}},
	RegionHK: {"HK", [MaxChannels]*Channel{
		{919800, Baud100K},
		{919800, Baud40K},
		{919820, Baud9600},
		nil,
	}},
	RegionMY: {"MY", [MaxChannels]*Channel{
		{919800, Baud100K},
		{921400, Baud40K},
		{921420, Baud9600},
		nil,
	}},
	RegionIN: {"IN", [MaxChannels]*Channel{
		{865200, Baud100K},
		{865200, Baud40K},
		{865220, Baud9600},
		nil,
	}},
	RegionJP: {"JP", [MaxChannels]*Channel{
		{922500, Baud100K},
		{923900, Baud100K},
		{926300, Baud100K},
		nil,
	}},
	RegionRU: {"RU", [MaxChannels]*Channel{
		{869000, Baud100K},
		{869000, Baud40K},
		{869020, Baud9600},
		nil,
	}},
	RegionIL: {"IL", [MaxChannels]*Channel{
		{916000, Baud100K},
		{916000, Baud40K},
		{916020, Baud9600},
		nil,
	}},
	RegionKR: {"KR", [MaxChannels]*Channel{
		{920900, Baud100K},
		{921700, Baud100K},
		{923100, Baud100K},
		nil,
	}},
	RegionCN: {"CN", [MaxChannels]*Channel{
		{868400, Baud100K},
		{868400, Baud40K},
		{868420, Baud9600},
		nil,
	}},
	RegionUSLR1: {"US_LR1", [MaxChannels]*Channel{
		{916000, Baud100K},
		{908400, Baud40K},
		{908420, Baud9600},
		{912000, Baud100KLR},
	}},
	RegionUSLR2: {"US_LR2", [MaxChannels]*Channel{
		{916000, Baud100K},
		{908400, Baud40K},
		{908420, Baud9600},
		{920000, Baud100KLR},
	}},
	RegionUSLR3: {"US_LR3", [MaxChannels]*Channel{
		{912000, Baud100KLR},
		{920000, Baud100KLR},
		nil,
		nil,
	}},
	RegionEULR1: {"EU_LR1", [MaxChannels]*Channel{
		{869850, Baud100K},
		{868400, Baud40K},
		{868420, Baud9600},
		{864400, Baud100KLR},
	}},
	RegionEULR2: {"EU_LR2", [MaxChannels]*Channel{
		{869850, Baud100K},
		{868400, Baud40K},
		{868420, Baud9600},
		{866400, Baud100KLR},
	}},
	RegionEULR3: {"EU_LR3", [MaxChannels]*Channel{
		{864400, Baud100KLR},
		{866400, Baud100KLR},
		nil,
		nil,
	}},
}

// Lookup returns the channel slot for a region id and channel number. A
// region or slot that is not in the table points at a malformed frame, the
// caller must treat the error as fatal for the frame being encoded.
func Lookup(region RegionID, channel uint8) (Channel, error) {
	r, ok := Regions[region]
	if !ok {
		return Channel{}, fmt.Errorf("unknown RAIL region id %d", region)
	}
	if int(channel) >= MaxChannels || r.Channels[channel] == nil {
		return Channel{}, fmt.Errorf("region %s has no channel %d", r.Name, channel)
	}
	return *r.Channels[channel], nil
}

// Name returns the RAIL region name, or a numeric placeholder for ids
// missing from the table.
func (id RegionID) Name() string {
	if r, ok := Regions[id]; ok {
		return r.Name
	}
	return fmt.Sprintf("REGION_%d", id)
}
