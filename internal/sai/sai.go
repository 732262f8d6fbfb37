// Package sai holds the decoded-sample data model: switch-abstraction-interface
// counters identified by an (object, type, stat) triple.
package sai

import "fmt"

// Stat is one decoded counter sample (spec SAIStat).
type Stat struct {
	ObjectName string
	TypeID     uint32
	StatID     uint32
	Counter    uint64
}

// Stats is a batch of samples produced from a single decoded IPFIX message.
type Stats struct {
	ObservationTimeNS uint64
	Samples           []Stat
}

// extensionBit marks "extension present" in the high bit of a 16-bit half.
const extensionBit = uint32(1) << 15

// DecodeEnterpriseNumber splits a 32-bit IPFIX enterprise number into the two
// embedded SAI identifiers it carries. Bit 31 (overall extension flag) and bit
// 15 of each 16-bit half (per-half extension-present flags) are masked off;
// the remaining 15 bits of each half are the type/stat id.
func DecodeEnterpriseNumber(enterprise uint32) (typeID, statID uint32) {
	high := (enterprise >> 16) & 0xFFFF
	low := enterprise & 0xFFFF
	typeID = high &^ extensionBit
	statID = low &^ extensionBit
	return typeID, statID
}

// EncodeEnterpriseNumber is the inverse of DecodeEnterpriseNumber for ids
// that fit in 15 bits; it also sets bit 31 and bit 15 of each half.
func EncodeEnterpriseNumber(typeID, statID uint32) uint32 {
	high := (typeID & 0x7FFF) | extensionBit
	low := (statID & 0x7FFF) | extensionBit
	return uint32(1)<<31 | high<<16 | low
}

func (s Stat) String() string {
	return fmt.Sprintf("%s(type=%d,stat=%d)=%d", s.ObjectName, s.TypeID, s.StatID, s.Counter)
}
