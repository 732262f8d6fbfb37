// Package ipfix implements the wire-level IPFIX codec: message and set
// headers, field specifiers, templates, and template/data set decoding.
package ipfix

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Version is the only IPFIX version this decoder understands.
	Version uint16 = 10

	// MessageHeaderLen is the fixed 16-byte IPFIX message header.
	MessageHeaderLen = 16
	// SetHeaderLen is the fixed 4-byte set header (set id + length).
	SetHeaderLen = 4

	// TemplateSetID is the reserved Set ID that introduces Template Sets.
	TemplateSetID uint16 = 2

	// enterpriseBit marks an enterprise-specific information element.
	enterpriseBit uint16 = 1 << 15

	// observationTimeIE is the standard information element for
	// observationTimeNanoseconds (IE 325).
	observationTimeIE uint16 = 325
)

// ErrShortBuffer is returned whenever a fixed-size header cannot be read in
// full from the remaining bytes.
var ErrShortBuffer = errors.New("ipfix: short buffer")

// MessageHeader is the 16-byte header prefixing every IPFIX message.
type MessageHeader struct {
	Version              uint16
	Length               uint16
	ExportTime            uint32 // seconds since epoch
	SequenceNumber        uint32
	ObservationDomainID   uint32
}

// DecodeMessageHeader reads the fixed message header from buf.
func DecodeMessageHeader(buf []byte) (MessageHeader, error) {
	if len(buf) < MessageHeaderLen {
		return MessageHeader{}, fmt.Errorf("%w: message header needs %d bytes, got %d", ErrShortBuffer, MessageHeaderLen, len(buf))
	}
	return MessageHeader{
		Version:             binary.BigEndian.Uint16(buf[0:2]),
		Length:               binary.BigEndian.Uint16(buf[2:4]),
		ExportTime:           binary.BigEndian.Uint32(buf[4:8]),
		SequenceNumber:       binary.BigEndian.Uint32(buf[8:12]),
		ObservationDomainID:  binary.BigEndian.Uint32(buf[12:16]),
	}, nil
}

// SetHeader is the 4-byte header prefixing every Set within a message.
type SetHeader struct {
	SetID  uint16
	Length uint16
}

// DecodeSetHeader reads a set header from buf.
func DecodeSetHeader(buf []byte) (SetHeader, error) {
	if len(buf) < SetHeaderLen {
		return SetHeader{}, fmt.Errorf("%w: set header needs %d bytes, got %d", ErrShortBuffer, SetHeaderLen, len(buf))
	}
	return SetHeader{
		SetID:  binary.BigEndian.Uint16(buf[0:2]),
		Length: binary.BigEndian.Uint16(buf[2:4]),
	}, nil
}

// FieldSpec is one entry of a template's field-specifier list.
type FieldSpec struct {
	// Enterprise is the enterprise number, meaningful only when
	// HasEnterprise is set (the enterprise bit was set on the wire).
	Enterprise     uint32
	HasEnterprise  bool
	ElementID      uint16
	Length         uint16
}

// IsObservationTime reports whether this field, per spec §4.4, should be
// interpreted as the record's observationTimeNanoseconds.
func (f FieldSpec) IsObservationTime() bool {
	return !f.HasEnterprise && f.ElementID == observationTimeIE && f.Length == 8
}

// Template is the decoded shape of one Template Set entry: an ordered list of
// field specifiers plus the template id that Data Sets reference by Set ID.
type Template struct {
	TemplateID uint16
	FieldSpecs []FieldSpec
}

// RecordSize is the number of bytes one data record consumes under this
// template — the sum of every field's declared length.
func (t Template) RecordSize() int {
	size := 0
	for _, f := range t.FieldSpecs {
		size += int(f.Length)
	}
	return size
}

// fieldSpecWireLen returns how many bytes this field specifier itself (not
// its data) occupies in a Template Set: 4 bytes base, +4 more if the
// enterprise bit is set.
func fieldSpecWireLen(hasEnterprise bool) int {
	if hasEnterprise {
		return 8
	}
	return 4
}

// decodeFieldSpec reads one field specifier starting at buf[0]; returns the
// decoded spec and the number of bytes consumed.
func decodeFieldSpec(buf []byte) (FieldSpec, int, error) {
	if len(buf) < 4 {
		return FieldSpec{}, 0, fmt.Errorf("%w: field specifier needs 4 bytes, got %d", ErrShortBuffer, len(buf))
	}
	rawID := binary.BigEndian.Uint16(buf[0:2])
	length := binary.BigEndian.Uint16(buf[2:4])
	hasEnterprise := rawID&enterpriseBit != 0
	elementID := rawID &^ enterpriseBit
	n := fieldSpecWireLen(hasEnterprise)
	if len(buf) < n {
		return FieldSpec{}, 0, fmt.Errorf("%w: enterprise field specifier needs %d bytes, got %d", ErrShortBuffer, n, len(buf))
	}
	spec := FieldSpec{ElementID: elementID, Length: length, HasEnterprise: hasEnterprise}
	if hasEnterprise {
		spec.Enterprise = binary.BigEndian.Uint32(buf[4:8])
	}
	return spec, n, nil
}
