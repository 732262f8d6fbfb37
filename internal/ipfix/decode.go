package ipfix

import (
	"encoding/binary"
	"fmt"
)

// DecodeTemplateSet parses the body of a Template Set (Set ID == TemplateSetID)
// into zero or more Templates. A Template Set may carry more than one
// template definition back to back; each is prefixed by its own
// template-id/field-count header.
func DecodeTemplateSet(body []byte) ([]Template, error) {
	var templates []Template
	for len(body) > 0 {
		if len(body) < 4 {
			return templates, fmt.Errorf("%w: template header needs 4 bytes, got %d", ErrShortBuffer, len(body))
		}
		templateID := binary.BigEndian.Uint16(body[0:2])
		fieldCount := binary.BigEndian.Uint16(body[2:4])
		body = body[4:]

		specs := make([]FieldSpec, 0, fieldCount)
		for i := uint16(0); i < fieldCount; i++ {
			spec, n, err := decodeFieldSpec(body)
			if err != nil {
				return templates, fmt.Errorf("template %d field %d: %w", templateID, i, err)
			}
			specs = append(specs, spec)
			body = body[n:]
		}
		templates = append(templates, Template{TemplateID: templateID, FieldSpecs: specs})
	}
	return templates, nil
}

// Record is one decoded data record: the raw field values in template order,
// still unresolved against an object-name table.
type Record struct {
	Fields []FieldValue
}

// FieldValue is one decoded field within a record.
type FieldValue struct {
	Spec  FieldSpec
	Value []byte
}

// DecodeDataSet splits a Data Set body into records according to template,
// per spec §4.4 steps 3-4. body length must be a positive multiple of the
// template's record size; otherwise the whole set is malformed and rejected.
func DecodeDataSet(body []byte, template Template) ([]Record, error) {
	recordSize := template.RecordSize()
	if recordSize <= 0 {
		return nil, fmt.Errorf("ipfix: template %d has zero record size", template.TemplateID)
	}
	if len(body) == 0 || len(body)%recordSize != 0 {
		return nil, fmt.Errorf("ipfix: malformed set: body length %d not a positive multiple of record size %d", len(body), recordSize)
	}
	count := len(body) / recordSize
	records := make([]Record, 0, count)
	offset := 0
	for i := 0; i < count; i++ {
		fields := make([]FieldValue, 0, len(template.FieldSpecs))
		for _, spec := range template.FieldSpecs {
			fields = append(fields, FieldValue{Spec: spec, Value: body[offset : offset+int(spec.Length)]})
			offset += int(spec.Length)
		}
		records = append(records, Record{Fields: fields})
	}
	return records, nil
}

// Set is one decoded Set header plus its raw body, as yielded while walking a
// message's wire bytes in order.
type Set struct {
	Header SetHeader
	Body   []byte
}

// WalkSets splits a message payload (the bytes following the message header)
// into its constituent Sets, in wire order. It does not interpret the Sets;
// callers decide whether each is a Template Set or Data Set based on
// Header.SetID.
func WalkSets(payload []byte) ([]Set, error) {
	var sets []Set
	for len(payload) > 0 {
		header, err := DecodeSetHeader(payload)
		if err != nil {
			return sets, err
		}
		if int(header.Length) < SetHeaderLen {
			return sets, fmt.Errorf("ipfix: set %d declares length %d shorter than set header", header.SetID, header.Length)
		}
		if int(header.Length) > len(payload) {
			return sets, fmt.Errorf("ipfix: set %d declares length %d exceeds remaining payload %d", header.SetID, header.Length, len(payload))
		}
		body := payload[SetHeaderLen:header.Length]
		sets = append(sets, Set{Header: header, Body: body})
		payload = payload[header.Length:]
	}
	return sets, nil
}
