package psi

import "github.com/pkg/errors"

// Several table families rewrite a small preamble on every section (spec
// §4.6 point 2: "compute the table's preamble — bytes that repeat in every
// section"). A naive concatenation of every section's raw payload would
// interleave these repeated preambles with the record data, so Deserialize
// for those families must strip each section's preamble individually before
// concatenating what's left. These helpers implement that per spec §4.5's
// deserialize contract: "iterates sections in section_number order,
// concatenates per-section payload slices through a declared segmentation
// schema".

// stripFixedPreamble removes a constant-size preamble from every section's
// payload (SDT's original_network_id+reserved byte, EIT's tsid/onid/segment
// fields) and concatenates the remaining record bytes in section order. The
// first section's preamble is returned for field population.
func stripFixedPreamble(sections []*Section, preambleLen int) (preamble []byte, body []byte, err error) {
	for i, s := range sections {
		if len(s.Payload) < preambleLen {
			return nil, nil, errors.Wrap(ErrInvalidStructure, "psi: section payload shorter than its preamble")
		}
		if i == 0 {
			preamble = s.Payload[:preambleLen]
		}
		body = append(body, s.Payload[preambleLen:]...)
	}
	return preamble, body, nil
}

// splitOneLengthLoop handles PMT's shape: a fixed 4-byte preamble (pcr_pid +
// program_info_length) followed by a length-delimited record list (the
// program descriptors) and then a second, run-to-end-of-section record list
// (the stream loop). program_info_length is rewritten per section to cover
// only the descriptors landed in that section (spec §4.6 point 2), so the
// split point between the two lists is section-local; everything is
// concatenated across sections afterwards.
func splitOneLengthLoop(sections []*Section) (pcrPID uint16, firstList []byte, secondList []byte, err error) {
	for i, s := range sections {
		b := NewByteBuffer(s.Payload)
		if b.Len() < 4 {
			return 0, nil, nil, errors.Wrap(ErrInvalidStructure, "psi: section payload shorter than its preamble")
		}
		pcr := b.ReadUint16()
		if i == 0 {
			pcrPID = pcr & 0x1fff
		}
		lenField := b.ReadUint16()
		n := int(lenField & 0xfff)
		rest := s.Payload[4:]
		if n > len(rest) {
			return 0, nil, nil, errors.Wrap(ErrInvalidStructure, "psi: section's length field runs past its own payload")
		}
		firstList = append(firstList, rest[:n]...)
		secondList = append(secondList, rest[n:]...)
	}
	return pcrPID, firstList, secondList, nil
}

// splitTwoLengthLoops handles NIT/BAT's shape: a length-delimited
// network/bouquet descriptor list followed by a second length-delimited
// transport-stream-entry list, both rewritten per section.
func splitTwoLengthLoops(sections []*Section) (firstList []byte, secondList []byte, err error) {
	for _, s := range sections {
		b := NewByteBuffer(s.Payload)
		if b.Len() < 4 {
			return nil, nil, errors.Wrap(ErrInvalidStructure, "psi: section payload shorter than its preamble")
		}
		firstLenField := b.ReadUint16()
		firstLen := int(firstLenField & 0xfff)
		rest := s.Payload[2:]
		if firstLen+2 > len(rest) {
			return nil, nil, errors.Wrap(ErrInvalidStructure, "psi: section's length field runs past its own payload")
		}
		firstList = append(firstList, rest[:firstLen]...)
		rest = rest[firstLen:]

		secondLenField := uint16(rest[0])<<8 | uint16(rest[1])
		secondLen := int(secondLenField & 0xfff)
		rest = rest[2:]
		if secondLen > len(rest) {
			return nil, nil, errors.Wrap(ErrInvalidStructure, "psi: section's length field runs past its own payload")
		}
		secondList = append(secondList, rest[:secondLen]...)
	}
	return firstList, secondList, nil
}
