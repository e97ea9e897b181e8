package psi

import "github.com/pkg/errors"

// atomicRecord is one indivisible unit a segmenter packs into sections
// (spec §4.6): a descriptor, a service entry, a stream loop entry, an
// event, ... Implementations return their own on-wire bytes.
type atomicRecord interface {
	size() int
	toWire() []byte
}

// packAtomicRecords is the single-phase segmenter shared by table families
// whose body is one flat list of atomic records preceded by a fixed-size
// per-section header (CAT: no header; SDT/EIT: a small fixed header).
// Records never split across sections; a record larger than the per-section
// budget is reported as Overflow rather than silently truncated (spec §4.6).
func packAtomicRecords(records []atomicRecord, budget int) ([][]byte, error) {
	var sections [][]byte
	cur := NewByteBuffer(nil)
	remaining := budget

	for _, r := range records {
		sz := r.size()
		if sz > budget {
			return nil, errors.Wrap(ErrOverflow, "psi: atomic record exceeds section budget")
		}
		if len(cur.Written()) > 0 && sz > remaining {
			sections = append(sections, cur.Written())
			cur = NewByteBuffer(nil)
			remaining = budget
		}
		cur.WriteBytes(r.toWire())
		remaining -= sz
	}
	if len(cur.Written()) > 0 || len(sections) == 0 {
		sections = append(sections, cur.Written())
	}
	return sections, nil
}
