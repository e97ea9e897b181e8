package psi

import (
	"time"

	"github.com/pkg/errors"
)

func init() {
	registerTable("tdt", TableIDTDT, func() TypedTable { return &TDT{} })
}

// TDT is the Time and Date Table: a short section carrying only a 40-bit
// MJD+BCD UTC time, no CRC (spec §4.5).
type TDT struct {
	UTC time.Time
}

func (t *TDT) TableID() TableID    { return TableIDTDT }
func (t *TDT) ElementName() string { return "tdt" }

func (t *TDT) Deserialize(ctx *DuckContext, bt *BinaryTable) error {
	if bt.TableID() != TableIDTDT {
		return errors.Wrap(ErrWrongTableID, "psi: not a TDT")
	}
	payload := bt.Payload()
	if len(payload) != 5 {
		return errors.Wrap(ErrInvalidStructure, "psi: TDT payload must be exactly 5 bytes")
	}
	b := NewByteBuffer(payload)
	t.UTC = readDVBTime(b)
	return nil
}

func (t *TDT) Serialize(ctx *DuckContext, version uint8, current bool) (*BinaryTable, error) {
	b := NewByteBuffer(nil)
	writeDVBTime(b, t.UTC)

	s := NewShortSection(TableIDTDT)
	s.Payload = b.Written()
	if err := s.Seal(); err != nil {
		return nil, err
	}
	s.Validate(CRCIgnore)
	return assembleBinaryTable([]*Section{s}), nil
}

func (t *TDT) ToXML() *xmlNode {
	n := &xmlNode{Name: "tdt"}
	n.setAttr("utc_time", t.UTC.UTC().Format(time.RFC3339))
	return n
}

func (t *TDT) FromXML(n *xmlNode) error {
	s, err := requiredAttr(n, "utc_time")
	if err != nil {
		return err
	}
	utc, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return errors.Wrap(ErrInvalidStructure, "psi: malformed tdt utc_time")
	}
	t.UTC = utc
	return nil
}
