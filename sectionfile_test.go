package psi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSectionFile_AddTableAndSections(t *testing.T) {
	f := NewSectionFile(nil)
	pat := &PAT{TransportStreamID: 1, Programs: []PATProgram{{ProgramNumber: 1, PID: 256}}}
	bt, err := pat.Serialize(f.Context(), 0, true)
	assert.NoError(t, err)
	f.AddTable(bt)

	assert.Len(t, f.Tables(), 1)
	assert.Len(t, f.Sections(), 1)
	assert.Empty(t, f.OrphanSections())
}

func TestSectionFile_AddSectionCompletesMultiSectionTable(t *testing.T) {
	f := NewSectionFile(nil)
	s0 := sealedLongSection(t, TableIDPAT, 1, 0, 0, 1, []byte{0x00, 0x01})
	s1 := sealedLongSection(t, TableIDPAT, 1, 0, 1, 1, []byte{0x00, 0x02})

	assert.Equal(t, sectionAdded, f.AddSection(s0))
	assert.Empty(t, f.Tables())
	assert.Len(t, f.OrphanSections(), 1)

	assert.Equal(t, tableCompleted, f.AddSection(s1))
	assert.Len(t, f.Tables(), 1)
	assert.Empty(t, f.OrphanSections())
	assert.Len(t, f.Sections(), 2)
}

func TestSectionFile_BinarySaveLoadRoundTrip(t *testing.T) {
	f := NewSectionFile(nil)
	pat := &PAT{TransportStreamID: 1, Programs: []PATProgram{{ProgramNumber: 1, PID: 256}}}
	bt, err := pat.Serialize(f.Context(), 0, true)
	assert.NoError(t, err)
	f.AddTable(bt)

	encoded := f.SaveBinary()

	f2 := NewSectionFile(nil)
	f2.Context().CRCPolicy = CRCIgnore
	assert.NoError(t, f2.LoadBinary(encoded))
	assert.Len(t, f2.Tables(), 1)
	assert.Equal(t, bt.Payload(), f2.Tables()[0].Payload())
}

func TestSectionFile_LoadBufferRangeValidation(t *testing.T) {
	f := NewSectionFile(nil)
	_, err := f.LoadBuffer([]byte{1, 2, 3}, 2, 5)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestSectionFile_SaveBufferDestinationTooSmall(t *testing.T) {
	f := NewSectionFile(nil)
	pat := &PAT{TransportStreamID: 1}
	bt, err := pat.Serialize(f.Context(), 0, true)
	assert.NoError(t, err)
	f.AddTable(bt)

	dst := make([]byte, 2)
	_, err = f.SaveBuffer(dst, 0)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestSectionFile_XMLSaveLoadRoundTrip(t *testing.T) {
	f := NewSectionFile(nil)
	pat := &PAT{TransportStreamID: 7, Programs: []PATProgram{{ProgramNumber: 1, PID: 256}}}
	bt, err := pat.Serialize(f.Context(), 3, true)
	assert.NoError(t, err)
	f.AddTable(bt)

	xmlDoc := f.SaveXML(false)

	f2 := NewSectionFile(nil)
	assert.NoError(t, f2.LoadXML(xmlDoc))
	assert.Len(t, f2.Tables(), 1)
	assert.Equal(t, bt.TableID(), f2.Tables()[0].TableID())
	assert.Equal(t, bt.Payload(), f2.Tables()[0].Payload())
}

func TestSectionFile_JSONSaveLoadRoundTrip(t *testing.T) {
	f := NewSectionFile(nil)
	pat := &PAT{TransportStreamID: 7, Programs: []PATProgram{{ProgramNumber: 1, PID: 256}}}
	bt, err := pat.Serialize(f.Context(), 3, true)
	assert.NoError(t, err)
	f.AddTable(bt)

	jsonDoc, err := f.SaveJSON(false)
	assert.NoError(t, err)

	f2 := NewSectionFile(nil)
	assert.NoError(t, f2.LoadJSON(jsonDoc))
	assert.Len(t, f2.Tables(), 1)
	assert.Equal(t, bt.Payload(), f2.Tables()[0].Payload())
}
