package psi

import (
	"time"
)

// DVB date/time is a 40-bit UTC field: 16-bit Modified Julian Date followed
// by a 24-bit BCD-encoded hour/minute/second (spec GLOSSARY, used by
// TDT/TOT). Durations used by local_time_offset_descriptor reuse the same
// BCD-hour/minute shape without the MJD date part. Grounded on the
// teacher's dvb.go, which already depends on github.com/icza/bitio for this
// exact bit layout.

// readDVBTime reads a 40-bit MJD+BCD UTC time.
func readDVBTime(b *ByteBuffer) time.Time {
	mjd := uint32(b.ReadUint16())
	hour := bcdByteToDecimal(b.ReadUint8())
	minute := bcdByteToDecimal(b.ReadUint8())
	second := bcdByteToDecimal(b.ReadUint8())
	return mjdToDate(mjd).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// writeDVBTime writes t as a 40-bit MJD+BCD UTC time.
func writeDVBTime(b *ByteBuffer, t time.Time) {
	t = t.UTC()
	mjd := dateToMJD(t)
	b.WriteUint16(uint16(mjd))
	b.WriteUint8(decimalToBCDByte(t.Hour()))
	b.WriteUint8(decimalToBCDByte(t.Minute()))
	b.WriteUint8(decimalToBCDByte(t.Second()))
}

// readDVBDurationMinutes reads a 16-bit BCD hour:minute duration.
func readDVBDurationMinutes(b *ByteBuffer) time.Duration {
	h := bcdByteToDecimal(b.ReadUint8())
	m := bcdByteToDecimal(b.ReadUint8())
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
}

// writeDVBDurationMinutes writes a 16-bit BCD hour:minute duration.
func writeDVBDurationMinutes(b *ByteBuffer, d time.Duration) {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	b.WriteUint8(decimalToBCDByte(h))
	b.WriteUint8(decimalToBCDByte(m))
}

// readDVBDurationHMS reads a 24-bit BCD hour:minute:second duration (used by
// the EIT event duration field).
func readDVBDurationHMS(b *ByteBuffer) time.Duration {
	h := bcdByteToDecimal(b.ReadUint8())
	m := bcdByteToDecimal(b.ReadUint8())
	s := bcdByteToDecimal(b.ReadUint8())
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

// writeDVBDurationHMS writes a 24-bit BCD hour:minute:second duration.
func writeDVBDurationHMS(b *ByteBuffer, d time.Duration) {
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	b.WriteUint8(decimalToBCDByte(h))
	b.WriteUint8(decimalToBCDByte(m))
	b.WriteUint8(decimalToBCDByte(s))
}

func bcdByteToDecimal(b byte) int { return int(b>>4)*10 + int(b&0xf) }
func decimalToBCDByte(n int) byte { return byte((n/10)<<4 | (n % 10)) }

// mjdToDate converts a Modified Julian Date to a UTC midnight time.Time.
func mjdToDate(mjd uint32) time.Time {
	yt := int((float64(mjd) - 15078.2) / 365.25)
	mt := int((float64(mjd) - 14956.1 - float64(int(float64(yt)*365.25))) / 30.6001)
	d := int(mjd) - 14956 - int(float64(yt)*365.25) - int(float64(mt)*30.6001)
	k := 0
	if mt == 14 || mt == 15 {
		k = 1
	}
	y := yt + k + 1900
	m := mt - 1 - k*12
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// dateToMJD converts a UTC time.Time's date part to a Modified Julian Date.
func dateToMJD(t time.Time) uint32 {
	y := t.Year() - 1900
	m := int(t.Month())
	d := t.Day()
	l := 0
	if m <= 2 {
		l = 1
	}
	mjd := 14956 + d + int(float64(y-l)*365.25) + int(float64(m+1+l*12)*30.6001)
	return uint32(mjd)
}
