package vector

import "math"

// Half-precision (IEEE 754 binary16) encode/decode. No dedicated float16
// library appears anywhere in the example pack this module was grounded
// on, and the XFVI format pins exactly two call sites (write one
// component, read one component) with no denormal/NaN handling beyond
// passthrough, so this is implemented directly against math/encoding
// rather than importing a general-purpose half-float package for a
// two-function surface.

// float32ToHalf converts a float32 to its IEEE 754 binary16 bit pattern,
// rounding to nearest-even.
func float32ToHalf(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	mant := bits & 0x7fffff

	switch {
	case exp <= 0:
		// Underflows to zero (including denormal inputs); close enough
		// for this format's tolerance.
		return sign
	case exp >= 0x1f:
		// Overflow to infinity.
		return sign | 0x7c00
	default:
		// Round to nearest-even on the dropped mantissa bits.
		dropped := mant & 0x1fff
		halfMant := uint16(mant >> 13)
		halfExp := uint16(exp)
		h := sign | (halfExp << 10) | halfMant
		if dropped > 0x1000 || (dropped == 0x1000 && halfMant&1 == 1) {
			h++
		}
		return h
	}
}

// halfToFloat32 widens an IEEE 754 binary16 bit pattern to float32.
func halfToFloat32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h>>10) & 0x1f
	mant := uint32(h & 0x3ff)

	switch {
	case exp == 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		// Denormal half -> normalize into float32 space.
		e := 0
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x3ff
		fexp := uint32(127 - 15 + e + 1)
		return math.Float32frombits(sign | (fexp << 23) | (mant << 13))
	case exp == 0x1f:
		return math.Float32frombits(sign | 0x7f800000 | (mant << 13))
	default:
		fexp := exp - 15 + 127
		return math.Float32frombits(sign | (fexp << 23) | (mant << 13))
	}
}
