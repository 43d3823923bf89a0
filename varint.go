package sav

import (
	"io"

	"github.com/carbocation/pfx"
)

// maxVarintBytes is the widest a 64-bit unsigned varint can ever be:
// ceil(64/7) == 10 groups of 7 payload bits.
const maxVarintBytes = 10

// EncodeVarint appends the LEB128 unsigned encoding of u to dst and
// returns the extended slice.
func EncodeVarint(dst []byte, u uint64) []byte {
	for u >= 0x80 {
		dst = append(dst, byte(u)|0x80)
		u >>= 7
	}
	return append(dst, byte(u))
}

// DecodeVarint reads a LEB128 unsigned varint from r. It rejects
// sequences longer than maxVarintBytes bytes.
func DecodeVarint(r io.ByteReader) (uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < maxVarintBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i > 0 {
				return 0, pfx.Err(ErrTruncated)
			}
			return 0, pfx.Err(err)
		}
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, pfx.Err(ErrTruncated)
}

// prefixedLowMask returns the mask over the low n bits of a byte.
func prefixedLowMask(n uint) byte {
	return byte(1<<n) - 1
}

// EncodePrefixedVarint appends the prefixed-varint(n) encoding of
// (payload, value) to dst. payload must be in [0, 2^n). n must be one
// of {0, 1, 7}.
func EncodePrefixedVarint(dst []byte, n uint, payload uint8, value uint64) []byte {
	if n == 0 {
		return EncodeVarint(dst, value)
	}

	shiftedBits := 7 - n
	first := payload & prefixedLowMask(n)
	rem := value >> shiftedBits
	firstPayload := byte(value&((uint64(1)<<shiftedBits)-1)) << n
	first |= firstPayload
	if rem != 0 {
		first |= 0x80
	}
	dst = append(dst, first)
	if rem != 0 {
		dst = EncodeVarint(dst, rem)
	}
	return dst
}

// DecodePrefixedVarint reads a prefixed-varint(n) from r, returning the
// out-of-band payload and the decoded integer value.
func DecodePrefixedVarint(r io.ByteReader, n uint) (payload uint8, value uint64, err error) {
	first, err := r.ReadByte()
	if err != nil {
		return 0, 0, pfx.Err(ErrTruncated)
	}

	if n == 0 {
		v, err := decodeVarintContinuation(r, first)
		if err != nil {
			return 0, 0, err
		}
		return 0, v, nil
	}

	shiftedBits := 7 - n
	payload = first & prefixedLowMask(n)
	value = uint64(first>>n) & ((uint64(1) << shiftedBits) - 1)

	if first&0x80 == 0 {
		return payload, value, nil
	}

	rest, err := DecodeVarint(r)
	if err != nil {
		return 0, 0, err
	}
	value |= rest << shiftedBits
	return payload, value, nil
}

// decodeVarintContinuation finishes decoding a varint whose first byte
// has already been read (used by the n=0 prefixed-varint degenerate case).
func decodeVarintContinuation(r io.ByteReader, first byte) (uint64, error) {
	result := uint64(first & 0x7F)
	if first&0x80 == 0 {
		return result, nil
	}
	shift := uint(7)
	for i := 1; i < maxVarintBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, pfx.Err(ErrTruncated)
		}
		result |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, pfx.Err(ErrTruncated)
}
