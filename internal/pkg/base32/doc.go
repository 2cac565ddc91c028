// Package base32 implements the RFC 4648 Base32 alphabet used for TOTP secrets.
//
// Encode always produces uppercase output padded with '=' to a multiple of
// eight characters. Decode is tolerant about case and missing trailing padding,
// but rejects characters outside the alphabet instead of silently mapping them
// to zero, so a corrupted stored secret surfaces as a *DecodeError.
//
//	s := base32.Encode([]byte("hi"))  // "NBUQ===="
//	b, err := base32.Decode("nbuq")   // []byte("hi"), nil
package base32
