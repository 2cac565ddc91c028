package base32

import "strings"

const (
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
	padChar  = '='

	blockBytes = 5
	blockChars = 8
)

// dataCharsFor maps the number of real bytes in the final 5-byte chunk to the
// number of alphabet characters emitted before padding starts.
var dataCharsFor = [blockBytes + 1]int{0, 2, 4, 5, 7, 8}

var decodeMap = func() [256]byte {
	var m [256]byte
	for i := range m {
		m[i] = 0xFF
	}
	for i := 0; i < len(alphabet); i++ {
		m[alphabet[i]] = byte(i)
	}
	return m
}()

// EncodedLen returns the length in characters of the padded encoding of n bytes.
func EncodedLen(n int) int {
	return (n + blockBytes - 1) / blockBytes * blockChars
}

// Encode returns the canonical uppercase, padded encoding of src.
func Encode(src []byte) string {
	if len(src) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(EncodedLen(len(src)))

	for len(src) > 0 {
		var chunk [blockBytes]byte
		n := copy(chunk[:], src)
		src = src[n:]

		buf := uint64(chunk[0])<<32 | uint64(chunk[1])<<24 | uint64(chunk[2])<<16 |
			uint64(chunk[3])<<8 | uint64(chunk[4])

		emit := dataCharsFor[n]
		for i := range blockChars {
			if i >= emit {
				sb.WriteByte(padChar)
				continue
			}
			shift := uint(35 - 5*i)
			sb.WriteByte(alphabet[(buf>>shift)&0x1F])
		}
	}

	return sb.String()
}

// Decode parses Base32 text. Lowercase letters are accepted and the final
// block may be short or unpadded. Any character outside A-Z, 2-7 and '='
// yields a *DecodeError of kind InvalidCharacter.
func Decode(s string) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}

	out := make([]byte, 0, (len(s)+blockChars-1)/blockChars*blockBytes)

	for start := 0; start < len(s); start += blockChars {
		end := min(start+blockChars, len(s))
		last := end == len(s)

		var (
			vals  [blockChars]byte
			isPad [blockChars]bool
			data  int
		)

		for j := range blockChars {
			pos := start + j
			if pos >= end {
				isPad[j] = true
				continue
			}

			c := s[pos]
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}

			if c == padChar {
				if !last {
					return nil, &DecodeError{Kind: InvalidPadding, Pos: pos, Char: rune(c)}
				}
				isPad[j] = true
				continue
			}

			v := decodeMap[c]
			if v == 0xFF {
				return nil, &DecodeError{Kind: InvalidCharacter, Pos: pos, Char: charAt(s, pos)}
			}
			if j > 0 && isPad[j-1] {
				return nil, &DecodeError{Kind: InvalidPadding, Pos: pos, Char: rune(c)}
			}

			vals[j] = v
			data++
		}

		if data < 2 {
			return nil, &DecodeError{Kind: InvalidPadding, Pos: start + data}
		}

		out = append(out, vals[0]<<3|vals[1]>>2)
		if !isPad[2] {
			out = append(out, vals[1]<<6|vals[2]<<1|vals[3]>>4)
		}
		if !isPad[4] {
			out = append(out, vals[3]<<4|vals[4]>>1)
		}
		if !isPad[5] {
			out = append(out, vals[4]<<7|vals[5]<<2|vals[6]>>3)
		}
		if !isPad[7] {
			out = append(out, vals[6]<<5|vals[7])
		}
	}

	return out, nil
}

// DecodeString is Decode for callers holding the secret as a string field.
func DecodeString(s string) (string, error) {
	b, err := Decode(s)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

func charAt(s string, pos int) rune {
	for i, r := range s {
		if i == pos {
			return r
		}
		if i > pos {
			break
		}
	}

	return rune(s[pos])
}
