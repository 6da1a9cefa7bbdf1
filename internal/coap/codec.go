package coap

import (
	"encoding/binary"
	"fmt"
)

const (
	version = 1

	// MaxDatagramSize is the receive buffer size for a single message.
	MaxDatagramSize = 1500

	maxTokenLen = 8

	optUriPath = 11

	payloadMarker = 0xff
)

var (
	ErrTruncated    = fmt.Errorf("truncated message")
	ErrBadVersion   = fmt.Errorf("unsupported version")
	ErrTokenTooLong = fmt.Errorf("token longer than 8 bytes")
	ErrBadOption    = fmt.Errorf("malformed option")
)

// Codec translates between Messages and datagrams. The endpoint treats
// serialization as a black box behind this interface.
type Codec interface {
	Encode(m *Message) ([]byte, error)
	Decode(data []byte) (*Message, error)
}

// WireCodec is the default Codec, speaking the basic RFC 7252 framing:
// fixed 4-byte header, token, delta-encoded Uri-Path options and an
// optional 0xFF-marked payload. Options other than Uri-Path are skipped
// on decode and never produced on encode.
type WireCodec struct{}

var _ Codec = (*WireCodec)(nil)

func NewWireCodec() *WireCodec {
	return &WireCodec{}
}

func (c *WireCodec) Encode(m *Message) ([]byte, error) {
	if len(m.Token) > maxTokenLen {
		return nil, ErrTokenTooLong
	}

	buf := make([]byte, 0, 4+len(m.Token)+len(m.Payload)+8*len(m.Path))

	buf = append(buf,
		version<<6|uint8(m.Type)<<4|uint8(len(m.Token)),
		uint8(m.Code),
	)
	buf = binary.BigEndian.AppendUint16(buf, m.MessageID)
	buf = append(buf, m.Token...)

	// Uri-Path options are repeated in order; the first carries the full
	// option number as its delta, the rest a delta of zero.
	prev := 0
	for _, segment := range m.Path {
		buf = appendOption(buf, optUriPath-prev, []byte(segment))
		prev = optUriPath
	}

	if len(m.Payload) > 0 {
		buf = append(buf, payloadMarker)
		buf = append(buf, m.Payload...)
	}

	return buf, nil
}

func (c *WireCodec) Decode(data []byte) (*Message, error) {
	if len(data) < 4 {
		return nil, ErrTruncated
	}

	if data[0]>>6 != version {
		return nil, ErrBadVersion
	}

	tkl := int(data[0] & 0x0f)
	if tkl > maxTokenLen {
		return nil, ErrTokenTooLong
	}

	m := &Message{
		Type:      Type(data[0] >> 4 & 0x3),
		Code:      Code(data[1]),
		MessageID: binary.BigEndian.Uint16(data[2:4]),
	}

	data = data[4:]
	if len(data) < tkl {
		return nil, ErrTruncated
	}

	if tkl > 0 {
		m.Token = append([]byte(nil), data[:tkl]...)
		data = data[tkl:]
	}

	number := 0
	for len(data) > 0 {
		if data[0] == payloadMarker {
			if len(data) == 1 {
				// marker with no payload is malformed
				return nil, ErrTruncated
			}
			m.Payload = append([]byte(nil), data[1:]...)
			return m, nil
		}

		delta, length, rest, err := readOptionHeader(data)
		if err != nil {
			return nil, err
		}

		if len(rest) < length {
			return nil, ErrTruncated
		}

		number += delta
		if number == optUriPath {
			m.Path = append(m.Path, string(rest[:length]))
		}

		data = rest[length:]
	}

	return m, nil
}

// appendOption writes one option with the extended delta/length nibbles
// from RFC 7252 section 3.1.
func appendOption(buf []byte, delta int, value []byte) []byte {
	dn, dext := optionNibble(delta)
	ln, lext := optionNibble(len(value))

	buf = append(buf, dn<<4|ln)
	buf = append(buf, dext...)
	buf = append(buf, lext...)

	return append(buf, value...)
}

func optionNibble(v int) (uint8, []byte) {
	switch {
	case v < 13:
		return uint8(v), nil
	case v < 269:
		return 13, []byte{uint8(v - 13)}
	default:
		ext := []byte{0, 0}
		binary.BigEndian.PutUint16(ext, uint16(v-269))
		return 14, ext
	}
}

func readOptionHeader(data []byte) (delta, length int, rest []byte, err error) {
	dn := int(data[0] >> 4)
	ln := int(data[0] & 0x0f)
	rest = data[1:]

	if delta, rest, err = readOptionExt(dn, rest); err != nil {
		return 0, 0, nil, err
	}

	if length, rest, err = readOptionExt(ln, rest); err != nil {
		return 0, 0, nil, err
	}

	return delta, length, rest, nil
}

func readOptionExt(nibble int, data []byte) (int, []byte, error) {
	switch nibble {
	case 13:
		if len(data) < 1 {
			return 0, nil, ErrTruncated
		}
		return int(data[0]) + 13, data[1:], nil
	case 14:
		if len(data) < 2 {
			return 0, nil, ErrTruncated
		}
		return int(binary.BigEndian.Uint16(data[:2])) + 269, data[2:], nil
	case 15:
		// 15 is reserved for the payload marker, invalid in an option
		return 0, nil, ErrBadOption
	default:
		return nibble, data, nil
	}
}
