package ipfix

import (
	"encoding/binary"
	"fmt"
)

// netlinkHeaderLen and genlHeaderLen are the fixed header sizes stripped from
// every datagram before the remaining bytes are handed to the IPFIX decoder
// (spec §4.1, §6 "Generic netlink" wire format).
const (
	netlinkHeaderLen = 16
	genlHeaderLen    = 4
	headerLen        = netlinkHeaderLen + genlHeaderLen
)

// ExtractPayload strips the 16-byte nlmsghdr and 4-byte genlmsghdr from a raw
// datagram and returns the remaining IPFIX payload. The netlink header's
// length field (first 4 bytes, little-endian per the kernel ABI) is
// bounds-checked against the buffer: it must declare a length between
// headerLen and len(buf) inclusive.
func ExtractPayload(buf []byte) ([]byte, error) {
	if len(buf) < headerLen {
		return nil, fmt.Errorf("%w: datagram needs at least %d bytes, got %d", ErrShortBuffer, headerLen, len(buf))
	}
	declared := binary.LittleEndian.Uint32(buf[0:4])
	if int(declared) < headerLen {
		return nil, fmt.Errorf("ipfix: declared nlmsg length %d shorter than header (%d)", declared, headerLen)
	}
	if int(declared) > len(buf) {
		return nil, fmt.Errorf("ipfix: declared nlmsg length %d exceeds buffer size %d", declared, len(buf))
	}
	return buf[headerLen:declared], nil
}
