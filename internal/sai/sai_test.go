package sai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEnterpriseNumber(t *testing.T) {
	cases := []struct {
		name       string
		enterprise uint32
		wantType   uint32
		wantStat   uint32
	}{
		{"e1 happy path", 0x00010002, 1, 2},
		{"extension bits set", 0x80018002, 1, 2},
		{"zero", 0, 0, 0},
		{"max 15-bit halves", 0xFFFFFFFF, 0x7FFF, 0x7FFF},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			typeID, statID := DecodeEnterpriseNumber(tc.enterprise)
			require.Equal(t, tc.wantType, typeID)
			require.Equal(t, tc.wantStat, statID)
		})
	}
}

func TestDecodeEnterpriseNumberProperty(t *testing.T) {
	// property 3 from spec §8: decoded (type_id, stat_id) is exactly
	// (high16 & 0x7FFF, low16 & 0x7FFF) for all enterprise numbers.
	for _, enterprise := range []uint32{0, 1, 0x12345678, 0xFFFF0000, 0x0000FFFF, 0x80008000} {
		typeID, statID := DecodeEnterpriseNumber(enterprise)
		require.Equal(t, (enterprise>>16)&0x7FFF, typeID)
		require.Equal(t, enterprise&0x7FFF, statID)
	}
}
