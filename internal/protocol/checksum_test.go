package protocol

import "testing"

func bytesOf(b byte, n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return buf
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{
			name: "empty input is the seed",
			data: nil,
			want: 0xBEAF,
		},
		{
			name: "single byte",
			data: []byte{0x01},
			want: 0xBEB0,
		},
		{
			name: "sum wraps at 16 bits",
			data: bytesOf(0xFF, 258), // 0xBEAF + 258*0xFF = 0x1BFAD
			want: 0xBFAD,
		},
		{
			name: "zero bytes do not change the sum",
			data: make([]byte, 64),
			want: 0xBEAF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("Checksum() = 0x%04X, want 0x%04X", got, tt.want)
			}
		})
	}
}

func TestChecksumMatchesCapturedProbe(t *testing.T) {
	// Discovery probe captured from the reference implementation with the
	// checksum slot still zero; the device expects 0xC524 in the slot.
	probe := []byte{
		0, 0, 0, 0, 0, 0, 0, 0, 251, 255, 255, 255, 208, 7, 30, 10,
		0, 1, 14, 2, 0, 0, 0, 0, 4, 3, 2, 1, 184, 165, 0, 0,
		0, 0, 0, 0, 0, 0, 6, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	if got := Checksum(probe); got != 0xC524 {
		t.Errorf("Checksum(probe) = 0x%04X, want 0xC524", got)
	}
}

func TestWordChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{
			name: "empty input",
			data: nil,
			want: 0xFFFF,
		},
		{
			name: "single low byte",
			data: []byte{0x01},
			want: 0xFFFE,
		},
		{
			name: "one full word",
			data: []byte{0x01, 0x02},
			want: 0xFDFE,
		},
		{
			name: "all ones folds to zero",
			data: []byte{0xFF, 0xFF},
			want: 0x0000,
		},
		{
			name: "carry folds back into the low bits",
			data: []byte{0xFF, 0xFF, 0x01, 0x00},
			want: 0xFFFE,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WordChecksum(tt.data); got != tt.want {
				t.Errorf("WordChecksum() = 0x%04X, want 0x%04X", got, tt.want)
			}
		})
	}
}
