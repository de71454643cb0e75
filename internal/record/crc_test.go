package record

import (
	"hash/crc32"
	"testing"
)

func TestCRC(t *testing.T) {
	key := []byte("k25\x000\x00ABCD\x0078577")
	loc := []byte{0, 0, 0, 7, 0, 0, 0, 0, 0, 0, 0, 19}

	tests := []struct {
		name  string
		parts [][]byte
		want  uint32
	}{
		{"no parts", nil, 0},
		{"single part", [][]byte{key}, crc32.ChecksumIEEE(key)},
		{"parts are concatenated", [][]byte{key, loc}, crc32.ChecksumIEEE(append(append([]byte{}, key...), loc...))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateCRC(tt.parts...)
			if got != tt.want {
				t.Errorf("CalculateCRC() = %v, want %v", got, tt.want)
			}
			if !ValidateCRC(tt.want, tt.parts...) {
				t.Error("ValidateCRC() rejected the matching checksum")
			}
			if ValidateCRC(tt.want+1, tt.parts...) {
				t.Error("ValidateCRC() accepted a wrong checksum")
			}
		})
	}
}
