package record

import "hash/crc32"

// CalculateCRC computes the CRC32 (IEEE) checksum of the given parts, in order.
func CalculateCRC(parts ...[]byte) uint32 {
	h := crc32.NewIEEE()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum32()
}

// ValidateCRC returns true if checksum matches the CRC32 of parts.
func ValidateCRC(checksum uint32, parts ...[]byte) bool {
	return CalculateCRC(parts...) == checksum
}
