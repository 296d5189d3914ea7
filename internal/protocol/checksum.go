package protocol

// checksumSeed is the constant every Broadlink checksum starts from.
const checksumSeed = 0xBEAF

// Checksum computes the running-sum checksum used by the discovery,
// provisioning, and command envelopes: the sum of all bytes seeded with
// 0xBEAF, truncated to 16 bits.
//
// Packets carry the checksum in a reserved two-byte slot. The slot must be
// zeroed before computing, both when building and when validating.
func Checksum(data []byte) uint16 {
	sum := uint32(checksumSeed)
	for _, b := range data {
		sum += uint32(b)
	}
	return uint16(sum)
}

// WordChecksum computes the ones'-complement word checksum used by the
// air-conditioner data envelope. Bytes are summed as little-endian 16-bit
// words (odd trailing byte taken as the low byte), the carry is folded back
// into the low 16 bits, and the result is inverted.
func WordChecksum(data []byte) uint16 {
	var sum uint32
	for i, b := range data {
		if i%2 == 0 {
			sum += uint32(b)
		} else {
			sum += uint32(b) << 8
		}
	}
	sum = (sum & 0xFFFF) + (sum >> 16)
	return ^uint16(sum)
}
