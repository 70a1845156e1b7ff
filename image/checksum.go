package image

// RecordChecksum computes the Intel HEX record checksum: the two's
// complement of the 8-bit sum of the count, address, type and data bytes.
func RecordChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum + 1
}
