package utils

// CRC8 computes the CRC-8 (polynomial x^8 + x^2 + x + 1) of data. The
// capture command reports it for every file it writes.
func CRC8(data []byte) uint8 {
	const polynomial = 0x07
	var crc uint8

	for _, b := range data {
		crc ^= b
		for range 8 {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ polynomial
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}
