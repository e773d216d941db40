package pid

// Checksum calculates the byte which makes the sum of b plus the
// checksum byte zero modulo 256.
func Checksum(b []byte) byte {
	return -sum(b)
}

// Verify checks a complete frame (including its checksum byte) sums to zero.
func Verify(frame []byte) bool {
	return sum(frame) == 0
}

func sum(b []byte) byte {
	var s byte
	for _, v := range b {
		s += v
	}
	return s
}
