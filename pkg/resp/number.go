package resp

// parseInt parses an optionally signed decimal integer directly from b.
// Leading zeros are accepted and "-0" is zero. It reports false on empty
// input, any non-digit byte, or int64 overflow. It never allocates.
func parseInt(b []byte) (int64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	neg := false
	switch b[0] {
	case '-':
		neg = true
		b = b[1:]
	case '+':
		b = b[1:]
	}
	if len(b) == 0 {
		return 0, false
	}

	limit := uint64(1<<63 - 1)
	if neg {
		limit = 1 << 63
	}

	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		d := uint64(c - '0')
		if n > (limit-d)/10 {
			return 0, false
		}
		n = n*10 + d
	}

	if neg {
		return -int64(n), true
	}
	return int64(n), true
}
