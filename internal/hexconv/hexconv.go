package hexconv

// table stores the digit value plus one, so zero marks non-hex characters.
var table = func() (t [256]byte) {
	for c := '0'; c <= '9'; c++ {
		t[c] = byte(c-'0') + 1
	}

	for c := 'a'; c <= 'f'; c++ {
		t[c] = byte(c-'a') + 10 + 1
		t[c-'a'+'A'] = byte(c-'a') + 10 + 1
	}

	return t
}()

// Parse returns the value of a hexadecimal digit. False is returned if the character isn't one.
func Parse(char byte) (byte, bool) {
	v := table[char]
	return v - 1, v != 0
}
