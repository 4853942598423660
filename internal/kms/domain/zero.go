package domain

// Zeroize overwrites b in place. Callers defer it on every buffer that held
// raw key material so plaintext does not linger on the heap longer than the
// operation that needed it.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
