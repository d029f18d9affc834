package ecs

import "math/bits"

// bitset records which slots of a Storage are occupied. Bit i lives in word
// i/64 at offset i%64.
type bitset []uint64

func (b bitset) has(i int) bool {
	w := i >> 6
	if i < 0 || w >= len(b) {
		return false
	}
	return b[w]&(uint64(1)<<uint(i&63)) != 0
}

func (b bitset) set(i int) {
	b[i>>6] |= uint64(1) << uint(i&63)
}

func (b bitset) unset(i int) {
	b[i>>6] &^= uint64(1) << uint(i&63)
}

// grow makes room for at least n bits.
func (b bitset) grow(n int) bitset {
	words := (n + 63) >> 6
	if words <= len(b) {
		return b
	}
	grown := make(bitset, words)
	copy(grown, b)
	return grown
}

// next returns the first set bit at or after i, or -1.
func (b bitset) next(i int) int {
	if i < 0 {
		i = 0
	}
	w := i >> 6
	if w >= len(b) {
		return -1
	}
	word := b[w] >> uint(i&63)
	if word != 0 {
		return i + bits.TrailingZeros64(word)
	}
	for w++; w < len(b); w++ {
		if b[w] != 0 {
			return w<<6 + bits.TrailingZeros64(b[w])
		}
	}
	return -1
}
