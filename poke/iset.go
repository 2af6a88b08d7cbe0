package poke

import "math/bits"

// ISet records which fields of an aggregate under construction hold valid values.
// Bit i is set iff field i is initialized. It grows on demand, so there is no field limit.
type ISet struct {
	words []uint64
}

// NewISet returns a set sized for n fields.
func NewISet(n int) *ISet {
	return &ISet{words: make([]uint64, (n+63)/64)}
}

// Set marks field i initialized.
func (s *ISet) Set(i int) {
	w := i / 64
	if w >= len(s.words) {
		s.grow(w + 1)
	}
	s.words[w] |= 1 << (uint(i) % 64)
}

// Unset marks field i uninitialized.
func (s *ISet) Unset(i int) {
	if w := i / 64; w < len(s.words) {
		s.words[w] &^= 1 << (uint(i) % 64)
	}
}

// Has reports whether field i is initialized.
func (s *ISet) Has(i int) bool {
	w := i / 64
	if i < 0 || w >= len(s.words) {
		return false
	}
	return s.words[w]&(1<<(uint(i)%64)) != 0
}

// AllSet reports whether fields 0 through n-1 are all initialized.
func (s *ISet) AllSet(n int) bool {
	full := n / 64
	if (n+63)/64 > len(s.words) {
		return false
	}
	for w := 0; w < full; w++ {
		if s.words[w] != ^uint64(0) {
			return false
		}
	}
	if rem := n % 64; rem != 0 {
		mask := uint64(1)<<uint(rem) - 1
		return s.words[full]&mask == mask
	}
	return true
}

// Count returns the number of initialized fields.
func (s *ISet) Count() int {
	n := 0
	for _, w := range s.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Clear marks every field uninitialized.
func (s *ISet) Clear() {
	clear(s.words)
}

// Indices returns the initialized field indices in ascending order.
func (s *ISet) Indices() []int {
	var out []int
	for wi, w := range s.words {
		for w != 0 {
			b := bits.TrailingZeros64(w)
			out = append(out, wi*64+b)
			w &= w - 1
		}
	}
	return out
}

// grow expands the set to n words. Callers guarantee n > len(s.words).
func (s *ISet) grow(n int) {
	words := make([]uint64, n)
	copy(words, s.words)
	s.words = words
}
