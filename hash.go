package tinylfu

import (
	"hash/maphash"
	"math/bits"
	"unsafe"
)

// wyhash constants and the mix step: faster than hash/maphash for strings,
// which is the only reason this package special-cases string keys instead
// of routing everything through maphash.Comparable below.
const (
	wyp0 = 0xa0761d6478bd642f
	wyp1 = 0xe7037ed1a0b428db
)

// hashString is the wyhash algorithm for short byte strings: a public,
// widely-vendored hash (not original to this package) built from a single
// 128-bit multiply over the first/last 4, 8, or 8+8 bytes depending on
// length, chosen for being faster than a generic hasher on exactly the
// string-key case.
func hashString(s string) uint64 {
	n := len(s)
	if n == 0 {
		return 0
	}

	p := unsafe.Pointer(unsafe.StringData(s))
	var a, b uint64

	if n <= 8 {
		if n >= 4 {
			a = uint64(*(*uint32)(p))
			b = uint64(*(*uint32)(unsafe.Add(p, n-4)))
		} else {
			a = uint64(*(*byte)(p))<<16 | uint64(*(*byte)(unsafe.Add(p, n>>1)))<<8 | uint64(*(*byte)(unsafe.Add(p, n-1)))
			b = 0
		}
	} else {
		a = *(*uint64)(p)
		b = *(*uint64)(unsafe.Add(p, n-8))
	}

	hi, lo := bits.Mul64(a^wyp0, b^uint64(n)^wyp1)
	return hi ^ lo
}

var keyHashSeed = maphash.MakeSeed()

// hashKey produces the 64-bit hash stored on each node and fed to the
// frequency sketch. Strings take the wyhash fast path; everything
// else (ints, structs, pointers - anything comparable) goes through
// hash/maphash's generic comparable hasher.
func hashKey[K comparable](key K) uint64 {
	if s, ok := any(key).(string); ok {
		return hashString(s)
	}
	return maphash.Comparable(keyHashSeed, key)
}

// rehash derives an independent 64-bit value from h using a distinct odd
// multiplier per salt, the same bits.Mul64 multiply-shift technique used
// for the primary key hash, applied here to fan one hash out into the
// frequency sketch's four probe positions instead of calling four separate
// hash functions.
func rehash(h uint64, salt uint64) uint64 {
	hi, lo := bits.Mul64(h^salt, wyp0)
	return hi ^ lo ^ wyp1
}
