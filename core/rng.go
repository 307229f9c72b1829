package core

import "math/bits"

// RNG is a seeded xoshiro256** generator. The Runtime owns one, and every
// task owns another whose seed is derived from its spawning parent's seed
// and its TaskID (see deriveTaskSeed); randomness the core and its
// collaborators consume -- simulated packet loss, latency jitter -- is
// drawn from these. Seeds are fixed only at construction time
// (core.NewRuntime with core.WithSeed, or SpawnOptions.SeedOverride), per
// spec.md §4.7 and §9.
//
// Exposes next_u64 / bool_with_probability / uniform_range / gen_duration
// as the primitives every collaborator builds its own draws on, plus
// Uint64Bytes for collaborators that want raw entropy (e.g. seeding a
// derived stream) rather than a shaped draw.
type RNG struct {
	seed  uint64
	state [4]uint64
}

// NewRNG seeds a generator from a 64-bit seed using splitmix64 to spread
// the seed across the 256 bits of xoshiro256** state, the standard
// seeding recipe for the xoshiro family.
func NewRNG(seed uint64) *RNG {
	r := &RNG{seed: seed}
	sm := seed
	for i := range r.state {
		sm += 0x9e3779b97f4a7c15
		z := sm
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z = z ^ (z >> 31)
		r.state[i] = z
	}
	return r
}

func rotl(x uint64, k uint) uint64 {
	return bits.RotateLeft64(x, int(k))
}

// NextU64 returns the next uniformly distributed 64-bit value.
func (r *RNG) NextU64() uint64 {
	s := &r.state
	result := rotl(s[1]*5, 7) * 9

	t := s[1] << 17

	s[2] ^= s[0]
	s[3] ^= s[1]
	s[1] ^= s[2]
	s[0] ^= s[3]

	s[2] ^= t

	s[3] = rotl(s[3], 45)

	return result
}

// BoolWithProbability returns true with probability p, clamped to [0, 1].
func (r *RNG) BoolWithProbability(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	// 53 bits of entropy is the full mantissa of a float64.
	const mantissaBits = 53
	frac := float64(r.NextU64()>>(64-mantissaBits)) / float64(uint64(1)<<mantissaBits)
	return frac < p
}

// UniformRange returns a uniformly distributed integer in [lo, hi). Panics
// if hi <= lo.
func (r *RNG) UniformRange(lo, hi int64) int64 {
	if hi <= lo {
		panic("core: UniformRange requires hi > lo")
	}
	span := uint64(hi - lo)
	return lo + int64(r.NextU64()%span)
}

// GenDuration returns a uniformly distributed Duration in [lo, hi).
func (r *RNG) GenDuration(lo, hi Duration) Duration {
	return Duration(r.UniformRange(int64(lo), int64(hi)))
}

// Seed returns the 64-bit seed the generator was constructed from.
func (r *RNG) Seed() uint64 { return r.seed }

// deriveTaskSeed computes a child task's default RNG seed from its
// parent's seed and its own TaskID, per spec.md §4.5's seed_override
// attribute ("default is to derive from parent + TaskId"). Reuses the
// splitmix64 mixing step NewRNG already uses to spread one scalar seed
// across 256 bits of state, applied here to fold two scalars into one.
func deriveTaskSeed(parentSeed uint64, id TaskID) uint64 {
	z := parentSeed + uint64(id)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z = z ^ (z >> 31)
	return z
}

// Uint64Bytes fills buf with pseudorandom bytes, eight at a time, for
// callers that need a byte slice rather than a single scalar.
func (r *RNG) Uint64Bytes(buf []byte) {
	for i := 0; i < len(buf); i += 8 {
		v := r.NextU64()
		for j := 0; j < 8 && i+j < len(buf); j++ {
			buf[i+j] = byte(v >> (8 * uint(j)))
		}
	}
}
