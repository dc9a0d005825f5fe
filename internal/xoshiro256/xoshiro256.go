// Package xoshiro256 provides the avalanche step used to combine a
// node's static digest with a per-request key digest for rendezvous
// (highest-random-weight) selection — see internal/cluster. The package
// name and call shape (a single Hash(uint64) uint64) follow aistore's own
// cmn/xoshiro256, which fs/hrw.go uses the same way: combine a
// mountpath's PathDigest with a key digest, then take the max across
// candidates. The pack only retains that package's pinned-output test,
// not its implementation, so this is a splitmix64 finalizer written to
// the same interface rather than a byte-for-byte port; it does not
// reproduce cmn/xoshiro256's exact output values.
// no-copyright
package xoshiro256

// Hash is the splitmix64 finalizer: a fixed-point, allocation-free mix
// with good avalanche behavior.
func Hash(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
