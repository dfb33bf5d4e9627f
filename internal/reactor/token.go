// Package reactor drives every accepted connection through the states spec
// §4.L describes: Accept, optional Handshake, Recv, Send/SendFile/Streaming,
// and Shutdown. One goroutine per net.Conn stands in for the spec's
// single-threaded epoll/kqueue loop — see Worker's doc comment for why that
// substitution preserves the per-connection ordering and resource-ownership
// guarantees §5 requires.
package reactor

// EncodeToken packs a connection slot index and its allocator generation
// into the completion-token shape spec §4.L uses to tell ordinary
// connection events apart from the two special descriptors (timer-wheel
// tick, async-timer fire): those carry generation zero, since alloc.Pool
// never stamps a live slot with generation zero.
func EncodeToken(slotIndex uint32, generation uint32) uint64 {
	return uint64(generation)<<32 | uint64(slotIndex)
}

// DecodeToken reverses EncodeToken. ok is false when generation is zero,
// i.e. token does not address a connection slot.
func DecodeToken(token uint64) (slotIndex uint32, generation uint32, ok bool) {
	slotIndex = uint32(token)
	generation = uint32(token >> 32)
	return slotIndex, generation, generation != 0
}
