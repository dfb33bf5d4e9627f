package wire

// BodyKind tags which variant of the response body union is active,
// mirroring the spec's mutually exclusive empty/borrowed/owned/generator
// body kinds.
type BodyKind uint8

const (
	// BodyEmpty is a response with no body at all (e.g. 204, 304).
	BodyEmpty BodyKind = iota
	// BodyBorrowed references memory this response does not own — a
	// cached file's bytes, sent zero-copy.
	BodyBorrowed
	// BodyOwned is a buffer this response allocated and now owns.
	BodyOwned
	// BodyGenerator is a streaming callback pulled for further chunks.
	BodyGenerator
)

// Op is the response's send operation, matching the spec's
// TEXT/FILE/STREAM_CHUNKED/STREAM_FIXED mutually exclusive modes.
type Op uint8

const (
	OpText Op = iota
	OpFile
	OpStreamChunked
	OpStreamFixed
)

// Generator pulls the next chunk of a streamed body into buf. done is
// true once no further data remains; a non-nil err aborts the stream.
type Generator func(buf []byte) (n int, done bool, err error)
