// Package handle converts native host references into opaque textual tokens
// that can be handed to script code, and back.
//
// Tokens are not addresses. A Table keeps an arena of slots, each with a
// generation counter, and a token names (epoch, slot, generation). Decoding
// a token checks all three, so a token that was produced by another table,
// that names a released slot, or that is simply malformed decodes to nil
// instead of reaching a stale or forged reference.
//
// Token format:
//
//	0x EEEEEEEE IIIIIIII GGGGGGGG
//
// without spaces: a "0x" prefix followed by 24 lowercase hex digits
// (epoch, slot index, generation). Only [0-9a-fx] appear in a token, so
// tokens can be embedded in comma, colon or space separated payloads.
package handle
