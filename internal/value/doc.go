// Package value defines the dynamic value representation shared by the binary
// codec, the append-only log's textual stringifier, and the shell's JSON
// envelopes. Every decoded MEID record and every AOL set-line resolves to one
// of these variants before anything downstream touches it, so the codec and
// the AOL never need a second, incompatible notion of "a value".
package value
