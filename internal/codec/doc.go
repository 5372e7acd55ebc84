// Package codec implements the binary encoding used for every MEID and key
// file record: a MessagePack wire format so that the files this process
// writes stay readable by any other MessagePack implementation, plus the
// SHA-256 key digest used to address records.
package codec
