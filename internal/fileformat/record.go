package fileformat

import (
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
)

const (
	digestLength = 32
	sizeLength   = 4
	// recordPrefixLength is digest(32) + size(4), the part of every record
	// before its variable-length payload.
	recordPrefixLength = digestLength + sizeLength
)

// Record is one digest-prefixed entry in a MEID or key file.
type Record struct {
	Digest   [digestLength]byte
	Size     uint32
	Payload  []byte
	Position int64 // byte offset of the record's digest field within the file
}

// CorruptFile is returned by ScanRecords when a record extends past EOF or,
// for key files, when a record's declared digest doesn't match
// SHA256(payload).
type CorruptFile struct {
	Position int64
	Reason   string
}

func (e *CorruptFile) Error() string {
	return errors.Newf("fileformat: corrupt record at offset %d: %s", e.Position, e.Reason).Error()
}

// OnRecord is called once per record scanned, in file order. Returning a
// non-nil error stops the scan and is surfaced unwrapped from ScanRecords.
type OnRecord func(rec Record) error

// ScanRecords reads records starting at HeaderSize and calls fn for each, in
// order. verifyDigest, when non-nil, is applied to each record's payload; if
// the result doesn't match the record's declared digest, scanning stops with
// a *CorruptFile error (used by key files, whose payload is the raw key
// bytes that must hash back to the digest; data files pass nil since their
// payload is an encoded value, not hashable back to the key digest).
func ScanRecords(r io.ReaderAt, size int64, fn OnRecord, verifyDigest func(payload []byte) [digestLength]byte) error {
	pos := int64(HeaderSize)

	prefix := make([]byte, recordPrefixLength)
	for pos < size {
		if pos+recordPrefixLength > size {
			return &CorruptFile{Position: pos, Reason: "record prefix extends past EOF"}
		}
		if _, err := r.ReadAt(prefix, pos); err != nil {
			return errors.Wrapf(err, "fileformat: read record prefix at %d", pos)
		}

		var rec Record
		copy(rec.Digest[:], prefix[:digestLength])
		rec.Size = binary.BigEndian.Uint32(prefix[digestLength:recordPrefixLength])
		rec.Position = pos

		payloadStart := pos + recordPrefixLength
		payloadEnd := payloadStart + int64(rec.Size)
		if payloadEnd > size {
			return &CorruptFile{Position: pos, Reason: "record payload extends past EOF"}
		}

		rec.Payload = make([]byte, rec.Size)
		if rec.Size > 0 {
			if _, err := r.ReadAt(rec.Payload, payloadStart); err != nil {
				return errors.Wrapf(err, "fileformat: read record payload at %d", payloadStart)
			}
		}

		if verifyDigest != nil {
			if got := verifyDigest(rec.Payload); got != rec.Digest {
				return &CorruptFile{Position: pos, Reason: "declared digest does not match SHA256(payload)"}
			}
		}

		if err := fn(rec); err != nil {
			return err
		}

		pos = payloadEnd
	}

	return nil
}

// EncodeRecordPrefix renders the digest+size prefix for a record about to be
// appended.
func EncodeRecordPrefix(digest [digestLength]byte, size uint32) []byte {
	buf := make([]byte, recordPrefixLength)
	copy(buf[:digestLength], digest[:])
	binary.BigEndian.PutUint32(buf[digestLength:recordPrefixLength], size)
	return buf
}
