package fileformat

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/cockroachdb/errors"
)

const (
	// HeaderSize is the fixed length of the header on both data and key
	// files.
	HeaderSize = 256

	// CurrentVersion is the version this process writes and expects on
	// "ready" shards.
	CurrentVersion uint16 = 1

	signatureOffset  = 2
	signatureLength  = 8
	reservedAOffset  = 10
	reservedALength  = 118
	timestampOffset  = 128
	timestampLength  = 8
	reservedBOffset  = 136
	reservedBLength  = 120

	// comparableLength is the span validateHeader checks against the
	// reference header: version + signature + the first reserved block,
	// i.e. bytes 0..127.
	comparableLength = 128
)

// Header is the parsed form of a MEID/key-file header.
type Header struct {
	Version   uint16
	Signature [signatureLength]byte
	Timestamp time.Time
}

// Build renders a Header into its 256-byte on-disk form.
func Build(signature [signatureLength]byte, at time.Time) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(buf[0:2], CurrentVersion)
	copy(buf[signatureOffset:signatureOffset+signatureLength], signature[:])
	binary.BigEndian.PutUint64(buf[timestampOffset:timestampOffset+timestampLength], uint64(at.Unix()))
	return buf
}

// WriteHeader writes a fresh header to w, stamped with the current time.
func WriteHeader(w io.Writer, signature [signatureLength]byte) error {
	_, err := w.Write(Build(signature, time.Now()))
	if err != nil {
		return errors.Wrap(err, "fileformat: write header")
	}
	return nil
}

// ParseHeader decodes a 256-byte header buffer. It does not validate the
// buffer against a reference signature/version; use ValidateHeader for that.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, errors.Newf("fileformat: header too short: %d bytes", len(buf))
	}
	var h Header
	h.Version = binary.BigEndian.Uint16(buf[0:2])
	copy(h.Signature[:], buf[signatureOffset:signatureOffset+signatureLength])
	ts := binary.BigEndian.Uint64(buf[timestampOffset : timestampOffset+timestampLength])
	h.Timestamp = time.Unix(int64(ts), 0).UTC()
	return h, nil
}

// ValidateHeader reports whether buf's first 128 bytes (version + signature +
// the first reserved block) match the reference header built from signature.
func ValidateHeader(buf []byte, signature [signatureLength]byte) error {
	if len(buf) < HeaderSize {
		return errors.Newf("fileformat: header too short: %d bytes", len(buf))
	}
	reference := Build(signature, time.Unix(0, 0))
	// The reference header's timestamp field isn't part of the comparable
	// span, so any timestamp works; compare only version+signature+reserved.
	if !bytes.Equal(buf[:comparableLength], reference[:comparableLength]) {
		return errors.New("fileformat: header mismatch")
	}
	return nil
}
