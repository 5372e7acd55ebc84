// Package fileformat implements the on-disk layout shared by MEID data files
// and key-index files: a fixed 256-byte header followed by a stream of
// digest-prefixed records.
package fileformat
