package fileformat

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/finnegan-hale/meidkv/internal/logx"
)

// ShardStatus reports one shard's startup validation outcome.
type ShardStatus struct {
	Index  int
	Ready  bool // either file already held records before this run
	Active bool // false if a mismatched empty shard was downgraded instead of aborting
}

// DataPath returns shard index's data-file path within dir.
func DataPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("meid-%d.sfd", index))
}

// KeyPath returns shard index's key-index-file path within dir.
func KeyPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("key-%d.sfk", index))
}

// EnsureShards creates, if missing, the data and key files for every shard
// in [0, shardCount) with a fresh header stamped with signature, and
// validates the header of every file that already exists.
//
// A file that already holds records past its header (a "ready" shard) with
// a header that doesn't match signature belongs to a different deployment;
// EnsureShards aborts rather than risk the caller reading that shard's data
// as if it were its own. A file with no records past the header carries no
// data either way, so a mismatch there is only logged and the shard is
// marked inactive instead of aborting the whole process.
func EnsureShards(dir string, shardCount int, signature [8]byte, perm os.FileMode, logger *logx.Logger) ([]ShardStatus, error) {
	if logger == nil {
		logger = logx.New("fileformat")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "fileformat: create database directory")
	}

	statuses := make([]ShardStatus, shardCount)
	for i := 0; i < shardCount; i++ {
		dataReady, dataActive, err := ensureOne(DataPath(dir, i), signature, perm, logger)
		if err != nil {
			return nil, err
		}
		keyReady, keyActive, err := ensureOne(KeyPath(dir, i), signature, perm, logger)
		if err != nil {
			return nil, err
		}
		statuses[i] = ShardStatus{
			Index:  i,
			Ready:  dataReady || keyReady,
			Active: dataActive && keyActive,
		}
	}
	return statuses, nil
}

// ensureOne creates path with a fresh header if missing, or validates its
// existing header against signature. ready reports whether the file already
// held records past its header before this call.
func ensureOne(path string, signature [8]byte, perm os.FileMode, logger *logx.Logger) (ready, active bool, err error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if !os.IsNotExist(statErr) {
			return false, false, errors.Wrapf(statErr, "fileformat: stat %s", path)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, perm)
		if err != nil {
			return false, false, errors.Wrapf(err, "fileformat: create %s", path)
		}
		defer f.Close()
		if err := WriteHeader(f, signature); err != nil {
			return false, false, errors.Wrapf(err, "fileformat: write header %s", path)
		}
		return false, true, nil
	}

	ready = info.Size() > HeaderSize

	f, err := os.Open(path)
	if err != nil {
		return ready, false, errors.Wrapf(err, "fileformat: open %s", path)
	}
	defer f.Close()

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return ready, false, errors.Wrapf(err, "fileformat: read header %s", path)
	}

	if err := ValidateHeader(buf, signature); err != nil {
		if ready {
			return ready, false, errors.Wrapf(err, "fileformat: %s belongs to a different deployment", path)
		}
		logger.Warnf("%s: header mismatch on an empty shard, marking inactive", path)
		return ready, false, nil
	}
	return ready, true, nil
}
