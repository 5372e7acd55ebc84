package shell

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
)

// TokenEntry is one access token's grant, as stored in the token file.
type TokenEntry struct {
	Alias          string   `json:"alias"`
	Permissions    []string `json:"permissions"`
	MaxConnections int      `json:"max_connections"`
}

// rawTokenFile mirrors the on-disk token file shape: a signature and
// version stamp alongside the access key map.
type rawTokenFile struct {
	Signature   string                `json:"signature"`
	MeidVersion string                `json:"meid_version"`
	AccessKeys  map[string]TokenEntry `json:"access_keys"`
}

// TokenFile is the parsed token file: the deployment signature and version
// stamped on every shard header, plus the access-key grants.
type TokenFile struct {
	Signature   [8]byte
	MeidVersion string
	AccessKeys  map[string]TokenEntry
}

// DefaultSignature is the deployment signature stamped on shard headers when
// no token file supplies one.
var DefaultSignature = [8]byte{'M', 'E', 'I', 'D', 'K', 'V', '0', '1'}

// LoadTokenFile reads the token file at path. A missing path or missing
// file is not an error - it yields an empty access-key table under
// DefaultSignature, under which any token (including a blank one)
// authenticates as a default guest grant.
func LoadTokenFile(path string) (*TokenFile, error) {
	if path == "" {
		return &TokenFile{Signature: DefaultSignature, AccessKeys: map[string]TokenEntry{}}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &TokenFile{Signature: DefaultSignature, AccessKeys: map[string]TokenEntry{}}, nil
		}
		return nil, errors.Wrap(err, "shell: read token file")
	}
	var raw rawTokenFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "shell: parse token file")
	}

	tf := &TokenFile{MeidVersion: raw.MeidVersion, AccessKeys: raw.AccessKeys}
	if raw.Signature != "" {
		copy(tf.Signature[:], raw.Signature)
	} else {
		tf.Signature = DefaultSignature
	}
	if tf.AccessKeys == nil {
		tf.AccessKeys = map[string]TokenEntry{}
	}
	return tf, nil
}

// LoadTokens reads the token file's access-key grants only, for callers
// that don't need the deployment signature.
func LoadTokens(path string) (map[string]TokenEntry, error) {
	tf, err := LoadTokenFile(path)
	if err != nil {
		return nil, err
	}
	return tf.AccessKeys, nil
}

// guestEntry is the grant handed to any token when the table is empty, so
// a server started without a token file still authenticates its sessions.
var guestEntry = TokenEntry{Alias: "guest", MaxConnections: -1}
