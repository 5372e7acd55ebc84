package aol

import "github.com/finnegan-hale/meidkv/internal/value"

// OpKind distinguishes the two mutations the AOL can record.
type OpKind uint8

const (
	OpSet OpKind = iota
	OpRemove
)

// Op is one mutation handed from the core API to the AOL worker. Only the
// fields relevant to Kind are meaningful.
type Op struct {
	Kind  OpKind
	Key   string
	Value value.Value
}
