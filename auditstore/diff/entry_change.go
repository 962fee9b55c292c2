package diff

import (
	"fmt"
	"reflect"
)

// EntryChangeKind discriminates the elementary changes within a keyed container.
type EntryChangeKind int

const (
	EntryAdded EntryChangeKind = iota + 1
	EntryRemoved
	EntryValueChanged
)

func (k EntryChangeKind) String() string {
	switch k {
	case EntryAdded:
		return "EntryAdded"
	case EntryRemoved:
		return "EntryRemoved"
	case EntryValueChanged:
		return "EntryValueChange"
	default:
		return "unknown"
	}
}

// EntryChange is one elementary difference of a keyed container, tagged with its kind.
//
// EntryAdded carries the added value as Right, EntryRemoved the removed value as Left.
type EntryChange struct {
	kind  EntryChangeKind
	key   string
	left  any
	right any
}

func NewEntryAdded(key string, value any) EntryChange {
	return EntryChange{kind: EntryAdded, key: key, right: value}
}

func NewEntryRemoved(key string, value any) EntryChange {
	return EntryChange{kind: EntryRemoved, key: key, left: value}
}

func NewEntryValueChange(key string, left any, right any) EntryChange {
	return EntryChange{kind: EntryValueChanged, key: key, left: left, right: right}
}

func (e EntryChange) Kind() EntryChangeKind {
	return e.kind
}

func (e EntryChange) Key() string {
	return e.key
}

func (e EntryChange) Left() any {
	return e.left
}

func (e EntryChange) Right() any {
	return e.right
}

// Equal is structural equality over kind, key and both values.
func (e EntryChange) Equal(other EntryChange) bool {
	return e.kind == other.kind &&
		e.key == other.key &&
		reflect.DeepEqual(e.left, other.left) &&
		reflect.DeepEqual(e.right, other.right)
}

func (e EntryChange) String() string {
	switch e.kind {
	case EntryAdded, EntryRemoved:
		return fmt.Sprintf("%s{key: '%s'}", e.kind, e.key)
	default:
		return fmt.Sprintf("%s{key: '%s', left: %s, right: %s}", e.kind, e.key, renderValue(e.left), renderValue(e.right))
	}
}
