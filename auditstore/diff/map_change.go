package diff

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

var (
	ErrEmptyEntryChanges  = errors.New("entry changes must not be empty")
	ErrInvalidEntryChange = errors.New("entry change has an unknown kind")
)

// MapChange records the changes of a keyed container property as an ordered, non-empty list of entry changes.
//
// A MapChange is immutable: it keeps its own copy of the entries and only hands out copies.
type MapChange struct {
	PropertyChange
	entries []EntryChange
}

// NewMapChange creates a MapChange; it fails with ErrEmptyEntryChanges for a nil or empty list
// and with ErrInvalidEntryChange for an entry not built by one of the entry constructors.
func NewMapChange(affected auditstore.GlobalID, property string, entries []EntryChange) (MapChange, error) {
	if len(entries) == 0 {
		return MapChange{}, ErrEmptyEntryChanges
	}

	for i, e := range entries {
		switch e.kind {
		case EntryAdded, EntryRemoved, EntryValueChanged:
		default:
			return MapChange{}, errors.Join(ErrInvalidEntryChange, errors.New("entry "+strconv.Itoa(i)+" of "+property))
		}
	}

	return MapChange{
		PropertyChange: PropertyChange{changeBase: changeBase{affected: affected}, property: property},
		entries:        slices.Clone(entries),
	}, nil
}

// EntryChanges returns all entry changes in their original order.
func (c MapChange) EntryChanges() []EntryChange {
	return slices.Clone(c.entries)
}

func (c MapChange) EntryAddedChanges() []EntryChange {
	return c.filter(EntryAdded)
}

func (c MapChange) EntryRemovedChanges() []EntryChange {
	return c.filter(EntryRemoved)
}

func (c MapChange) EntryValueChanges() []EntryChange {
	return c.filter(EntryValueChanged)
}

// Partition splits the entry changes by kind in one pass, keeping their relative order.
func (c MapChange) Partition() (added []EntryChange, removed []EntryChange, valueChanged []EntryChange) {
	for _, e := range c.entries {
		switch e.kind {
		case EntryAdded:
			added = append(added, e)
		case EntryRemoved:
			removed = append(removed, e)
		case EntryValueChanged:
			valueChanged = append(valueChanged, e)
		}
	}

	return added, removed, valueChanged
}

func (c MapChange) filter(kind EntryChangeKind) []EntryChange {
	filtered := make([]EntryChange, 0, len(c.entries))

	for _, e := range c.entries {
		if e.kind == kind {
			filtered = append(filtered, e)
		}
	}

	return filtered
}

// Equal reports structural equality: same affected id, property name, and entry changes in the same order.
func (c MapChange) Equal(other MapChange) bool {
	return c.equalProperty(other.PropertyChange) &&
		slices.EqualFunc(c.entries, other.entries, EntryChange.Equal)
}

// Hash is consistent with Equal: equal values always hash equal.
func (c MapChange) Hash() uint64 {
	d := xxhash.New()

	_, _ = d.WriteString(globalIDValue(c.affected))
	_, _ = d.WriteString("\x00" + c.property)

	for _, e := range c.entries {
		_, _ = d.WriteString("\x00" + strconv.Itoa(int(e.kind)) + "\x00" + e.key)
		_, _ = d.Write(hashableValue(e.left))
		_, _ = d.Write(hashableValue(e.right))
	}

	return d.Sum64()
}

func (c MapChange) String() string {
	rendered := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		rendered = append(rendered, e.String())
	}

	return "MapChange{" + c.fieldsString() + ", entryChanges: " + strings.Join(rendered, ", ") + "}"
}

func (c MapChange) isChange() {}

func hashableValue(v any) []byte {
	encoded, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(v)
	if err != nil {
		return []byte("\x00" + renderValue(v))
	}

	return append([]byte{0}, encoded...)
}
