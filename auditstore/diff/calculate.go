package diff

import (
	"maps"
	"reflect"
	"slices"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

// CalculateEntryChanges compares two keyed containers and returns their entry changes in sorted key order.
// A nil container is treated as empty.
func CalculateEntryChanges(left map[string]any, right map[string]any) []EntryChange {
	keys := slices.Sorted(maps.Keys(left))
	for key := range right {
		if _, inLeft := left[key]; !inLeft {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	var entries []EntryChange

	for _, key := range keys {
		leftValue, inLeft := left[key]
		rightValue, inRight := right[key]

		switch {
		case !inLeft:
			entries = append(entries, NewEntryAdded(key, rightValue))
		case !inRight:
			entries = append(entries, NewEntryRemoved(key, leftValue))
		case !reflect.DeepEqual(leftValue, rightValue):
			entries = append(entries, NewEntryValueChange(key, leftValue, rightValue))
		}
	}

	return entries
}

// DiffSnapshots derives the changes between a snapshot and its predecessor, previous may be nil.
//
//   - a terminal snapshot yields ObjectRemoved
//   - a snapshot without predecessor yields NewObject followed by its initial property values,
//     but only if newObjects is set; otherwise it yields nothing
//   - otherwise each changed property yields a MapChange when both values are JSON objects,
//     or a ValueChange
//
// All returned changes are bound to the commit of the current snapshot.
func DiffSnapshots(previous *auditstore.CdoSnapshot, current auditstore.CdoSnapshot, newObjects bool) (Changes, error) {
	id := current.GlobalID

	var changes Changes

	switch {
	case current.IsTerminal():
		changes = append(changes, NewObjectRemoved(id))

	case previous == nil:
		if !newObjects {
			return nil, nil
		}

		currentValues, err := current.PropertyValues()
		if err != nil {
			return nil, err
		}

		changes = append(changes, NewNewObject(id))
		changes = append(changes, propertyChanges(id, map[string]any{}, currentValues)...)

	default:
		previousValues, err := previous.PropertyValues()
		if err != nil {
			return nil, err
		}

		currentValues, err := current.PropertyValues()
		if err != nil {
			return nil, err
		}

		changes = append(changes, propertyChanges(id, previousValues, currentValues)...)
	}

	for i := range changes {
		changes[i] = WithCommit(changes[i], current.Commit)
	}

	return changes, nil
}

func propertyChanges(id auditstore.GlobalID, previous map[string]any, current map[string]any) Changes {
	properties := slices.Sorted(maps.Keys(current))
	for property := range previous {
		if _, inCurrent := current[property]; !inCurrent {
			properties = append(properties, property)
		}
	}
	slices.Sort(properties)

	var changes Changes

	for _, property := range properties {
		left := previous[property]
		right := current[property]

		if reflect.DeepEqual(left, right) {
			continue
		}

		leftMap, leftIsMap := asContainer(left)
		rightMap, rightIsMap := asContainer(right)

		// {} and null differ without any entry change, so they fall through to a ValueChange.
		if leftIsMap && rightIsMap {
			if entries := CalculateEntryChanges(leftMap, rightMap); len(entries) > 0 {
				mapChange, err := NewMapChange(id, property, entries)
				if err == nil {
					changes = append(changes, mapChange)
					continue
				}
			}
		}

		changes = append(changes, NewValueChange(id, property, left, right))
	}

	return changes
}

// asContainer treats nil as an empty container so that adding the first entries yields a MapChange.
func asContainer(v any) (map[string]any, bool) {
	if v == nil {
		return map[string]any{}, true
	}

	m, ok := v.(map[string]any)

	return m, ok
}
