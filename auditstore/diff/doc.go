// Package diff contains the change records derived from consecutive snapshots of a tracked object.
//
// Key types:
//   - MapChange: ordered, non-empty entry changes of a keyed container property
//   - EntryChange: one added, removed or changed entry, tagged with its EntryChangeKind
//   - ValueChange: a changed scalar property
//   - NewObject / ObjectRemoved: creation and removal of an object
//
// Change records are immutable values, compared structurally with Equal.
package diff
