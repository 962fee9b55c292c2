package diff

import (
	"fmt"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

// Change is one atomic difference between two states of a tracked object.
//
// The set of implementations is closed: ValueChange, MapChange, NewObject, ObjectRemoved.
type Change interface {
	// AffectedGlobalID identifies the object the change belongs to.
	AffectedGlobalID() auditstore.GlobalID

	// Commit returns the metadata of the commit which introduced the change, if known.
	Commit() (auditstore.CommitMetadata, bool)

	String() string

	isChange()
}

// Changes is a list of Change records, ordered as produced.
type Changes = []Change

/***** changeBase *****/

type changeBase struct {
	affected auditstore.GlobalID
	commit   *auditstore.CommitMetadata
}

func (c changeBase) AffectedGlobalID() auditstore.GlobalID {
	return c.affected
}

func (c changeBase) Commit() (auditstore.CommitMetadata, bool) {
	if c.commit == nil {
		return auditstore.CommitMetadata{}, false
	}

	return *c.commit, true
}

func (c changeBase) fieldsString() string {
	return fmt.Sprintf("globalId: '%s'", globalIDValue(c.affected))
}

func globalIDValue(id auditstore.GlobalID) string {
	if id == nil {
		return ""
	}

	return id.Value()
}

/***** PropertyChange *****/

// PropertyChange is the part shared by all changes of a single property of an object.
type PropertyChange struct {
	changeBase
	property string
}

// PropertyName is the name of the changed property.
func (c PropertyChange) PropertyName() string {
	return c.property
}

func (c PropertyChange) fieldsString() string {
	return c.changeBase.fieldsString() + fmt.Sprintf(", property: '%s'", c.property)
}

func (c PropertyChange) equalProperty(other PropertyChange) bool {
	return c.affected == other.affected && c.property == other.property
}

/***** ValueChange *****/

// ValueChange records a changed scalar (or otherwise opaque) property value.
type ValueChange struct {
	PropertyChange
	left  any
	right any
}

func NewValueChange(affected auditstore.GlobalID, property string, left any, right any) ValueChange {
	return ValueChange{
		PropertyChange: PropertyChange{changeBase: changeBase{affected: affected}, property: property},
		left:           left,
		right:          right,
	}
}

// Left is the value before the change, nil if the property was not set.
func (c ValueChange) Left() any {
	return c.left
}

// Right is the value after the change, nil if the property was unset.
func (c ValueChange) Right() any {
	return c.right
}

func (c ValueChange) String() string {
	return fmt.Sprintf("ValueChange{%s, left: %s, right: %s}", c.fieldsString(), renderValue(c.left), renderValue(c.right))
}

func (c ValueChange) isChange() {}

/***** NewObject *****/

// NewObject records the creation of a tracked object.
type NewObject struct {
	changeBase
}

func NewNewObject(affected auditstore.GlobalID) NewObject {
	return NewObject{changeBase: changeBase{affected: affected}}
}

func (c NewObject) String() string {
	return "NewObject{" + c.fieldsString() + "}"
}

func (c NewObject) isChange() {}

/***** ObjectRemoved *****/

// ObjectRemoved records the removal of a tracked object.
type ObjectRemoved struct {
	changeBase
}

func NewObjectRemoved(affected auditstore.GlobalID) ObjectRemoved {
	return ObjectRemoved{changeBase: changeBase{affected: affected}}
}

func (c ObjectRemoved) String() string {
	return "ObjectRemoved{" + c.fieldsString() + "}"
}

func (c ObjectRemoved) isChange() {}

/***** commit binding *****/

// WithCommit returns a copy of the change bound to the given commit metadata.
func WithCommit(change Change, commit auditstore.CommitMetadata) Change {
	switch c := change.(type) {
	case ValueChange:
		c.commit = &commit
		return c
	case MapChange:
		c.commit = &commit
		return c
	case NewObject:
		c.commit = &commit
		return c
	case ObjectRemoved:
		c.commit = &commit
		return c
	default:
		return change
	}
}

func renderValue(v any) string {
	if v == nil {
		return "null"
	}

	if s, ok := v.(string); ok {
		return "'" + s + "'"
	}

	return fmt.Sprintf("%v", v)
}
