package auditstore

import (
	"errors"
	"strings"
)

const (
	typeSeparator     = "/"
	fragmentSeparator = "#"
)

var ErrInvalidGlobalID = errors.New("global id is not valid")

// GlobalIDKind discriminates the GlobalID variants, e.g. for storage.
type GlobalIDKind string

const (
	InstanceIDKind             GlobalIDKind = "instance"
	ValueObjectIDKind          GlobalIDKind = "value_object"
	UnboundedValueObjectIDKind GlobalIDKind = "unbounded_value_object"
)

// GlobalID is the stable identifier of a tracked object, scoped by the name of its managed type.
//
// The set of implementations is closed: InstanceID, ValueObjectID, UnboundedValueObjectID.
// All of them are comparable values and may be used as map keys.
type GlobalID interface {
	// TypeName is the name of the managed type the identified object belongs to.
	TypeName() string

	// Value is the canonical string form, e.g. "Person/1", "Person/1#address" or "Address/".
	Value() string

	Kind() GlobalIDKind

	String() string

	isGlobalID()
}

/***** InstanceID *****/

// InstanceID identifies an Entity instance by its type name and local id.
type InstanceID struct {
	typeName string
	localID  string
}

func NewInstanceID(typeName string, localID string) InstanceID {
	return InstanceID{typeName: typeName, localID: localID}
}

func (id InstanceID) TypeName() string {
	return id.typeName
}

func (id InstanceID) LocalID() string {
	return id.localID
}

func (id InstanceID) Value() string {
	return id.typeName + typeSeparator + id.localID
}

func (id InstanceID) Kind() GlobalIDKind {
	return InstanceIDKind
}

func (id InstanceID) String() string {
	return id.Value()
}

func (id InstanceID) isGlobalID() {}

/***** ValueObjectID *****/

// ValueObjectID identifies a value object by its owning entity and the ownership path (fragment) below it.
type ValueObjectID struct {
	typeName string
	owner    InstanceID
	fragment string
}

func NewValueObjectID(typeName string, owner InstanceID, fragment string) ValueObjectID {
	return ValueObjectID{typeName: typeName, owner: owner, fragment: fragment}
}

func (id ValueObjectID) TypeName() string {
	return id.typeName
}

func (id ValueObjectID) Owner() InstanceID {
	return id.owner
}

func (id ValueObjectID) Fragment() string {
	return id.fragment
}

func (id ValueObjectID) Value() string {
	return id.owner.Value() + fragmentSeparator + id.fragment
}

func (id ValueObjectID) Kind() GlobalIDKind {
	return ValueObjectIDKind
}

func (id ValueObjectID) String() string {
	return id.Value()
}

func (id ValueObjectID) isGlobalID() {}

/***** UnboundedValueObjectID *****/

// UnboundedValueObjectID identifies a value object that was committed without an owning entity.
type UnboundedValueObjectID struct {
	typeName string
}

func NewUnboundedValueObjectID(typeName string) UnboundedValueObjectID {
	return UnboundedValueObjectID{typeName: typeName}
}

func (id UnboundedValueObjectID) TypeName() string {
	return id.typeName
}

func (id UnboundedValueObjectID) Value() string {
	return id.typeName + typeSeparator
}

func (id UnboundedValueObjectID) Kind() GlobalIDKind {
	return UnboundedValueObjectIDKind
}

func (id UnboundedValueObjectID) String() string {
	return id.Value()
}

func (id UnboundedValueObjectID) isGlobalID() {}

/***** parsing *****/

// ParseGlobalID parses the canonical form produced by GlobalID.Value.
//
// The value object type name is not part of the canonical form of a ValueObjectID,
// so it has to be supplied by the caller; pass "" if unknown.
func ParseGlobalID(value string, valueObjectTypeName string) (GlobalID, error) {
	ownerPart, fragment, isValueObject := strings.Cut(value, fragmentSeparator)

	typeName, localID, found := strings.Cut(ownerPart, typeSeparator)
	if !found || typeName == "" {
		return nil, errors.Join(ErrInvalidGlobalID, errors.New("missing type name in "+value))
	}

	if isValueObject {
		if localID == "" || fragment == "" {
			return nil, errors.Join(ErrInvalidGlobalID, errors.New("incomplete value object id "+value))
		}

		return NewValueObjectID(valueObjectTypeName, NewInstanceID(typeName, localID), fragment), nil
	}

	if localID == "" {
		return NewUnboundedValueObjectID(typeName), nil
	}

	return NewInstanceID(typeName, localID), nil
}
