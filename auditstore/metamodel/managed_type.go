package metamodel

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrNotManagedType       = errors.New("type can not be managed, only structs can")
	ErrUnknownProperty      = errors.New("unknown property")
	ErrIDPropertyNotFound   = errors.New("id property not found")
	ErrNilIDValue           = errors.New("id property value must not be nil")
	ErrNotAnInstanceOfClass = errors.New("instance is not of the managed class")
)

// TypeKind discriminates the ManagedType variants.
type TypeKind int

const (
	EntityKind TypeKind = iota + 1
	ValueObjectKind
	ShallowReferenceKind
)

func (k TypeKind) String() string {
	switch k {
	case EntityKind:
		return "Entity"
	case ValueObjectKind:
		return "ValueObject"
	case ShallowReferenceKind:
		return "ShallowReference"
	default:
		return "unknown"
	}
}

// ManagedType describes the structural shape of a domain type used for snapshots and diffs.
//
// The set of implementations is closed: *EntityType, *ValueObjectType, *ShallowReferenceType.
// Managed types are immutable; Spawn creates a new value.
type ManagedType interface {
	// Name is the type name used in global ids, the display-name override if set, the Go type name otherwise.
	Name() string

	BaseType() reflect.Type

	Class() ManagedClass

	// Properties are the traversable properties.
	Properties() []Property

	FindProperty(name string) (Property, bool)

	Kind() TypeKind

	// Spawn creates a type of the same variant bound to another class and display name.
	Spawn(class ManagedClass, typeName string) ManagedType

	Equal(other ManagedType) bool

	String() string

	isManagedType()
}

// AsEntity returns the Entity view of a managed type: an EntityType itself or the projection of a ShallowReferenceType.
func AsEntity(t ManagedType) (*EntityType, bool) {
	switch mt := t.(type) {
	case *EntityType:
		return mt, mt != nil
	case *ShallowReferenceType:
		if mt == nil {
			return nil, false
		}
		return mt.entity, true
	default:
		return nil, false
	}
}

func displayName(class ManagedClass, typeName string) string {
	if typeName != "" {
		return typeName
	}

	if class.baseType == nil {
		return ""
	}

	return class.baseType.Name()
}

/***** EntityType *****/

// EntityType is a managed type with identity, its instances are identified by the value of the id property.
type EntityType struct {
	class      ManagedClass
	idProperty Property
	typeName   string
}

// NewEntityType creates an EntityType; typeName may be empty to use the Go type name.
func NewEntityType(class ManagedClass, idProperty Property, typeName string) *EntityType {
	return &EntityType{class: class, idProperty: idProperty, typeName: typeName}
}

func (t *EntityType) Name() string {
	return displayName(t.class, t.typeName)
}

func (t *EntityType) BaseType() reflect.Type {
	return t.class.baseType
}

func (t *EntityType) Class() ManagedClass {
	return t.class
}

func (t *EntityType) Properties() []Property {
	return t.class.Properties()
}

func (t *EntityType) FindProperty(name string) (Property, bool) {
	return t.class.FindProperty(name)
}

func (t *EntityType) Kind() TypeKind {
	return EntityKind
}

func (t *EntityType) IDProperty() Property {
	return t.idProperty
}

// LocalID reads the id property of an instance and renders it as the local part of an InstanceID.
func (t *EntityType) LocalID(instance any) (string, error) {
	v, err := structValue(instance)
	if err != nil {
		return "", err
	}

	if v.Type() != t.class.baseType {
		return "", errors.Join(ErrNotAnInstanceOfClass, fmt.Errorf("%s is not %s", v.Type(), t.class.baseType))
	}

	value, err := t.idProperty.Get(instance)
	if err != nil {
		return "", err
	}

	if value == nil {
		return "", ErrNilIDValue
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", ErrNilIDValue
		}
		value = rv.Elem().Interface()
	}

	return fmt.Sprint(value), nil
}

func (t *EntityType) Spawn(class ManagedClass, typeName string) ManagedType {
	idProperty := t.idProperty
	if p, ok := class.FindProperty(t.idProperty.fieldName); ok {
		idProperty = p
	}

	return NewEntityType(class, idProperty, typeName)
}

// Equal compares the class shape and the id property, the display name is not part of the identity.
func (t *EntityType) Equal(other ManagedType) bool {
	o, ok := other.(*EntityType)
	if !ok || t == nil || o == nil {
		return ok && t == o
	}

	return t.class.Equal(o.class) && t.idProperty == o.idProperty
}

func (t *EntityType) String() string {
	return fmt.Sprintf("EntityType{typeName: '%s', baseType: '%s', id: '%s'}", t.Name(), t.class.baseType, t.idProperty.name)
}

func (t *EntityType) isManagedType() {}

/***** ValueObjectType *****/

// ValueObjectType is a managed type without identity, its instances are identified by their owner and path.
type ValueObjectType struct {
	class    ManagedClass
	typeName string
}

func NewValueObjectType(class ManagedClass, typeName string) *ValueObjectType {
	return &ValueObjectType{class: class, typeName: typeName}
}

func (t *ValueObjectType) Name() string {
	return displayName(t.class, t.typeName)
}

func (t *ValueObjectType) BaseType() reflect.Type {
	return t.class.baseType
}

func (t *ValueObjectType) Class() ManagedClass {
	return t.class
}

func (t *ValueObjectType) Properties() []Property {
	return t.class.Properties()
}

func (t *ValueObjectType) FindProperty(name string) (Property, bool) {
	return t.class.FindProperty(name)
}

func (t *ValueObjectType) Kind() TypeKind {
	return ValueObjectKind
}

func (t *ValueObjectType) Spawn(class ManagedClass, typeName string) ManagedType {
	return NewValueObjectType(class, typeName)
}

func (t *ValueObjectType) Equal(other ManagedType) bool {
	o, ok := other.(*ValueObjectType)
	if !ok || t == nil || o == nil {
		return ok && t == o
	}

	return t.class.Equal(o.class)
}

func (t *ValueObjectType) String() string {
	return fmt.Sprintf("ValueObjectType{typeName: '%s', baseType: '%s'}", t.Name(), t.class.baseType)
}

func (t *ValueObjectType) isManagedType() {}
