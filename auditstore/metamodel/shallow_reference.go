package metamodel

import (
	"fmt"
	"reflect"
)

// ShallowReferenceType is an Entity whose shape is reduced to its identity.
//
// References to it are stored as ids, its other properties are never traversed.
// It decorates an EntityType built over the identity-only projection of the backing class.
type ShallowReferenceType struct {
	entity *EntityType
}

// NewShallowReferenceType derives a ShallowReferenceType from the backing class of an entity.
// The id property is reused unchanged.
func NewShallowReferenceType(backing ManagedClass, idProperty Property, typeName string) *ShallowReferenceType {
	return &ShallowReferenceType{
		entity: NewEntityType(backing.CreateShallowReference(idProperty), idProperty, typeName),
	}
}

// Entity returns the identity-only EntityType projection.
func (t *ShallowReferenceType) Entity() *EntityType {
	return t.entity
}

func (t *ShallowReferenceType) IDProperty() Property {
	return t.entity.idProperty
}

func (t *ShallowReferenceType) Name() string {
	return t.entity.Name()
}

func (t *ShallowReferenceType) BaseType() reflect.Type {
	return t.entity.BaseType()
}

func (t *ShallowReferenceType) Class() ManagedClass {
	return t.entity.class
}

func (t *ShallowReferenceType) Properties() []Property {
	return t.entity.Properties()
}

func (t *ShallowReferenceType) FindProperty(name string) (Property, bool) {
	return t.entity.FindProperty(name)
}

func (t *ShallowReferenceType) Kind() TypeKind {
	return ShallowReferenceKind
}

// Spawn binds a new ShallowReferenceType to another class, keeping the same id property.
func (t *ShallowReferenceType) Spawn(class ManagedClass, typeName string) ManagedType {
	return NewShallowReferenceType(class, t.entity.idProperty, typeName)
}

// Equal is true if the other type is a ShallowReferenceType with an equal EntityType projection.
func (t *ShallowReferenceType) Equal(other ManagedType) bool {
	o, ok := other.(*ShallowReferenceType)
	if !ok || t == nil || o == nil {
		return ok && t == o
	}

	return t.entity.Equal(o.entity)
}

func (t *ShallowReferenceType) String() string {
	return fmt.Sprintf("ShallowReferenceType{typeName: '%s', baseType: '%s', id: '%s'}", t.Name(), t.BaseType(), t.entity.idProperty.name)
}

func (t *ShallowReferenceType) isManagedType() {}
