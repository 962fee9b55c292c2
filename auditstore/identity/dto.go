package identity

import (
	"fmt"
	"reflect"

	"github.com/AntonStoeckl/auditstore-go/auditstore"
)

// DTO describes a global id in terms of Go types, before the types are resolved to managed types.
//
// The set of implementations is closed: InstanceIDDTO, ValueObjectIDDTO, UnboundedValueObjectIDDTO, GlobalIDDTO.
type DTO interface {
	String() string
	isDTO()
}

// InstanceIDDTO identifies an Entity instance by its Go type and local id.
type InstanceIDDTO struct {
	Type    reflect.Type
	LocalID any
}

// InstanceIDOf builds an InstanceIDDTO from a prototype value of the entity type, e.g. Person{}.
func InstanceIDOf(prototype any, localID any) InstanceIDDTO {
	return InstanceIDDTO{Type: reflect.TypeOf(prototype), LocalID: localID}
}

func (d InstanceIDDTO) String() string {
	return fmt.Sprintf("%s/%v", typeString(d.Type), d.LocalID)
}

func (d InstanceIDDTO) isDTO() {}

// ValueObjectIDDTO identifies a value object by its owning Entity and the path below it.
type ValueObjectIDDTO struct {
	OwnerType    reflect.Type
	OwnerLocalID any
	Path         string
}

// ValueObjectIDOf builds a ValueObjectIDDTO from a prototype value of the owner type.
func ValueObjectIDOf(ownerPrototype any, ownerLocalID any, path string) ValueObjectIDDTO {
	return ValueObjectIDDTO{OwnerType: reflect.TypeOf(ownerPrototype), OwnerLocalID: ownerLocalID, Path: path}
}

func (d ValueObjectIDDTO) String() string {
	return fmt.Sprintf("%s/%v#%s", typeString(d.OwnerType), d.OwnerLocalID, d.Path)
}

func (d ValueObjectIDDTO) isDTO() {}

// UnboundedValueObjectIDDTO identifies a value object committed without owner.
type UnboundedValueObjectIDDTO struct {
	Type reflect.Type
}

func UnboundedValueObjectIDOf(prototype any) UnboundedValueObjectIDDTO {
	return UnboundedValueObjectIDDTO{Type: reflect.TypeOf(prototype)}
}

func (d UnboundedValueObjectIDDTO) String() string {
	return typeString(d.Type) + "/"
}

func (d UnboundedValueObjectIDDTO) isDTO() {}

// GlobalIDDTO wraps an already known global id, e.g. one parsed from its canonical form.
type GlobalIDDTO struct {
	ID auditstore.GlobalID
}

func (d GlobalIDDTO) String() string {
	if d.ID == nil {
		return "<nil>"
	}

	return d.ID.Value()
}

func (d GlobalIDDTO) isDTO() {}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t.Name()
}
