package query

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/AntonStoeckl/auditstore-go/auditstore/identity"
)

// Kind names the filter kind of a Query, e.g. for logs and metrics labels.
type Kind string

const (
	KindAnyDomainObject  Kind = "any_domain_object"
	KindID               Kind = "id"
	KindInstance         Kind = "instance"
	KindClass            Kind = "class"
	KindValueObjectOwner Kind = "value_object_owner"
	KindUnknown          Kind = "unknown"
)

// Filter selects the objects a Query is about.
//
// The set of implementations is closed: AnyDomainObjectFilter, IDFilter, InstanceFilter,
// ClassFilter, ValueObjectOwnerFilter. Exactly one of them is set on a Query.
type Filter interface {
	Kind() Kind
	String() string
	isFilter()
}

// AnyDomainObjectFilter selects all objects.
type AnyDomainObjectFilter struct{}

func (AnyDomainObjectFilter) Kind() Kind {
	return KindAnyDomainObject
}

func (AnyDomainObjectFilter) String() string {
	return "AnyDomainObjectFilter{}"
}

func (AnyDomainObjectFilter) isFilter() {}

// IDFilter selects one object by its id.
type IDFilter struct {
	DTO identity.DTO
}

func (IDFilter) Kind() Kind {
	return KindID
}

func (f IDFilter) String() string {
	if f.DTO == nil {
		return "IdFilter{globalId: <nil>}"
	}

	return fmt.Sprintf("IdFilter{globalId: '%s'}", f.DTO)
}

func (IDFilter) isFilter() {}

// InstanceFilter selects one Entity by a live instance, its id is read from the instance's current state.
type InstanceFilter struct {
	Instance any
}

func (InstanceFilter) Kind() Kind {
	return KindInstance
}

func (f InstanceFilter) String() string {
	return fmt.Sprintf("InstanceFilter{instance: %s}", typeName(reflect.TypeOf(f.Instance)))
}

func (InstanceFilter) isFilter() {}

// ClassFilter selects all objects of the given types.
type ClassFilter struct {
	Types []reflect.Type
}

func (ClassFilter) Kind() Kind {
	return KindClass
}

func (f ClassFilter) String() string {
	names := make([]string, 0, len(f.Types))
	for _, t := range f.Types {
		names = append(names, typeName(t))
	}

	return "ClassFilter{types: [" + strings.Join(names, ", ") + "]}"
}

func (ClassFilter) isFilter() {}

// ValueObjectOwnerFilter selects the value objects at a path below all Entities of the owner type.
type ValueObjectOwnerFilter struct {
	OwnerType reflect.Type
	Path      string
}

func (ValueObjectOwnerFilter) Kind() Kind {
	return KindValueObjectOwner
}

func (f ValueObjectOwnerFilter) String() string {
	return fmt.Sprintf("ValueObjectFilter{ownerEntity: %s, path: '%s'}", typeName(f.OwnerType), f.Path)
}

func (ValueObjectOwnerFilter) isFilter() {}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t.Name()
}
