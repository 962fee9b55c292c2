package metamodel

import (
	"errors"
	"reflect"
	"slices"
	"strings"
)

var ErrNotAStruct = errors.New("instance is not a struct")

const (
	auditTag   = "audit"
	auditTagID = "id"
	skipTag    = "-"
)

/***** Property *****/

// Property is one traversable property of a managed class, backed by an exported struct field.
//
// Property values are comparable, two properties are equal if they have the same name, field and type.
type Property struct {
	name      string
	fieldName string
	typ       reflect.Type
}

// Name is the property name as used in snapshot state, the json name of the field if it has one.
func (p Property) Name() string {
	return p.name
}

func (p Property) FieldName() string {
	return p.fieldName
}

func (p Property) Type() reflect.Type {
	return p.typ
}

// Get reads the property value from an instance (struct or pointer to struct).
func (p Property) Get(instance any) (any, error) {
	v, err := structValue(instance)
	if err != nil {
		return nil, err
	}

	field := v.FieldByName(p.fieldName)
	if !field.IsValid() {
		return nil, errors.Join(ErrUnknownProperty, errors.New(p.fieldName+" in "+v.Type().String()))
	}

	return field.Interface(), nil
}

func (p Property) String() string {
	return p.name + " " + p.typ.String()
}

func structValue(instance any) (reflect.Value, error) {
	v := reflect.ValueOf(instance)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, ErrNotAStruct
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return reflect.Value{}, ErrNotAStruct
	}

	return v, nil
}

/***** ManagedClass *****/

// ManagedClass is the structural shape of a Go struct type: its base type and its declared properties.
type ManagedClass struct {
	baseType   reflect.Type
	properties []Property
}

// NewManagedClass scans the exported fields of a struct type.
// Fields tagged with `json:"-"` or `audit:"-"` are not managed.
func NewManagedClass(t reflect.Type) (ManagedClass, error) {
	t = Dereference(t)

	if t == nil {
		return ManagedClass{}, ErrNotManagedType
	}

	if t.Kind() != reflect.Struct {
		return ManagedClass{}, errors.Join(ErrNotManagedType, errors.New(t.String()))
	}

	properties := make([]Property, 0, t.NumField())

	for i := range t.NumField() {
		field := t.Field(i)

		if !field.IsExported() || field.Tag.Get(auditTag) == skipTag {
			continue
		}

		name := field.Name
		if jsonName, _, _ := strings.Cut(field.Tag.Get("json"), ","); jsonName != "" {
			if jsonName == skipTag {
				continue
			}
			name = jsonName
		}

		properties = append(properties, Property{name: name, fieldName: field.Name, typ: field.Type})
	}

	return ManagedClass{baseType: t, properties: properties}, nil
}

func (c ManagedClass) BaseType() reflect.Type {
	return c.baseType
}

func (c ManagedClass) Properties() []Property {
	return slices.Clone(c.properties)
}

// FindProperty looks up a property by its name or field name.
func (c ManagedClass) FindProperty(name string) (Property, bool) {
	for _, p := range c.properties {
		if p.name == name || p.fieldName == name {
			return p, true
		}
	}

	return Property{}, false
}

// CreateShallowReference returns the identity-only projection of the class, declaring only the id property.
func (c ManagedClass) CreateShallowReference(idProperty Property) ManagedClass {
	return ManagedClass{baseType: c.baseType, properties: []Property{idProperty}}
}

// Equal compares base type and the declared property set.
func (c ManagedClass) Equal(other ManagedClass) bool {
	return c.baseType == other.baseType && slices.Equal(c.properties, other.properties)
}

// taggedIDProperty returns the property marked with `audit:"id"`, if any.
func (c ManagedClass) taggedIDProperty() (Property, bool) {
	if c.baseType == nil {
		return Property{}, false
	}

	for _, p := range c.properties {
		field, ok := c.baseType.FieldByName(p.fieldName)
		if ok && field.Tag.Get(auditTag) == auditTagID {
			return p, true
		}
	}

	return Property{}, false
}

// Dereference strips pointer indirections from a type.
func Dereference(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}
