package fixtures

import (
	"github.com/AntonStoeckl/auditstore-go/auditstore/metamodel"
)

const (
	PersonTypeName  = "Person"
	AddressTypeName = "Address"
	GeoTypeName     = "Geo"
	TeamTypeName    = "Team"
)

// Person is an Entity with scalar, container, value object and reference properties.
type Person struct {
	Login         string             `json:"login"`
	Name          string             `json:"name"`
	Age           int                `json:"age"`
	Tags          map[string]string  `json:"tags"`
	Address       *Address           `json:"address"`
	Addresses     []Address          `json:"addresses"`
	AddressByKind map[string]Address `json:"addressByKind"`
	Team          *Team              `json:"team"`
	Boss          *Person            `json:"boss"`
}

// Address is a value object, it may carry a nested Geo value object.
type Address struct {
	City   string `json:"city"`
	Street string `json:"street"`
	Geo    *Geo   `json:"geo"`
}

type Geo struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Team is a shallow reference, its members are never traversed.
type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// TypeMapperOptions define the fixture domain model.
func TypeMapperOptions() []metamodel.Option {
	return []metamodel.Option{
		metamodel.WithEntity(Person{}, "login"),
		metamodel.WithTypeName(Person{}, PersonTypeName),
		metamodel.WithValueObject(Address{}),
		metamodel.WithTypeName(Address{}, AddressTypeName),
		metamodel.WithValueObject(Geo{}),
		metamodel.WithTypeName(Geo{}, GeoTypeName),
		metamodel.WithShallowReference(Team{}, "id"),
		metamodel.WithTypeName(Team{}, TeamTypeName),
	}
}

// NewTypeMapper creates a TypeMapper for the fixture domain model.
func NewTypeMapper() (*metamodel.TypeMapper, error) {
	return metamodel.NewTypeMapper(TypeMapperOptions()...)
}

// Frodo builds a fully populated Person.
func Frodo() Person {
	return Person{
		Login: "frodo",
		Name:  "Frodo Baggins",
		Age:   50,
		Tags:  map[string]string{"race": "hobbit", "home": "shire"},
		Address: &Address{
			City:   "Hobbiton",
			Street: "Bagshot Row",
			Geo:    &Geo{Lat: 51.5, Lng: -2.1},
		},
		Addresses: []Address{
			{City: "Rivendell", Street: "Last Homely House"},
		},
		AddressByKind: map[string]Address{
			"holiday": {City: "Bree", Street: "Prancing Pony"},
		},
		Team: &Team{ID: "fellowship", Name: "Fellowship of the Ring", Members: []string{"sam", "gandalf"}},
	}
}

// Sam builds a minimal Person.
func Sam() Person {
	return Person{Login: "sam", Name: "Samwise Gamgee", Age: 38}
}
