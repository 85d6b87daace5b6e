package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"fixmystreet/internal/routing"
	"fixmystreet/internal/types"
)

// cityFile is the YAML layout of a city fixture:
//
//	id: 7
//	name: Charlottetown
//	email: reports@city.example
//	category_classes:
//	  - {id: 1, name: Parks}
//	categories:
//	  - {id: 10, class_id: 1, name: Broken bench}
//	wards:
//	  - id: 3
//	    name: Ward 1
//	    email: ward1@city.example
//	    councillor: {id: 11, first_name: Ada, last_name: Ward, email: ada@city.example}
//	rules:
//	  - {sequence: 10, kind: to_councillor, cc: true}
//	  - {sequence: 20, kind: matching_category_class, class: Parks, email: parks@city.example}
type cityFile struct {
	ID         int64          `yaml:"id"`
	Name       string         `yaml:"name"`
	Email      string         `yaml:"email"`
	Classes    []classFile    `yaml:"category_classes"`
	Categories []categoryFile `yaml:"categories"`
	Wards      []wardFile     `yaml:"wards"`
	Rules      []ruleFile     `yaml:"rules"`
}

type classFile struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type categoryFile struct {
	ID      int64  `yaml:"id"`
	ClassID int64  `yaml:"class_id"`
	Name    string `yaml:"name"`
}

type wardFile struct {
	ID         int64           `yaml:"id"`
	Name       string          `yaml:"name"`
	Email      string          `yaml:"email"`
	Councillor *councillorFile `yaml:"councillor"`
}

type councillorFile struct {
	ID        int64  `yaml:"id"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
}

// ruleFile names its category class by name; rules without an id are
// numbered by position.
type ruleFile struct {
	ID       int64  `yaml:"id"`
	Sequence int    `yaml:"sequence"`
	Kind     string `yaml:"kind"`
	CC       bool   `yaml:"cc"`
	Class    string `yaml:"class"`
	Email    string `yaml:"email"`
}

// Fixture is a city loaded from YAML with its rules already validated.
type Fixture struct {
	City        *types.City
	Rules       []routing.EmailRule
	wards       map[int64]*types.Ward
	councillors map[int64]*types.Councillor
	categories  map[int64]*types.Category
}

// LoadFixture reads a city fixture from path.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return ParseFixture(f)
}

// ParseFixture decodes a city fixture. Unknown keys, duplicate ids and
// invalid rules are errors.
func ParseFixture(r io.Reader) (*Fixture, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var cf cityFile
	if err := dec.Decode(&cf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("fixture is empty")
		}
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if cf.ID <= 0 {
		return nil, errors.New("fixture: city id must be positive")
	}

	fx := &Fixture{
		City:        &types.City{ID: cf.ID, Name: cf.Name, Email: optional(cf.Email)},
		wards:       make(map[int64]*types.Ward, len(cf.Wards)),
		councillors: make(map[int64]*types.Councillor),
		categories:  make(map[int64]*types.Category, len(cf.Categories)),
	}

	classes := make(map[string]*types.CategoryClass, len(cf.Classes))
	classIDs := make(map[int64]bool, len(cf.Classes))
	for _, c := range cf.Classes {
		if classIDs[c.ID] {
			return nil, fmt.Errorf("fixture: duplicate category class id %d", c.ID)
		}
		classIDs[c.ID] = true
		classes[c.Name] = &types.CategoryClass{ID: c.ID, Name: c.Name}
	}

	for _, c := range cf.Categories {
		if !classIDs[c.ClassID] {
			return nil, fmt.Errorf("fixture: category %d references unknown class %d", c.ID, c.ClassID)
		}
		if _, dup := fx.categories[c.ID]; dup {
			return nil, fmt.Errorf("fixture: duplicate category id %d", c.ID)
		}
		fx.categories[c.ID] = &types.Category{ID: c.ID, ClassID: c.ClassID, Name: c.Name}
	}

	for _, w := range cf.Wards {
		if _, dup := fx.wards[w.ID]; dup {
			return nil, fmt.Errorf("fixture: duplicate ward id %d", w.ID)
		}
		ward := &types.Ward{ID: w.ID, CityID: cf.ID, Name: w.Name, Email: optional(w.Email)}
		if w.Councillor != nil {
			c := w.Councillor
			ward.CouncillorID = &c.ID
			fx.councillors[c.ID] = &types.Councillor{
				ID:        c.ID,
				CityID:    cf.ID,
				FirstName: c.FirstName,
				LastName:  c.LastName,
				Email:     optional(c.Email),
			}
		}
		fx.wards[w.ID] = ward
	}

	for i, r := range cf.Rules {
		id := r.ID
		if id == 0 {
			id = int64(i + 1)
		}
		var class *types.CategoryClass
		if r.Class != "" {
			var ok bool
			if class, ok = classes[r.Class]; !ok {
				return nil, fmt.Errorf("fixture: rule %d references unknown class %q", id, r.Class)
			}
		}
		rule, err := routing.NewEmailRule(id, cf.ID, r.Sequence, routing.Kind(r.Kind), r.CC, class, r.Email)
		if err != nil {
			return nil, fmt.Errorf("fixture: rule %d: %w", id, err)
		}
		fx.Rules = append(fx.Rules, rule)
	}

	return fx, nil
}

// Ward returns the ward and its councillor, if any.
func (f *Fixture) Ward(id int64) (*types.Ward, *types.Councillor, error) {
	w, ok := f.wards[id]
	if !ok {
		return nil, nil, fmt.Errorf("ward %d is not in city %d", id, f.City.ID)
	}
	if w.CouncillorID == nil {
		return w, nil, nil
	}
	return w, f.councillors[*w.CouncillorID], nil
}

// Category returns the category with id.
func (f *Fixture) Category(id int64) (*types.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %d is not in the fixture", id)
	}
	return c, nil
}

// Resolve computes the recipients of a report in ward filed under category.
// Every report has a category, so categoryID must name one in the fixture.
func (f *Fixture) Resolve(wardID, categoryID int64) (routing.Recipients, error) {
	ward, councillor, err := f.Ward(wardID)
	if err != nil {
		return routing.Recipients{}, err
	}
	if categoryID <= 0 {
		return routing.Recipients{}, fmt.Errorf("a category is required to resolve recipients")
	}
	category, err := f.Category(categoryID)
	if err != nil {
		return routing.Recipients{}, err
	}
	rc := routing.NewRoutingContext(f.City, ward, councillor, category)
	return routing.Resolve(rc, f.Rules), nil
}

// Describe lists where reports go, for one ward or (wardID 0) for the city
// in the abstract.
func (f *Fixture) Describe(wardID int64) ([]routing.Description, error) {
	var contact *routing.WardContact
	if wardID != 0 {
		ward, councillor, err := f.Ward(wardID)
		if err != nil {
			return nil, err
		}
		wc := routing.NewWardContact(ward, councillor)
		contact = &wc
	}
	return routing.Describe(f.City.DefaultEmail(), f.Rules, contact), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
