package vcard

import (
	"slices"
	"strings"
	"unicode"
)

// Errors
var (
	ErrEmptyName      = &Error{"name is empty"}
	ErrInvalidName    = &Error{"name contains invalid characters"}
	ErrReservedName   = &Error{"BEGIN and END cannot be used as attribute names"}
	ErrNilAttribute   = &Error{"attribute is nil"}
	ErrNilParam       = &Error{"parameter is nil"}
	ErrAlreadyOwned   = &Error{"already belongs to another container"}
	ErrNotAnAttribute = &Error{"attribute does not belong to this card"}
)

// Error represents a vCard container error
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Card is an ordered list of attributes
type Card struct {
	attrs []*Attribute
}

// Attribute is a single vCard property such as FN, TEL or ADR
type Attribute struct {
	group  string
	name   string
	params []*Param
	values []string
	card   *Card
}

// Param is a named attribute parameter with an ordered list of values
type Param struct {
	name   string
	values []string
	attr   *Attribute
}

// New creates an empty card
func New() *Card {
	return &Card{}
}

// NewAttribute creates a detached attribute. The group may be empty.
func NewAttribute(group, name string) (*Attribute, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if group != "" {
		if err := validateName(group); err != nil {
			return nil, err
		}
	}
	return &Attribute{group: group, name: name}, nil
}

// NewParam creates a detached parameter
func NewParam(name string) (*Param, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	return &Param{name: name}, nil
}

// Len returns the number of attributes on the card
func (c *Card) Len() int {
	return len(c.attrs)
}

// Attributes returns the card's attributes in order
func (c *Card) Attributes() []*Attribute {
	return slices.Clone(c.attrs)
}

// AddAttribute appends an attribute to the card
func (c *Card) AddAttribute(a *Attribute) error {
	if a == nil {
		return ErrNilAttribute
	}
	if a.card != nil {
		return ErrAlreadyOwned
	}
	if a.group == "" && (strings.EqualFold(a.name, "begin") || strings.EqualFold(a.name, "end")) {
		return ErrReservedName
	}
	a.card = c
	c.attrs = append(c.attrs, a)
	return nil
}

// AddAttributeWithValues appends values to a and then appends a to the card
func (c *Card) AddAttributeWithValues(a *Attribute, values ...string) error {
	if a == nil {
		return ErrNilAttribute
	}
	if err := c.AddAttribute(a); err != nil {
		return err
	}
	a.AddValues(values...)
	return nil
}

// Attribute returns the first attribute whose name matches, ignoring case.
func (c *Card) Attribute(name string) *Attribute {
	for _, a := range c.attrs {
		if strings.EqualFold(a.name, name) {
			return a
		}
	}
	return nil
}

// AttributesNamed returns every attribute whose name matches, ignoring case
func (c *Card) AttributesNamed(name string) []*Attribute {
	var out []*Attribute
	for _, a := range c.attrs {
		if strings.EqualFold(a.name, name) {
			out = append(out, a)
		}
	}
	return out
}

// RemoveAttribute detaches a from the card
func (c *Card) RemoveAttribute(a *Attribute) error {
	if a == nil {
		return ErrNilAttribute
	}
	i := slices.Index(c.attrs, a)
	if i < 0 {
		return ErrNotAnAttribute
	}
	c.attrs = slices.Delete(c.attrs, i, i+1)
	a.card = nil
	return nil
}

// RemoveAttributes removes every attribute matching group and name, ignoring
// case. An empty group only matches ungrouped attributes.
func (c *Card) RemoveAttributes(group, name string) {
	c.attrs = slices.DeleteFunc(c.attrs, func(a *Attribute) bool {
		if strings.EqualFold(a.group, group) && strings.EqualFold(a.name, name) {
			a.card = nil
			return true
		}
		return false
	})
}

// Group returns the attribute group, or "" if it has none
func (a *Attribute) Group() string {
	return a.group
}

// Name returns the attribute name
func (a *Attribute) Name() string {
	return a.name
}

// Values returns the attribute values in order
func (a *Attribute) Values() []string {
	return slices.Clone(a.values)
}

// AddValue appends a value
func (a *Attribute) AddValue(value string) {
	a.values = append(a.values, value)
}

// AddValues appends values in order
func (a *Attribute) AddValues(values ...string) {
	a.values = append(a.values, values...)
}

// RemoveValues drops all values
func (a *Attribute) RemoveValues() {
	a.values = nil
}

// Params returns the attribute parameters in order
func (a *Attribute) Params() []*Param {
	return slices.Clone(a.params)
}

// AddParam appends a parameter
func (a *Attribute) AddParam(p *Param) error {
	if p == nil {
		return ErrNilParam
	}
	if p.attr != nil {
		return ErrAlreadyOwned
	}
	p.attr = a
	a.params = append(a.params, p)
	return nil
}

// AddParamWithValues appends values to p and then appends p to the attribute
func (a *Attribute) AddParamWithValues(p *Param, values ...string) error {
	if err := a.AddParam(p); err != nil {
		return err
	}
	p.AddValues(values...)
	return nil
}

// Param returns the first parameter whose name matches, ignoring case.
func (a *Attribute) Param(name string) *Param {
	for _, p := range a.params {
		if strings.EqualFold(p.name, name) {
			return p
		}
	}
	return nil
}

// RemoveParams drops all parameters
func (a *Attribute) RemoveParams() {
	for _, p := range a.params {
		p.attr = nil
	}
	a.params = nil
}

// Copy returns a deep, detached copy of the attribute
func (a *Attribute) Copy() *Attribute {
	cp := &Attribute{
		group:  a.group,
		name:   a.name,
		values: slices.Clone(a.values),
	}
	for _, p := range a.params {
		pc := p.Copy()
		pc.attr = cp
		cp.params = append(cp.params, pc)
	}
	return cp
}

// is reports whether a is the ungrouped attribute called name
func (a *Attribute) is(name string) bool {
	return a.group == "" && strings.EqualFold(a.name, name)
}

// Name returns the parameter name
func (p *Param) Name() string {
	return p.name
}

// Values returns the parameter values in order
func (p *Param) Values() []string {
	return slices.Clone(p.values)
}

// AddValue appends a value.
//
// Parameter values are serialized verbatim, without escaping or quoting. The
// value must not contain ':', ';', ',', CR or LF or the written contentline
// will not parse back to the same attribute.
func (p *Param) AddValue(value string) {
	p.values = append(p.values, value)
}

// AddValues appends values in order. Each value is subject to the same
// restrictions as AddValue.
func (p *Param) AddValues(values ...string) {
	p.values = append(p.values, values...)
}

// RemoveValues drops all values
func (p *Param) RemoveValues() {
	p.values = nil
}

// Copy returns a detached copy of the parameter
func (p *Param) Copy() *Param {
	return &Param{name: p.name, values: slices.Clone(p.values)}
}

func validateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	for _, r := range name {
		if !isIdentRune(r) {
			return ErrInvalidName
		}
	}
	return nil
}

// isIdentRune reports whether r may appear in a group, name or parameter token
func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
}
