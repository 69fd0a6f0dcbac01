// Package analysis models the analyze result returned by Azure AI Document
// Intelligence. Field is a tagged union over the service's field kinds and
// decodes directly from the REST payload.
package analysis

import (
	"strings"
)

// Kind is the declared type of an extracted field.
type Kind string

const (
	KindString        Kind = "string"
	KindNumber        Kind = "number"
	KindInteger       Kind = "integer"
	KindDate          Kind = "date"
	KindTime          Kind = "time"
	KindPhoneNumber   Kind = "phoneNumber"
	KindCountryRegion Kind = "countryRegion"
	KindCurrency      Kind = "currency"
	KindAddress       Kind = "address"
	KindArray         Kind = "array"
	KindObject        Kind = "object"
)

type CurrencyValue struct {
	Amount         float64 `json:"amount"`
	CurrencySymbol string  `json:"currencySymbol,omitempty"`
	CurrencyCode   string  `json:"currencyCode,omitempty"`
}

type AddressValue struct {
	HouseNumber   string `json:"houseNumber,omitempty"`
	Road          string `json:"road,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	CountryRegion string `json:"countryRegion,omitempty"`
	StreetAddress string `json:"streetAddress,omitempty"`
}

// String joins the populated parts of the address.
func (a AddressValue) String() string {
	street := a.StreetAddress
	if street == "" {
		street = strings.TrimSpace(a.HouseNumber + " " + a.Road)
	}
	var parts []string
	for _, p := range []string{street, a.City, strings.TrimSpace(a.State + " " + a.PostalCode), a.CountryRegion} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Fields maps field names (MerchantName, Items, ...) to values.
type Fields map[string]*Field

// Get returns the named field or nil.
func (f Fields) Get(name string) *Field {
	if f == nil {
		return nil
	}
	return f[name]
}

// Field is one extracted value. Exactly one typed payload is expected to be
// set, matching Type; Content carries the service's display text.
type Field struct {
	Type               Kind           `json:"type"`
	Content            string         `json:"content,omitempty"`
	Confidence         *float64       `json:"confidence,omitempty"`
	ValueString        *string        `json:"valueString,omitempty"`
	ValueNumber        *float64       `json:"valueNumber,omitempty"`
	ValueInteger       *int64         `json:"valueInteger,omitempty"`
	ValueDate          *string        `json:"valueDate,omitempty"`
	ValueTime          *string        `json:"valueTime,omitempty"`
	ValuePhoneNumber   *string        `json:"valuePhoneNumber,omitempty"`
	ValueCountryRegion *string        `json:"valueCountryRegion,omitempty"`
	ValueCurrency      *CurrencyValue `json:"valueCurrency,omitempty"`
	ValueAddress       *AddressValue  `json:"valueAddress,omitempty"`
	ValueArray         []*Field       `json:"valueArray,omitempty"`
	ValueObject        Fields         `json:"valueObject,omitempty"`
}

// Value returns the best available scalar: non-blank display text first,
// then the accessor for the declared kind. Arrays and objects have no
// scalar value; use Array and Object. A nil result means "not populated".
func (f *Field) Value() any {
	if f == nil {
		return nil
	}
	if strings.TrimSpace(f.Content) != "" {
		return f.Content
	}
	switch f.Type {
	case KindString:
		return deref(f.ValueString)
	case KindNumber:
		if f.ValueNumber != nil {
			return *f.ValueNumber
		}
	case KindInteger:
		if f.ValueInteger != nil {
			return *f.ValueInteger
		}
	case KindDate:
		return deref(f.ValueDate)
	case KindTime:
		return deref(f.ValueTime)
	case KindPhoneNumber:
		return deref(f.ValuePhoneNumber)
	case KindCountryRegion:
		return deref(f.ValueCountryRegion)
	case KindCurrency:
		if f.ValueCurrency != nil {
			return f.ValueCurrency.Amount
		}
	case KindAddress:
		if f.ValueAddress != nil {
			if s := f.ValueAddress.String(); s != "" {
				return s
			}
		}
	}
	return nil
}

// Array returns the elements of an array field.
func (f *Field) Array() []*Field {
	if f == nil {
		return nil
	}
	return f.ValueArray
}

// Object returns the nested fields of an object field.
func (f *Field) Object() Fields {
	if f == nil {
		return nil
	}
	return f.ValueObject
}

func deref(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
