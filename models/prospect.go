// ABOUTME: Prospect record model shared by stores, the list core, and the shells
// ABOUTME: Defines document field names, the Fields patch map, and typed field access
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Document field names as stored in the prospects collection.
const (
	FieldCompany          = "company"
	FieldContactPerson    = "contactPerson"
	FieldPhone            = "phone"
	FieldEmail            = "email"
	FieldFirstContactDate = "firstContactDate"
	FieldComment          = "comment"
	FieldStatus           = "status"
	FieldArchived         = "archived"
)

// FormFields lists the free-text fields of the create form, in display order.
var FormFields = []string{
	FieldCompany,
	FieldContactPerson,
	FieldPhone,
	FieldEmail,
	FieldFirstContactDate,
	FieldComment,
	FieldStatus,
}

// DateLayout is the layout the create form writes into firstContactDate.
const DateLayout = "2006-01-02"

// Fields is a create payload or a partial update patch.
type Fields map[string]any

// Prospect is one record of the prospects collection.
// ID is the document key and is never part of the document body.
type Prospect struct {
	ID               string         `json:"-"`
	Company          string         `json:"company"`
	ContactPerson    string         `json:"contactPerson"`
	Phone            string         `json:"phone,omitempty"`
	Email            string         `json:"email,omitempty"`
	FirstContactDate string         `json:"firstContactDate,omitempty"`
	Comment          string         `json:"comment,omitempty"`
	Status           string         `json:"status"`
	Archived         bool           `json:"archived,omitempty"`
	Extra            map[string]any `json:"-"`
}

var knownFields = map[string]bool{
	FieldCompany:          true,
	FieldContactPerson:    true,
	FieldPhone:            true,
	FieldEmail:            true,
	FieldFirstContactDate: true,
	FieldComment:          true,
	FieldStatus:           true,
	FieldArchived:         true,
}

// IsKnownField reports whether name is one of the typed prospect fields.
func IsKnownField(name string) bool {
	return knownFields[name]
}

// FromDocument builds a Prospect from a stored JSON document body.
// Unknown keys are kept in Extra; wrongly typed known keys are left empty.
func FromDocument(id string, body []byte) (Prospect, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return Prospect{}, err
	}
	return FromMap(id, raw), nil
}

// FromMap builds a Prospect from a decoded document.
func FromMap(id string, raw map[string]any) Prospect {
	p := Prospect{ID: id}
	for key, value := range raw {
		switch key {
		case FieldCompany:
			p.Company, _ = value.(string)
		case FieldContactPerson:
			p.ContactPerson, _ = value.(string)
		case FieldPhone:
			p.Phone, _ = value.(string)
		case FieldEmail:
			p.Email, _ = value.(string)
		case FieldFirstContactDate:
			p.FirstContactDate, _ = value.(string)
		case FieldComment:
			p.Comment, _ = value.(string)
		case FieldStatus:
			p.Status, _ = value.(string)
		case FieldArchived:
			p.Archived, _ = value.(bool)
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[key] = value
		}
	}
	return p
}

// ToMap returns the document body of p, including Extra keys.
func (p Prospect) ToMap() map[string]any {
	doc := make(map[string]any, len(knownFields)+len(p.Extra))
	for key, value := range p.Extra {
		doc[key] = value
	}
	doc[FieldCompany] = p.Company
	doc[FieldContactPerson] = p.ContactPerson
	doc[FieldPhone] = p.Phone
	doc[FieldEmail] = p.Email
	doc[FieldFirstContactDate] = p.FirstContactDate
	doc[FieldComment] = p.Comment
	doc[FieldStatus] = p.Status
	if p.Archived {
		doc[FieldArchived] = true
	}
	return doc
}

// Text returns the free-text value of a known string field.
func (p Prospect) Text(field string) string {
	switch field {
	case FieldCompany:
		return p.Company
	case FieldContactPerson:
		return p.ContactPerson
	case FieldPhone:
		return p.Phone
	case FieldEmail:
		return p.Email
	case FieldFirstContactDate:
		return p.FirstContactDate
	case FieldComment:
		return p.Comment
	case FieldStatus:
		return p.Status
	}
	if s, ok := p.Extra[field].(string); ok {
		return s
	}
	return ""
}

// Value returns the typed value of field for ordering purposes.
// firstContactDate yields a time.Time when it parses, otherwise its raw text.
// Missing fields yield nil.
func (p Prospect) Value(field string) any {
	switch field {
	case FieldFirstContactDate:
		if t, ok := p.FirstContactTime(); ok {
			return t
		}
		return p.FirstContactDate
	case FieldArchived:
		return p.Archived
	case FieldCompany, FieldContactPerson, FieldPhone, FieldEmail, FieldComment, FieldStatus:
		return p.Text(field)
	}
	return p.Extra[field]
}

// FirstContactTime parses FirstContactDate as a date or an RFC 3339 timestamp.
func (p Prospect) FirstContactTime() (time.Time, bool) {
	s := strings.TrimSpace(p.FirstContactDate)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// DisplayDate formats FirstContactDate for display, falling back to the raw text.
func (p Prospect) DisplayDate() string {
	if t, ok := p.FirstContactTime(); ok {
		return t.Format(DateLayout)
	}
	return p.FirstContactDate
}

// Clone returns a deep copy of p so callers can not alias Extra.
func (p Prospect) Clone() Prospect {
	if p.Extra != nil {
		extra := make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			extra[k] = v
		}
		p.Extra = extra
	}
	return p
}
