package domain

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// Kind distinguishes people from organisations.
// Identity keys never match across kinds.
type Kind string

// Record kinds.
const (
	KindPerson       Kind = "person"
	KindOrganization Kind = "organization"
)

// IsValid returns true if the kind is recognised.
func (k Kind) IsValid() bool {
	return k == KindPerson || k == KindOrganization
}

// SingleField names a monitored single-value field.
type SingleField string

// Monitored single-value fields.
const (
	FieldPrefix       SingleField = "prefix"
	FieldFirstName    SingleField = "first_name"
	FieldMiddleName   SingleField = "middle_name"
	FieldLastName     SingleField = "last_name"
	FieldSuffix       SingleField = "suffix"
	FieldNickname     SingleField = "nickname"
	FieldOrganization SingleField = "organization"
	FieldJobTitle     SingleField = "job_title"
	FieldDepartment   SingleField = "department"
)

// SingleFields lists the monitored single-value fields in a stable order.
var SingleFields = []SingleField{
	FieldPrefix,
	FieldFirstName,
	FieldMiddleName,
	FieldLastName,
	FieldSuffix,
	FieldNickname,
	FieldOrganization,
	FieldJobTitle,
	FieldDepartment,
}

// IsValid returns true if the field is monitored.
func (f SingleField) IsValid() bool {
	return slices.Contains(SingleFields, f)
}

// MultiField names a monitored multi-value field.
type MultiField string

// Monitored multi-value fields.
const (
	FieldPhones          MultiField = "phones"
	FieldEmails          MultiField = "emails"
	FieldURLs            MultiField = "urls"
	FieldAddresses       MultiField = "addresses"
	FieldInstantMessages MultiField = "instant_messages"
	FieldSocialProfiles  MultiField = "social_profiles"
)

// MultiFields lists the monitored multi-value fields in a stable order.
var MultiFields = []MultiField{
	FieldPhones,
	FieldEmails,
	FieldURLs,
	FieldAddresses,
	FieldInstantMessages,
	FieldSocialProfiles,
}

// IsValid returns true if the field is monitored.
func (f MultiField) IsValid() bool {
	return slices.Contains(MultiFields, f)
}

// LabeledValue is one entry of a multi-value field.
// Labels are free text and need not be unique within a field.
type LabeledValue struct {
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

// Record is a normalised contact, either parsed from a payload
// or loaded from the local contact store.
type Record struct {
	// ID is the contact store identifier. Empty for parsed records.
	ID string

	// Kind is person or organisation.
	Kind Kind

	// Single holds monitored single-value fields.
	Single map[SingleField]string

	// Multi holds monitored multi-value fields.
	Multi map[MultiField][]LabeledValue

	// Image is the contact photo, nil when absent.
	Image []byte

	// Extra carries non-monitored properties (notes, birthdays, ...)
	// keyed by vCard property name. Never compared.
	Extra map[string][]string
}

// NewRecord returns an empty record of the given kind.
func NewRecord(kind Kind) Record {
	return Record{
		Kind:   kind,
		Single: make(map[SingleField]string),
		Multi:  make(map[MultiField][]LabeledValue),
	}
}

// identitySeparator keeps "Arnold Alpha"+"" distinct from "Arnold"+"Alpha".
const identitySeparator = "\x1f"

// IdentityKey returns the key used to match records across sets.
// People are keyed by first and last name, organisations by organisation name.
// ok is false when the record has no identity.
func (r Record) IdentityKey() (key string, ok bool) {
	switch r.Kind {
	case KindOrganization:
		key = r.Value(FieldOrganization)
		return key, key != ""
	default:
		first := r.Value(FieldFirstName)
		last := r.Value(FieldLastName)
		if first == "" && last == "" {
			return "", false
		}
		return first + identitySeparator + last, true
	}
}

// Value returns a single-value field, or "" when absent.
func (r Record) Value(field SingleField) string {
	return r.Single[field]
}

// Values returns the entries of a multi-value field in stored order.
func (r Record) Values(field MultiField) []LabeledValue {
	return r.Multi[field]
}

// HasImage reports whether the record carries a photo.
func (r Record) HasImage() bool {
	return len(r.Image) > 0
}

// ImageData returns the photo bytes, or nil.
func (r Record) ImageData() []byte {
	if !r.HasImage() {
		return nil
	}
	return r.Image
}

// DisplayName renders the record's name for messages and listings.
func (r Record) DisplayName() string {
	if r.Kind == KindOrganization {
		return r.Value(FieldOrganization)
	}
	parts := make([]string, 0, 5)
	for _, f := range []SingleField{FieldPrefix, FieldFirstName, FieldMiddleName, FieldLastName, FieldSuffix} {
		if v := r.Value(f); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return r.Value(FieldOrganization)
	}
	return strings.Join(parts, " ")
}

// SetValue sets a monitored single-value field.
func (r *Record) SetValue(field SingleField, value string) error {
	if !field.IsValid() {
		return fmt.Errorf("%w: unknown field %q", ErrInvalidInput, field)
	}
	if r.Single == nil {
		r.Single = make(map[SingleField]string)
	}
	if value == "" {
		delete(r.Single, field)
		return nil
	}
	r.Single[field] = value
	return nil
}

// AddValues appends entries to a monitored multi-value field.
func (r *Record) AddValues(field MultiField, values []LabeledValue) error {
	if !field.IsValid() {
		return fmt.Errorf("%w: unknown field %q", ErrInvalidInput, field)
	}
	for _, v := range values {
		if v.Value == "" {
			return fmt.Errorf("%w: empty value for %s", ErrInvalidInput, field)
		}
	}
	if r.Multi == nil {
		r.Multi = make(map[MultiField][]LabeledValue)
	}
	r.Multi[field] = append(r.Multi[field], values...)
	return nil
}

// SetImage sets the photo after checking the bytes are an image.
func (r *Record) SetImage(data []byte) error {
	if err := ValidateImage(data); err != nil {
		return err
	}
	r.Image = slices.Clone(data)
	return nil
}

// Clone returns a deep copy.
func (r Record) Clone() Record {
	c := r
	c.Single = make(map[SingleField]string, len(r.Single))
	for k, v := range r.Single {
		c.Single[k] = v
	}
	c.Multi = make(map[MultiField][]LabeledValue, len(r.Multi))
	for k, v := range r.Multi {
		c.Multi[k] = slices.Clone(v)
	}
	c.Image = slices.Clone(r.Image)
	if r.Extra != nil {
		c.Extra = make(map[string][]string, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = slices.Clone(v)
		}
	}
	return c
}

// ValidateImage rejects empty or non-image data.
func ValidateImage(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty image", ErrInvalidInput)
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		return fmt.Errorf("%w: image data has content type %s", ErrInvalidInput, ct)
	}
	return nil
}
