package vcard

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	govcard "github.com/emersion/go-vcard"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driven"
)

// Ensure Codec implements the interfaces.
var (
	_ driven.RecordParser  = (*Codec)(nil)
	_ driven.RecordEncoder = (*Codec)(nil)
)

// Property names go-vcard has no constant for.
const (
	fieldShowAs        = "X-ABSHOWAS"
	fieldLabel         = "X-ABLABEL"
	fieldSocialProfile = "X-SOCIALPROFILE"
	fieldProdID        = "PRODID"
)

// multiProperties maps monitored multi-value fields to their properties.
var multiProperties = map[domain.MultiField]string{
	domain.FieldPhones:          govcard.FieldTelephone,
	domain.FieldEmails:          govcard.FieldEmail,
	domain.FieldURLs:            govcard.FieldURL,
	domain.FieldAddresses:       govcard.FieldAddress,
	domain.FieldInstantMessages: govcard.FieldIMPP,
	domain.FieldSocialProfiles:  fieldSocialProfile,
}

// handled lists properties that map onto record fields rather than Extra.
var handled = map[string]bool{
	govcard.FieldVersion:       true,
	govcard.FieldFormattedName: true,
	govcard.FieldName:          true,
	govcard.FieldNickname:      true,
	govcard.FieldOrganization:  true,
	govcard.FieldTitle:         true,
	govcard.FieldKind:          true,
	govcard.FieldPhoto:         true,
	govcard.FieldUID:           true,
	govcard.FieldTelephone:     true,
	govcard.FieldEmail:         true,
	govcard.FieldURL:           true,
	govcard.FieldAddress:       true,
	govcard.FieldIMPP:          true,
	fieldSocialProfile:         true,
	fieldShowAs:                true,
	fieldLabel:                 true,
	fieldProdID:                true,
}

// noiseTypes are TYPE values that say nothing a user would call a label.
var noiseTypes = map[string]bool{
	"pref":     true,
	"internet": true,
	"voice":    true,
	"x400":     true,
}

// Codec reads and writes vCard payloads.
type Codec struct {
	prodID string
}

// New creates a codec. prodID is written as PRODID when non-empty.
func New(prodID string) *Codec {
	return &Codec{prodID: prodID}
}

// Parse decodes every card in r.
func (c *Codec) Parse(r io.Reader) ([]domain.Record, error) {
	dec := govcard.NewDecoder(r)
	var records []domain.Record
	for {
		card, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
		}
		records = append(records, recordFromCard(card))
	}
	if len(records) == 0 {
		return nil, domain.ErrEmptyPayload
	}
	return records, nil
}

func recordFromCard(card govcard.Card) domain.Record {
	r := domain.NewRecord(kindOf(card))

	if n := card.Name(); n != nil {
		setIfPresent(&r, domain.FieldPrefix, n.HonorificPrefix)
		setIfPresent(&r, domain.FieldFirstName, n.GivenName)
		setIfPresent(&r, domain.FieldMiddleName, n.AdditionalName)
		setIfPresent(&r, domain.FieldLastName, n.FamilyName)
		setIfPresent(&r, domain.FieldSuffix, n.HonorificSuffix)
	}
	setIfPresent(&r, domain.FieldNickname, card.Value(govcard.FieldNickname))
	setIfPresent(&r, domain.FieldJobTitle, card.Value(govcard.FieldTitle))

	if org := card.Value(govcard.FieldOrganization); org != "" {
		name, dept, _ := strings.Cut(org, ";")
		setIfPresent(&r, domain.FieldOrganization, name)
		setIfPresent(&r, domain.FieldDepartment, dept)
	}

	labels := groupLabels(card)
	for _, mf := range domain.MultiFields {
		for _, f := range card[multiProperties[mf]] {
			if strings.Trim(f.Value, "; ") == "" {
				continue
			}
			r.Multi[mf] = append(r.Multi[mf], domain.LabeledValue{Label: labelOf(f, labels), Value: f.Value})
		}
	}

	if img := photoOf(card.Get(govcard.FieldPhoto)); img != nil {
		r.Image = img // photoOf validated it
	}

	for name, fields := range card {
		if handled[name] {
			continue
		}
		for _, f := range fields {
			if r.Extra == nil {
				r.Extra = make(map[string][]string)
			}
			r.Extra[name] = append(r.Extra[name], f.Value)
		}
	}
	return r
}

func setIfPresent(r *domain.Record, field domain.SingleField, value string) {
	if v := strings.TrimSpace(value); v != "" {
		_ = r.SetValue(field, v)
	}
}

func kindOf(card govcard.Card) domain.Kind {
	if strings.EqualFold(card.Value(govcard.FieldKind), string(govcard.KindOrganization)) ||
		strings.EqualFold(card.Value(fieldShowAs), "COMPANY") {
		return domain.KindOrganization
	}
	return domain.KindPerson
}

// groupLabels collects Apple-style "itemN.X-ABLabel" labels by group.
func groupLabels(card govcard.Card) map[string]string {
	labels := make(map[string]string)
	for _, f := range card[fieldLabel] {
		if f.Group != "" {
			labels[f.Group] = cleanLabel(f.Value)
		}
	}
	return labels
}

// cleanLabel turns Apple's "_$!<Mobile>!$_" form into "mobile".
func cleanLabel(s string) string {
	s = strings.TrimPrefix(s, "_$!<")
	s = strings.TrimSuffix(s, ">!$_")
	return strings.ToLower(strings.TrimSpace(s))
}

func labelOf(f *govcard.Field, groupLabels map[string]string) string {
	if l, ok := groupLabels[f.Group]; ok && f.Group != "" {
		return l
	}
	for _, t := range f.Params.Types() {
		for _, part := range strings.Split(t, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" && !noiseTypes[part] {
				return part
			}
		}
	}
	return ""
}

// photoOf decodes an inline photo. Photos referenced by URL are skipped.
func photoOf(f *govcard.Field) []byte {
	if f == nil || f.Value == "" {
		return nil
	}
	v := f.Value
	if strings.HasPrefix(v, "data:") {
		_, payload, ok := strings.Cut(v, ";base64,")
		if !ok {
			return nil
		}
		v = payload
	} else {
		enc := strings.ToLower(f.Params.Get("ENCODING"))
		if enc != "b" && enc != "base64" {
			return nil
		}
	}
	data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(v), ""))
	if err != nil || domain.ValidateImage(data) != nil {
		return nil
	}
	return data
}

// Encode writes records as vCard 4.0.
func (c *Codec) Encode(w io.Writer, records []domain.Record) error {
	enc := govcard.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(c.cardFromRecord(r)); err != nil {
			return fmt.Errorf("encode %q: %w", r.DisplayName(), err)
		}
	}
	return nil
}

func (c *Codec) cardFromRecord(r domain.Record) govcard.Card {
	card := make(govcard.Card)
	card.SetValue(govcard.FieldVersion, "4.0")
	if c.prodID != "" {
		card.SetValue(fieldProdID, c.prodID)
	}
	if r.ID != "" {
		card.SetValue(govcard.FieldUID, "urn:uuid:"+r.ID)
	}
	if r.Kind == domain.KindOrganization {
		card.SetValue(govcard.FieldKind, string(govcard.KindOrganization))
		card.SetValue(fieldShowAs, "COMPANY")
	}

	card.SetName(&govcard.Name{
		HonorificPrefix: r.Value(domain.FieldPrefix),
		GivenName:       r.Value(domain.FieldFirstName),
		AdditionalName:  r.Value(domain.FieldMiddleName),
		FamilyName:      r.Value(domain.FieldLastName),
		HonorificSuffix: r.Value(domain.FieldSuffix),
	})
	card.SetValue(govcard.FieldFormattedName, r.DisplayName())

	if v := r.Value(domain.FieldNickname); v != "" {
		card.SetValue(govcard.FieldNickname, v)
	}
	if v := r.Value(domain.FieldJobTitle); v != "" {
		card.SetValue(govcard.FieldTitle, v)
	}
	org, dept := r.Value(domain.FieldOrganization), r.Value(domain.FieldDepartment)
	switch {
	case dept != "":
		card.SetValue(govcard.FieldOrganization, org+";"+dept)
	case org != "":
		card.SetValue(govcard.FieldOrganization, org)
	}

	for _, mf := range domain.MultiFields {
		for _, v := range r.Values(mf) {
			f := &govcard.Field{Value: v.Value}
			if v.Label != "" {
				f.Params = govcard.Params{govcard.ParamType: {v.Label}}
			}
			card.Add(multiProperties[mf], f)
		}
	}

	if r.HasImage() {
		data := r.ImageData()
		card.SetValue(govcard.FieldPhoto,
			"data:"+http.DetectContentType(data)+";base64,"+base64.StdEncoding.EncodeToString(data))
	}

	for name, values := range r.Extra {
		for _, v := range values {
			card.Add(name, &govcard.Field{Value: v})
		}
	}
	return card
}
