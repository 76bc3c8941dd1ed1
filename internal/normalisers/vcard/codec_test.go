package vcard

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cardsync/internal/core/domain"
)

// pngPixel is a 1x1 transparent PNG.
var pngPixel, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

func lines(ls ...string) string {
	return strings.Join(ls, "\r\n") + "\r\n"
}

func parse(t *testing.T, payload string) []domain.Record {
	t.Helper()
	records, err := New("").Parse(strings.NewReader(payload))
	require.NoError(t, err)
	return records
}

func TestNew(t *testing.T) {
	c := New("-//cardsync//EN")
	require.NotNil(t, c)
	assert.Equal(t, "-//cardsync//EN", c.prodID)
}

// TestParse_Person tests the name, organisation and multi-value mapping of a person.
func TestParse_Person(t *testing.T) {
	records := parse(t, lines(
		"BEGIN:VCARD",
		"VERSION:3.0",
		"N:Lovelace;Ada;Augusta;Lady;FRS",
		"FN:Lady Ada Augusta Lovelace FRS",
		"NICKNAME:Enchantress",
		"ORG:Analytical Engines;Research",
		"TITLE:Analyst",
		"TEL;TYPE=CELL,VOICE:+44 1234",
		"TEL:+44 5678",
		"EMAIL;TYPE=INTERNET,WORK:ada@example.com",
		"URL:https://example.com/ada",
		"ADR;TYPE=HOME:;;12 St James's Square;London;;SW1;UK",
		"IMPP:xmpp:ada@example.com",
		"X-SOCIALPROFILE;TYPE=twitter:https://twitter.com/ada",
		"NOTE:First programmer",
		"BDAY:1815-12-10",
		"END:VCARD",
	))
	require.Len(t, records, 1)
	r := records[0]

	assert.Equal(t, domain.KindPerson, r.Kind)
	assert.Empty(t, r.ID)
	assert.Equal(t, "Lady", r.Value(domain.FieldPrefix))
	assert.Equal(t, "Ada", r.Value(domain.FieldFirstName))
	assert.Equal(t, "Augusta", r.Value(domain.FieldMiddleName))
	assert.Equal(t, "Lovelace", r.Value(domain.FieldLastName))
	assert.Equal(t, "FRS", r.Value(domain.FieldSuffix))
	assert.Equal(t, "Enchantress", r.Value(domain.FieldNickname))
	assert.Equal(t, "Analytical Engines", r.Value(domain.FieldOrganization))
	assert.Equal(t, "Research", r.Value(domain.FieldDepartment))
	assert.Equal(t, "Analyst", r.Value(domain.FieldJobTitle))

	assert.Equal(t, []domain.LabeledValue{
		{Label: "cell", Value: "+44 1234"},
		{Value: "+44 5678"},
	}, r.Values(domain.FieldPhones))
	assert.Equal(t, []domain.LabeledValue{{Label: "work", Value: "ada@example.com"}}, r.Values(domain.FieldEmails))
	assert.Equal(t, []domain.LabeledValue{{Value: "https://example.com/ada"}}, r.Values(domain.FieldURLs))
	assert.Equal(t, []domain.LabeledValue{
		{Label: "home", Value: ";;12 St James's Square;London;;SW1;UK"},
	}, r.Values(domain.FieldAddresses))
	assert.Equal(t, []domain.LabeledValue{{Value: "xmpp:ada@example.com"}}, r.Values(domain.FieldInstantMessages))
	assert.Equal(t, []domain.LabeledValue{
		{Label: "twitter", Value: "https://twitter.com/ada"},
	}, r.Values(domain.FieldSocialProfiles))

	assert.Equal(t, []string{"First programmer"}, r.Extra["NOTE"])
	assert.Equal(t, []string{"1815-12-10"}, r.Extra["BDAY"])
	assert.NotContains(t, r.Extra, "FN")
	assert.NotContains(t, r.Extra, "VERSION")

	key, ok := r.IdentityKey()
	assert.True(t, ok)
	assert.NotEmpty(t, key)
}

// TestParse_Kind tests organisation detection.
func TestParse_Kind(t *testing.T) {
	tests := []struct {
		name  string
		props []string
		want  domain.Kind
	}{
		{"default person", nil, domain.KindPerson},
		{"kind org", []string{"KIND:org"}, domain.KindOrganization},
		{"kind org upper", []string{"KIND:ORG"}, domain.KindOrganization},
		{"kind individual", []string{"KIND:individual"}, domain.KindPerson},
		{"apple show as company", []string{"X-ABShowAs:COMPANY"}, domain.KindOrganization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props := append([]string{"BEGIN:VCARD", "VERSION:4.0", "FN:Acme", "ORG:Acme"}, tt.props...)
			props = append(props, "END:VCARD")
			records := parse(t, lines(props...))
			require.Len(t, records, 1)
			assert.Equal(t, tt.want, records[0].Kind)
		})
	}
}

// TestParse_AppleLabels tests grouped X-ABLabel labels.
func TestParse_AppleLabels(t *testing.T) {
	records := parse(t, lines(
		"BEGIN:VCARD",
		"VERSION:3.0",
		"N:Hopper;Grace;;;",
		"item1.TEL;type=pref:+1 555",
		"item1.X-ABLabel:_$!<Mobile>!$_",
		"item2.EMAIL:grace@navy.mil",
		"item2.X-ABLabel:Navy",
		"END:VCARD",
	))
	require.Len(t, records, 1)
	assert.Equal(t, []domain.LabeledValue{{Label: "mobile", Value: "+1 555"}}, records[0].Values(domain.FieldPhones))
	assert.Equal(t, []domain.LabeledValue{{Label: "navy", Value: "grace@navy.mil"}}, records[0].Values(domain.FieldEmails))
	assert.NotContains(t, records[0].Extra, "X-ABLABEL")
}

// TestParse_Photo tests inline photo forms.
func TestParse_Photo(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString(pngPixel)

	tests := []struct {
		name  string
		photo string
		want  []byte
	}{
		{"v3 base64", "PHOTO;ENCODING=b;TYPE=PNG:" + encoded, pngPixel},
		{"v4 data uri", "PHOTO:data:image/png;base64," + encoded, pngPixel},
		{"whitespace in base64", "PHOTO;ENCODING=b:" + encoded[:8] + " " + encoded[8:], pngPixel},
		{"url skipped", "PHOTO;VALUE=uri:https://example.com/a.png", nil},
		{"not an image", "PHOTO;ENCODING=b:" + base64.StdEncoding.EncodeToString([]byte("plain text")), nil},
		{"bad base64", "PHOTO;ENCODING=b:!!!", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := parse(t, lines("BEGIN:VCARD", "VERSION:3.0", "N:Doe;Jane;;;", tt.photo, "END:VCARD"))
			require.Len(t, records, 1)
			assert.Equal(t, tt.want, records[0].ImageData())
		})
	}
}

// TestParse_MultipleCards tests that cards keep payload order.
func TestParse_MultipleCards(t *testing.T) {
	records := parse(t, lines(
		"BEGIN:VCARD", "VERSION:3.0", "N:Alpha;Arnold;;;", "END:VCARD",
		"BEGIN:VCARD", "VERSION:3.0", "N:Beta;Bertie;;;", "END:VCARD",
		"BEGIN:VCARD", "VERSION:3.0", "FN:Nameless", "END:VCARD",
	))
	require.Len(t, records, 3)
	assert.Equal(t, "Arnold", records[0].Value(domain.FieldFirstName))
	assert.Equal(t, "Bertie", records[1].Value(domain.FieldFirstName))

	_, ok := records[2].IdentityKey()
	assert.False(t, ok, "cards without a name have no identity")
}

// TestParse_SkipsBlankValues tests that empty multi-values are dropped.
func TestParse_SkipsBlankValues(t *testing.T) {
	records := parse(t, lines(
		"BEGIN:VCARD", "VERSION:3.0", "N:Doe;Jane;;;",
		"EMAIL:", "ADR:;;;;;;", "TEL:+1 2",
		"END:VCARD",
	))
	assert.Empty(t, records[0].Values(domain.FieldEmails))
	assert.Empty(t, records[0].Values(domain.FieldAddresses))
	assert.Len(t, records[0].Values(domain.FieldPhones), 1)
}

// TestParse_Errors tests empty and malformed payloads.
func TestParse_Errors(t *testing.T) {
	_, err := New("").Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrEmptyPayload)

	_, err = New("").Parse(strings.NewReader("<html><body>Sign in</body></html>\r\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = New("").Parse(strings.NewReader(lines("BEGIN:VCARD", "VERSION:3.0", "N:Doe;Jane;;;")))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload, "unterminated card")
}

// TestEncode tests writing records as vCard 4.0.
func TestEncode(t *testing.T) {
	person := domain.NewRecord(domain.KindPerson)
	person.ID = "0b5c4f6e-0000-4000-8000-000000000001"
	require.NoError(t, person.SetValue(domain.FieldFirstName, "Ada"))
	require.NoError(t, person.SetValue(domain.FieldLastName, "Lovelace"))
	require.NoError(t, person.SetValue(domain.FieldDepartment, "Research"))
	require.NoError(t, person.AddValues(domain.FieldEmails, []domain.LabeledValue{{Label: "work", Value: "ada@example.com"}}))

	org := domain.NewRecord(domain.KindOrganization)
	require.NoError(t, org.SetValue(domain.FieldOrganization, "Acme"))

	var buf bytes.Buffer
	require.NoError(t, New("-//cardsync//EN").Encode(&buf, []domain.Record{person, org}))
	out := buf.String()

	assert.Equal(t, 2, strings.Count(out, "BEGIN:VCARD"))
	assert.Contains(t, out, "VERSION:4.0")
	assert.Contains(t, out, "PRODID:-//cardsync//EN")
	assert.Contains(t, out, "UID:urn:uuid:0b5c4f6e-0000-4000-8000-000000000001")
	assert.Contains(t, out, "FN:Ada Lovelace")
	assert.Contains(t, out, "ORG:;Research")
	assert.Contains(t, out, "KIND:org")
	assert.Contains(t, out, "FN:Acme")
}

// TestEncode_ParsesBack tests that monitored data survives export and reimport.
func TestEncode_ParsesBack(t *testing.T) {
	original := parse(t, lines(
		"BEGIN:VCARD",
		"VERSION:3.0",
		"N:Lovelace;Ada;;;",
		"ORG:Analytical Engines;Research",
		"TEL;TYPE=CELL:+44 1234",
		"ADR;TYPE=HOME:;;12 St James's Square;London;;SW1;UK",
		"PHOTO;ENCODING=b:"+base64.StdEncoding.EncodeToString(pngPixel),
		"NOTE:Likes engines",
		"END:VCARD",
		"BEGIN:VCARD",
		"VERSION:3.0",
		"X-ABShowAs:COMPANY",
		"ORG:Acme",
		"END:VCARD",
	))

	var buf bytes.Buffer
	require.NoError(t, New("").Encode(&buf, original))
	again := parse(t, buf.String())

	require.Len(t, again, len(original))
	for i := range original {
		assert.Equal(t, original[i].Kind, again[i].Kind)
		assert.Equal(t, original[i].Single, again[i].Single)
		assert.Equal(t, original[i].Multi, again[i].Multi)
		assert.Equal(t, original[i].Image, again[i].Image)
	}
	assert.Equal(t, []string{"Likes engines"}, again[0].Extra["NOTE"])
	assert.True(t, domain.ResolveBetween(original, again).IsEmpty())
}
