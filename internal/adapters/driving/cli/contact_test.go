package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cardsync/internal/core/domain"
)

func contacts() []domain.Record {
	ada := person("c-1", "Ada", "Lovelace")
	ada.Single[domain.FieldOrganization] = "Analytical Engines"
	ada.Multi[domain.FieldEmails] = []domain.LabeledValue{
		{Label: "work", Value: "ada@example.com"},
		{Label: "home", Value: "ada@home.example"},
	}
	ada.Multi[domain.FieldPhones] = []domain.LabeledValue{{Value: "+44 20 7946 0000"}}

	acme := domain.NewRecord(domain.KindOrganization)
	acme.ID = "c-2"
	acme.Single[domain.FieldOrganization] = "Acme"

	return []domain.Record{ada, acme, person("c-3", "Grace", "Hopper")}
}

func TestContact_NotConfigured(t *testing.T) {
	withServices(t, Services{})

	for _, args := range [][]string{
		{"contact", "list"},
		{"contact", "find", "ada"},
		{"contact", "show", "c-1"},
		{"contact", "export"},
	} {
		_, err := execute(t, args...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "contact service not configured")
	}
}

func TestContactList(t *testing.T) {
	withServices(t, Services{Contact: &mockContactService{records: contacts()}})

	out, err := execute(t, "contact", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "ORGANIZATION")
	assert.Contains(t, out, "Ada Lovelace")
	assert.Contains(t, out, "ada@example.com")
	assert.NotContains(t, out, "ada@home.example")
	assert.Contains(t, out, "+44 20 7946 0000")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "3 contact(s)")
}

func TestContactList_KindFilter(t *testing.T) {
	withServices(t, Services{Contact: &mockContactService{records: contacts()}})

	out, err := execute(t, "contact", "list", "--kind", "organization")

	require.NoError(t, err)
	assert.Contains(t, out, "Acme")
	assert.NotContains(t, out, "Grace Hopper")
	assert.Contains(t, out, "1 contact(s)")
}

func TestContactList_UnknownKind(t *testing.T) {
	withServices(t, Services{Contact: &mockContactService{records: contacts()}})

	_, err := execute(t, "contact", "list", "--kind", "robot")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown kind "robot"`)
}

func TestContactList_Empty(t *testing.T) {
	withServices(t, Services{Contact: &mockContactService{}})

	out, err := execute(t, "contact", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No contacts saved.")
}

func TestContactFind(t *testing.T) {
	withServices(t, Services{Contact: &mockContactService{records: contacts()}})

	out, err := execute(t, "contact", "find", "grace")

	require.NoError(t, err)
	assert.Contains(t, out, "Grace Hopper")
	assert.NotContains(t, out, "Ada Lovelace")

	out, err = execute(t, "contact", "find", "nobody")

	require.NoError(t, err)
	assert.Contains(t, out, `No contacts match "nobody".`)
}

func TestContactShow(t *testing.T) {
	withServices(t, Services{Contact: &mockContactService{records: contacts()}})

	out, err := execute(t, "contact", "show", "c-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Ada Lovelace (person)")
	assert.Contains(t, out, "Analytical Engines")
	assert.Contains(t, out, "ada@home.example (home)")
	assert.Contains(t, out, "+44 20 7946 0000 (-)")
}

func TestContactShow_NotFound(t *testing.T) {
	withServices(t, Services{Contact: &mockContactService{}})

	_, err := execute(t, "contact", "show", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContactExport_Stdout(t *testing.T) {
	withServices(t, Services{Contact: &mockContactService{records: contacts()}})

	out, err := execute(t, "contact", "export", "c-3")

	require.NoError(t, err)
	assert.Contains(t, out, "FN:Grace Hopper")
	assert.NotContains(t, out, "Ada Lovelace")
}

func TestContactExport_File(t *testing.T) {
	withServices(t, Services{Contact: &mockContactService{records: contacts()}})
	path := filepath.Join(t.TempDir(), "all.vcf")

	out, err := execute(t, "contact", "export", "-o", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 contact(s) to "+path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "FN:Ada Lovelace")
	assert.Contains(t, string(data), "FN:Acme")
}

func TestFirstValue(t *testing.T) {
	r := contacts()[0]

	assert.Equal(t, "ada@example.com", firstValue(r, domain.FieldEmails))
	assert.Empty(t, firstValue(r, domain.FieldURLs))
}
