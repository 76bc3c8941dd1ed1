package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/cardsync/internal/core/domain"
	"github.com/custodia-labs/cardsync/internal/core/ports/driving"
	"github.com/custodia-labs/cardsync/internal/future"
)

func teamSource() domain.Source {
	return domain.Source{
		ID:      "src-1",
		Type:    domain.SourceTypeHTTP,
		Name:    "Team",
		Enabled: true,
		Connection: domain.Connection{
			URL:      "https://example.com/team.vcf",
			Username: "ada",
			Password: "correct-horse-battery",
		},
	}
}

func TestSourceCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0, len(sourceCmd.Commands()))
	for _, c := range sourceCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t,
		[]string{"add", "list", "show", "edit", "remove", "move", "enable", "disable", "validate"},
		names)
}

func TestSourceCommands_NotConfigured(t *testing.T) {
	withServices(t, Services{})

	for _, args := range [][]string{
		{"source", "add", "Team", "https://example.com/team.vcf"},
		{"source", "list"},
		{"source", "show", "src-1"},
		{"source", "remove", "src-1"},
		{"source", "move", "src-1", "1"},
		{"source", "enable", "src-1"},
		{"source", "validate", "src-1"},
	} {
		_, err := execute(t, args...)
		require.Error(t, err, strings.Join(args, " "))
		assert.Contains(t, err.Error(), "source service not configured")
	}
}

func TestSourceAdd(t *testing.T) {
	svc := &mockSourceService{}
	withServices(t, Services{Source: svc})

	out, err := execute(t, "source", "add", "Team", "https://example.com/team.vcf",
		"--username", "ada", "--token", "tok", "--param", "error_marker=Invalid")

	require.NoError(t, err)
	assert.Contains(t, out, `Added source "Team" (new-id)`)
	require.NotNil(t, svc.added)
	assert.Equal(t, domain.SourceTypeHTTP, svc.added.Type)
	assert.True(t, svc.added.Enabled)
	assert.Equal(t, "https://example.com/team.vcf", svc.added.Connection.URL)
	assert.Equal(t, "ada", svc.added.Connection.Username)
	assert.Equal(t, "tok", svc.added.Connection.Token)
	assert.Equal(t, map[string]string{"error_marker": "Invalid"}, svc.added.Connection.Params)
}

func TestSourceAdd_AskPasswordReadsStdin(t *testing.T) {
	svc := &mockSourceService{}
	withServices(t, Services{Source: svc})
	original := stdin
	stdin = strings.NewReader("s3cret\n")
	t.Cleanup(func() { stdin = original })

	out, err := execute(t, "source", "add", "Intranet", "https://intra.example.com/export.vcf",
		"--type", domain.SourceTypeFormLogin, "--login-url", "https://intra.example.com/login",
		"-u", "ada", "--ask-password", "--disabled")

	require.NoError(t, err)
	assert.Contains(t, out, "Password: ")
	assert.Contains(t, out, "cardsync source enable new-id")
	require.NotNil(t, svc.added)
	assert.Equal(t, domain.SourceTypeFormLogin, svc.added.Type)
	assert.False(t, svc.added.Enabled)
	assert.Equal(t, "s3cret", svc.added.Connection.Password)
	assert.Equal(t, "https://intra.example.com/login", svc.added.Connection.LoginURL)
}

func TestSourceAdd_ServiceError(t *testing.T) {
	withServices(t, Services{Source: &mockSourceService{err: domain.ErrInvalidInput}})

	_, err := execute(t, "source", "add", "Team", "ftp://example.com/team.vcf")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "failed to add source")
}

func TestSourceAdd_RequiresNameAndURL(t *testing.T) {
	withServices(t, Services{Source: &mockSourceService{}})

	_, err := execute(t, "source", "add", "Team")

	assert.Error(t, err)
}

func TestSourceList_Empty(t *testing.T) {
	withServices(t, Services{Source: &mockSourceService{}})

	out, err := execute(t, "source", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No sources configured.")
}

func TestSourceList_Table(t *testing.T) {
	imported := teamSource().WithResult(&domain.Changes{Additions: 2}, nil, nil,
		time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	failed := teamSource()
	failed.ID = "src-2"
	failed.Name = "Partners"
	failed.Enabled = false
	failed = failed.WithResult(nil, nil, errors.New("HTTP 404"), time.Now())
	withServices(t, Services{Source: &mockSourceService{sources: []domain.Source{imported, failed}}})

	out, err := execute(t, "source", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "LAST IMPORT")
	assert.Contains(t, out, "Team")
	assert.Contains(t, out, "2 additions, no updates")
	assert.Contains(t, out, "Partners")
	assert.Contains(t, out, "⚠ HTTP 404")
	assert.Less(t, strings.Index(out, "Team"), strings.Index(out, "Partners"))
}

func TestSourceShow_MasksSecrets(t *testing.T) {
	src := teamSource()
	src.Connection.Token = "short"
	src.Connection.Params = map[string]string{"username_field": "user", "error_marker": "Invalid"}
	withServices(t, Services{Source: &mockSourceService{sources: []domain.Source{src}}})

	out, err := execute(t, "source", "show", "src-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Username: ada")
	assert.Contains(t, out, "Password: corr...tery")
	assert.Contains(t, out, "Token:    ****")
	assert.NotContains(t, out, "correct-horse-battery")
	assert.Less(t, strings.Index(out, "error_marker=Invalid"), strings.Index(out, "username_field=user"))
	assert.Contains(t, out, "Not imported yet")
}

func TestSourceShow_NotFound(t *testing.T) {
	withServices(t, Services{Source: &mockSourceService{}})

	_, err := execute(t, "source", "show", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSourceEdit_OnlyChangedFields(t *testing.T) {
	svc := &mockSourceService{sources: []domain.Source{teamSource()}}
	withServices(t, Services{Source: svc})

	out, err := execute(t, "source", "edit", "src-1", "--name", "Team B", "--password", "new-password")

	require.NoError(t, err)
	assert.Contains(t, out, `Updated source "Team B"`)
	require.NotNil(t, svc.updated)
	assert.Equal(t, "Team B", svc.updated.Name)
	assert.Equal(t, "new-password", svc.updated.Connection.Password)
	assert.Equal(t, "ada", svc.updated.Connection.Username)
	assert.Equal(t, "https://example.com/team.vcf", svc.updated.Connection.URL)
	assert.Equal(t, domain.SourceTypeHTTP, svc.updated.Type)
}

func TestSourceRemove(t *testing.T) {
	svc := &mockSourceService{sources: []domain.Source{teamSource()}}
	withServices(t, Services{Source: svc})

	out, err := execute(t, "source", "remove", "src-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Removed source src-1")
	assert.Empty(t, svc.sources)
}

func TestSourceMove_OneBasedPosition(t *testing.T) {
	svc := &mockSourceService{}
	withServices(t, Services{Source: svc})

	out, err := execute(t, "source", "move", "src-1", "2")

	require.NoError(t, err)
	assert.Contains(t, out, "Moved source src-1 to position 2")
	assert.Equal(t, []any{"src-1", 1}, svc.moved)
}

func TestSourceMove_InvalidPosition(t *testing.T) {
	for _, position := range []string{"0", "-1", "first"} {
		svc := &mockSourceService{}
		withServices(t, Services{Source: svc})

		_, err := execute(t, "source", "move", "src-1", position)

		require.Error(t, err, position)
		assert.Contains(t, err.Error(), "position must be a number from 1")
		assert.Nil(t, svc.moved)
	}
}

func TestSourceEnableDisable(t *testing.T) {
	svc := &mockSourceService{sources: []domain.Source{teamSource()}}
	withServices(t, Services{Source: svc})

	out, err := execute(t, "source", "disable", "src-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Disabled source src-1")
	assert.False(t, svc.sources[0].Enabled)

	out, err = execute(t, "source", "enable", "src-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Enabled source src-1")
	assert.True(t, svc.sources[0].Enabled)

	_, err = execute(t, "source", "enable", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSourceValidate(t *testing.T) {
	svc := &mockSourceService{
		sources: []domain.Source{teamSource()},
		validation: future.Succeeded(driving.ValidationResult{
			URL:   "https://cdn.example.com/team.vcf",
			Stamp: domain.NewCacheStamp(`"v1"`, ""),
		}),
	}
	withServices(t, Services{Source: svc})

	out, err := execute(t, "source", "validate", "src-1")

	require.NoError(t, err)
	assert.Contains(t, out, `Source "Team" is reachable.`)
	assert.Contains(t, out, "URL: https://cdn.example.com/team.vcf")
	assert.Contains(t, out, `etag="v1"`)
}

func TestSourceValidate_NoValidators(t *testing.T) {
	svc := &mockSourceService{
		sources:    []domain.Source{teamSource()},
		validation: future.Succeeded(driving.ValidationResult{URL: "https://example.com/team.vcf"}),
	}
	withServices(t, Services{Source: svc})

	out, err := execute(t, "source", "validate", "src-1")

	require.NoError(t, err)
	assert.Contains(t, out, "No cache validators")
}

func TestSourceValidate_Failure(t *testing.T) {
	svc := &mockSourceService{
		sources:    []domain.Source{teamSource()},
		validation: future.Failed[driving.ValidationResult](&domain.HTTPStatusError{StatusCode: 404}),
	}
	withServices(t, Services{Source: svc})

	_, err := execute(t, "source", "validate", "src-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `source "Team" is not reachable`)
	assert.True(t, domain.IsHTTPStatus(err))
}

func TestSourceValidate_Timeout(t *testing.T) {
	svc := &mockSourceService{
		sources:    []domain.Source{teamSource()},
		validation: future.New[driving.ValidationResult](),
	}
	withServices(t, Services{Source: svc})

	_, err := execute(t, "source", "validate", "src-1", "--timeout", "10ms")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}
