// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/publications/internal/identifier"
	"github.com/pdiddy/publications/internal/secrets"
	"github.com/pdiddy/publications/pkg/types"
)

// isolated returns Options that see no files outside a temp dir.
func isolated(t *testing.T) (Options, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	return Options{
		EnvFile:    filepath.Join(dir, "missing.env"),
		SecretsDir: filepath.Join(dir, "secrets"),
	}, dir
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDefaults(t *testing.T) {
	opts, _ := isolated(t)
	s, err := Load(opts)
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, s.PubMed.Delay)
	assert.Equal(t, 5*time.Second, s.PubMed.Timeout)
	assert.Equal(t, 500*time.Millisecond, s.Crossref.Delay)
	assert.Equal(t, 10*time.Second, s.Crossref.Timeout)
	assert.Equal(t, 6, s.Account.MinPasswordLength)
	assert.Equal(t, 14, s.Account.LoginMaxAgeDays)
	assert.Equal(t, 10, s.Acquisition.FetchedLimit)
	assert.Equal(t, 20*time.Minute, s.Acquisition.AcquirePeriod)
	assert.Empty(t, s.Acquisition.Qualifiers)
	assert.Equal(t, identifier.DefaultPrefixes, s.Acquisition.IdentifierPrefixes)
	assert.Equal(t, types.DriverSQLite, s.Store.Driver)
	assert.Equal(t, "publications.db", s.Store.Path)
	assert.Equal(t, 8885, s.Server.Port)
}

func TestLoadEnvironment(t *testing.T) {
	opts, _ := isolated(t)
	t.Setenv("PUBMED_DELAY", "1.5")
	t.Setenv("CROSSREF_TIMEOUT", "30s")
	t.Setenv("NCBI_API_KEY", "ncbi-env")
	t.Setenv("MIN_PASSWORD_LENGTH", "10")
	t.Setenv("PUBLICATIONS_FETCHED_LIMIT", "25")
	t.Setenv("SITE_LABEL_QUALIFIERS", "Service, Technology development,Collaborative")
	t.Setenv("XREF_TEMPLATE_URLS", "GEO=https://www.ncbi.nlm.nih.gov/geo/query/acc.cgi?acc=%s")
	t.Setenv("PUBLICATIONS_SERVER_PORT", "9000")
	t.Setenv("PUBLICATIONS_STORE_DRIVER", "memory")

	s, err := Load(opts)
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, s.PubMed.Delay)
	assert.Equal(t, 30*time.Second, s.Crossref.Timeout)
	assert.Equal(t, "ncbi-env", s.PubMed.APIKey)
	assert.Equal(t, 10, s.Account.MinPasswordLength)
	assert.Equal(t, 25, s.Acquisition.FetchedLimit)
	assert.Equal(t, types.Qualifiers{"Service", "Technology development", "Collaborative"}, s.Acquisition.Qualifiers)
	assert.Equal(t, map[string]string{"geo": "https://www.ncbi.nlm.nih.gov/geo/query/acc.cgi?acc=%s"}, s.Site.XrefTemplateURLs)
	assert.Equal(t, 9000, s.Server.Port)
	assert.Equal(t, types.DriverMemory, s.Store.Driver)
}

func TestLoadFileAndEnvFile(t *testing.T) {
	opts, dir := isolated(t)
	opts.File = filepath.Join(dir, "publications.yaml")
	write(t, opts.File, `
site:
  name: SciLifeLab
acquisition:
  qualifiers: [Service, Collaborative]
store:
  driver: postgres
  dsn: postgres://pub@localhost/pub
`)
	opts.EnvFile = filepath.Join(dir, "test.env")
	write(t, opts.EnvFile, "LOGIN_MAX_AGE_DAYS=30\n")
	t.Cleanup(func() { os.Unsetenv("LOGIN_MAX_AGE_DAYS") })

	s, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "SciLifeLab", s.Site.Name)
	assert.Equal(t, types.Qualifiers{"Service", "Collaborative"}, s.Acquisition.Qualifiers)
	assert.Equal(t, types.DriverPostgres, s.Store.Driver)
	assert.Equal(t, 30, s.Account.LoginMaxAgeDays)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	opts, dir := isolated(t)
	opts.File = filepath.Join(dir, "nope.yaml")
	_, err := Load(opts)
	assert.Error(t, err)
}

func TestLoadSecrets(t *testing.T) {
	opts, _ := isolated(t)
	write(t, filepath.Join(opts.SecretsDir, secrets.CookieSecret), "cookie\n")
	write(t, filepath.Join(opts.SecretsDir, secrets.NCBIAPIKey), "ncbi-file")
	write(t, filepath.Join(opts.SecretsDir, secrets.DatabasePassword), "pgpw")
	t.Setenv("NCBI_API_KEY", "ncbi-env")

	s, err := Load(opts)
	require.NoError(t, err)
	assert.Equal(t, "cookie", s.Account.CookieSecret)
	assert.Equal(t, "ncbi-env", s.PubMed.APIKey, "explicit configuration wins")
	assert.Equal(t, "pgpw", s.Store.Password)
	assert.Empty(t, s.Mail.Password)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *types.Settings)
		field  string
	}{
		{name: "postgres needs dsn", mutate: func(s *types.Settings) { s.Store.Driver = types.DriverPostgres }, field: "store"},
		{name: "unknown driver", mutate: func(s *types.Settings) { s.Store.Driver = "couchdb" }, field: "store"},
		{name: "port range", mutate: func(s *types.Settings) { s.Server.Port = 70000 }, field: "server"},
		{name: "zero timeout", mutate: func(s *types.Settings) { s.PubMed.Timeout = 0 }, field: "pubmed"},
		{name: "zero fetched limit", mutate: func(s *types.Settings) { s.Acquisition.FetchedLimit = 0 }, field: "acquisition"},
		{name: "repeated qualifier", mutate: func(s *types.Settings) {
			s.Acquisition.Qualifiers = types.Qualifiers{"Service", "Service"}
		}, field: "acquisition"},
		{name: "mail host needs sender", mutate: func(s *types.Settings) { s.Mail.Host = "smtp.example.org" }, field: "mail"},
		{name: "log format", mutate: func(s *types.Settings) { s.Log.Format = "xml" }, field: "log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, _ := isolated(t)
			s, err := Load(opts)
			require.NoError(t, err)
			tt.mutate(s)
			err = Validate(s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestParseTemplates(t *testing.T) {
	got, err := ParseTemplates(" GEO=https://geo/%s , ArrayExpress=https://ae/%s,")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"geo": "https://geo/%s", "arrayexpress": "https://ae/%s"}, got)

	_, err = ParseTemplates("broken")
	assert.Error(t, err)
}
