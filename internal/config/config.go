// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads runtime settings from a YAML settings file, an optional
// .env file, the environment and the secrets directory, in increasing order of
// precedence for everything except secrets, which only fill unset values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/pdiddy/publications/internal/identifier"
	"github.com/pdiddy/publications/internal/secrets"
	"github.com/pdiddy/publications/pkg/types"
)

// Name is the settings file base name looked up in the search path.
const Name = "publications"

// EnvPrefix prefixes every environment variable without a bare binding.
const EnvPrefix = "PUBLICATIONS"

// bareEnv binds settings keys to environment variables without the prefix.
var bareEnv = map[string]string{
	"pubmed.delay":                    "PUBMED_DELAY",
	"pubmed.timeout":                  "PUBMED_TIMEOUT",
	"pubmed.api_key":                  "NCBI_API_KEY",
	"crossref.delay":                  "CROSSREF_DELAY",
	"crossref.timeout":                "CROSSREF_TIMEOUT",
	"account.min_password_length":     "MIN_PASSWORD_LENGTH",
	"account.login_max_age_days":      "LOGIN_MAX_AGE_DAYS",
	"acquisition.fetched_limit":       "PUBLICATIONS_FETCHED_LIMIT",
	"acquisition.qualifiers":          "SITE_LABEL_QUALIFIERS",
	"acquisition.identifier_prefixes": "IDENTIFIER_PREFIXES",
	"site.xref_template_urls":         "XREF_TEMPLATE_URLS",
}

// durationKeys accept a bare number of seconds as well as a Go duration.
var durationKeys = []string{
	"pubmed.delay",
	"pubmed.timeout",
	"crossref.delay",
	"crossref.timeout",
	"acquisition.bulk_pause",
	"acquisition.acquire_period",
}

// Defaults registers the default value of every settings key on v.
func Defaults(v *viper.Viper) {
	v.SetDefault("site.name", "Publications")
	v.SetDefault("site.xref_template_urls", map[string]string{})

	v.SetDefault("pubmed.delay", 500*time.Millisecond)
	v.SetDefault("pubmed.timeout", 5*time.Second)
	v.SetDefault("pubmed.user_agent", "publications")
	v.SetDefault("pubmed.api_key", "")

	v.SetDefault("crossref.delay", 500*time.Millisecond)
	v.SetDefault("crossref.timeout", 10*time.Second)
	v.SetDefault("crossref.user_agent", "publications")
	v.SetDefault("crossref.mailto", "")

	v.SetDefault("acquisition.fetched_limit", 10)
	v.SetDefault("acquisition.bulk_pause", time.Second)
	v.SetDefault("acquisition.acquire_period", 20*time.Minute)
	v.SetDefault("acquisition.qualifiers", []string{})
	v.SetDefault("acquisition.identifier_prefixes", identifier.DefaultPrefixes)

	v.SetDefault("account.min_password_length", 6)
	v.SetDefault("account.login_max_age_days", 14)
	v.SetDefault("account.cookie_secret", "")

	v.SetDefault("store.driver", string(types.DriverSQLite))
	v.SetDefault("store.path", "publications.db")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.password", "")

	v.SetDefault("server.port", 8885)
	v.SetDefault("server.base_url", "http://localhost:8885")
	v.SetDefault("server.mode", "release")

	v.SetDefault("mail.host", "")
	v.SetDefault("mail.port", 25)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Options control where Load looks.
type Options struct {
	// File is an explicit settings file; empty searches . and ~/.config/publications.
	File string

	// EnvFile is loaded into the process environment when present (default .env).
	EnvFile string

	// SecretsDir holds one file per secret (default .secrets).
	SecretsDir string
}

// Load reads settings into a fresh viper instance, applies secrets and
// validates the result.
func Load(opts Options) (*types.Settings, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	v := viper.New()
	Defaults(v)
	bindEnv(v)

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.File != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading settings: %w", err)
		}
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("using settings file")
	}

	s, err := decode(v)
	if err != nil {
		return nil, err
	}

	dir := opts.SecretsDir
	if dir == "" {
		dir = secrets.DefaultDir
	}
	sec, err := secrets.Load(dir)
	if err != nil {
		return nil, err
	}
	if len(sec) > 0 {
		log.Debug().Strs("keys", sec.Keys()).Msg("loaded secrets")
	}
	ApplySecrets(s, sec)

	if err := Validate(s); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range bareEnv {
		// Keep the prefixed name working alongside the bare one.
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, env, prefixed)
	}
}

// decode resolves the loose env forms and unmarshals v.
func decode(v *viper.Viper) (*types.Settings, error) {
	for _, key := range durationKeys {
		raw := strings.TrimSpace(v.GetString(key))
		if secs, err := strconv.ParseFloat(raw, 64); err == nil {
			v.Set(key, time.Duration(secs*float64(time.Second)))
		}
	}
	if raw, ok := v.Get("site.xref_template_urls").(string); ok {
		urls, err := ParseTemplates(raw)
		if err != nil {
			return nil, err
		}
		v.Set("site.xref_template_urls", urls)
	}

	var s types.Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	s.Acquisition.Qualifiers = trimAll(s.Acquisition.Qualifiers)
	s.Acquisition.IdentifierPrefixes = trimAll(s.Acquisition.IdentifierPrefixes)
	lowered := make(map[string]string, len(s.Site.XrefTemplateURLs))
	for db, url := range s.Site.XrefTemplateURLs {
		lowered[strings.ToLower(db)] = url
	}
	s.Site.XrefTemplateURLs = lowered
	return &s, nil
}

// ParseTemplates reads "db=url,db=url" into a map keyed by lowercased db name.
func ParseTemplates(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		db, url, ok := strings.Cut(item, "=")
		if !ok || strings.TrimSpace(db) == "" {
			return nil, fmt.Errorf("xref template %q: want db=url", item)
		}
		out[strings.ToLower(strings.TrimSpace(db))] = strings.TrimSpace(url)
	}
	return out, nil
}

func trimAll[S ~[]string](in S) S {
	out := make(S, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ApplySecrets fills credentials that explicit configuration left empty.
func ApplySecrets(s *types.Settings, sec secrets.Secrets) {
	s.PubMed.APIKey = sec.Or(secrets.NCBIAPIKey, s.PubMed.APIKey)
	s.Account.CookieSecret = sec.Or(secrets.CookieSecret, s.Account.CookieSecret)
	s.Store.Password = sec.Or(secrets.DatabasePassword, s.Store.Password)
	s.Mail.Password = sec.Or(secrets.MailPassword, s.Mail.Password)
}
