// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by the BibSource adapters.
type HTTPConfig struct {
	// Timeout bounds each upstream call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with upstream requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// PubMedConfig holds settings for the PubMed EFetch adapter.
type PubMedConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Delay is the minimum interval between consecutive calls (default 0.5s).
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`

	// APIKey is the optional NCBI API key appended as api_key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// CrossrefConfig holds settings for the Crossref works adapter.
type CrossrefConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Delay is the minimum interval between consecutive calls (default 0.5s).
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`

	// Mailto identifies the caller to Crossref's polite pool.
	Mailto string `json:"mailto,omitempty" yaml:"mailto,omitempty" mapstructure:"mailto"`
}

// AcquisitionConfig holds settings for the acquisition pipeline.
type AcquisitionConfig struct {
	// FetchedLimit caps the number of identifiers in one bulk request (default 10).
	FetchedLimit int `json:"fetched_limit" yaml:"fetched_limit" mapstructure:"fetched_limit"`

	// BulkPause is the pause between consecutive items of a bulk request.
	BulkPause time.Duration `json:"bulk_pause" yaml:"bulk_pause" mapstructure:"bulk_pause"`

	// AcquirePeriod is how long an edit lock lasts (default 20m).
	AcquirePeriod time.Duration `json:"acquire_period" yaml:"acquire_period" mapstructure:"acquire_period"`

	// Qualifiers is the ordered label qualifier enumeration.
	Qualifiers Qualifiers `json:"qualifiers" yaml:"qualifiers" mapstructure:"qualifiers"`

	// IdentifierPrefixes lists the input prefixes stripped before classification.
	IdentifierPrefixes []string `json:"identifier_prefixes" yaml:"identifier_prefixes" mapstructure:"identifier_prefixes"`
}

// AccountConfig holds settings for account and session handling.
type AccountConfig struct {
	MinPasswordLength int `json:"min_password_length" yaml:"min_password_length" mapstructure:"min_password_length"`
	LoginMaxAgeDays   int `json:"login_max_age_days" yaml:"login_max_age_days" mapstructure:"login_max_age_days"`

	// CookieSecret signs session tokens.
	CookieSecret string `json:"-" yaml:"-" mapstructure:"cookie_secret"`
}

// LoginMaxAge returns the session lifetime.
func (c AccountConfig) LoginMaxAge() time.Duration {
	return time.Duration(c.LoginMaxAgeDays) * 24 * time.Hour
}

// StoreDriver selects the document store backend.
type StoreDriver string

const (
	DriverMemory   StoreDriver = "memory"
	DriverSQLite   StoreDriver = "sqlite"
	DriverPostgres StoreDriver = "postgres"
)

// StoreConfig selects and locates the document store.
type StoreConfig struct {
	Driver StoreDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// Path is the SQLite database file.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// DSN is the Postgres connection string.
	DSN string `json:"-" yaml:"-" mapstructure:"dsn"`

	// Password overrides the password in DSN.
	Password string `json:"-" yaml:"-" mapstructure:"password"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port    int    `json:"port" yaml:"port" mapstructure:"port"`
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Mode    string `json:"mode" yaml:"mode" mapstructure:"mode"`
}

// MailConfig configures the SMTP mailer. An empty Host disables mail.
type MailConfig struct {
	Host     string `json:"host" yaml:"host" mapstructure:"host"`
	Port     int    `json:"port" yaml:"port" mapstructure:"port"`
	Username string `json:"username" yaml:"username" mapstructure:"username"`
	Password string `json:"-" yaml:"-" mapstructure:"password"`
	From     string `json:"from" yaml:"from" mapstructure:"from"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// SiteConfig holds display settings.
type SiteConfig struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// XrefTemplateURLs maps a lowercased xref db name to a URL template
	// with one %s for the key.
	XrefTemplateURLs map[string]string `json:"xref_template_urls" yaml:"xref_template_urls" mapstructure:"xref_template_urls"`
}

// Settings is the complete runtime configuration.
type Settings struct {
	Site        SiteConfig        `json:"site" yaml:"site" mapstructure:"site"`
	PubMed      PubMedConfig      `json:"pubmed" yaml:"pubmed" mapstructure:"pubmed"`
	Crossref    CrossrefConfig    `json:"crossref" yaml:"crossref" mapstructure:"crossref"`
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition" mapstructure:"acquisition"`
	Account     AccountConfig     `json:"account" yaml:"account" mapstructure:"account"`
	Store       StoreConfig       `json:"store" yaml:"store" mapstructure:"store"`
	Server      ServerConfig      `json:"server" yaml:"server" mapstructure:"server"`
	Mail        MailConfig        `json:"mail" yaml:"mail" mapstructure:"mail"`
	Log         LogConfig         `json:"log" yaml:"log" mapstructure:"log"`
}
