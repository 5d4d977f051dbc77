// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/pdiddy/publications/pkg/types"
)

// Validate checks s for values the components cannot run with.
func Validate(s *types.Settings) error {
	return validation.Errors{
		"pubmed": validation.ValidateStruct(&s.PubMed,
			validation.Field(&s.PubMed.Delay, validation.Min(time.Duration(0))),
			validation.Field(&s.PubMed.Timeout, validation.Required),
		),
		"crossref": validation.ValidateStruct(&s.Crossref,
			validation.Field(&s.Crossref.Delay, validation.Min(time.Duration(0))),
			validation.Field(&s.Crossref.Timeout, validation.Required),
			validation.Field(&s.Crossref.Mailto, is.EmailFormat),
		),
		"acquisition": validation.ValidateStruct(&s.Acquisition,
			validation.Field(&s.Acquisition.FetchedLimit, validation.Required, validation.Min(1)),
			validation.Field(&s.Acquisition.BulkPause, validation.Min(time.Duration(0))),
			validation.Field(&s.Acquisition.AcquirePeriod, validation.Required),
			validation.Field(&s.Acquisition.Qualifiers, validation.By(distinct)),
		),
		"account": validation.ValidateStruct(&s.Account,
			validation.Field(&s.Account.MinPasswordLength, validation.Required, validation.Min(1)),
			validation.Field(&s.Account.LoginMaxAgeDays, validation.Required, validation.Min(1)),
		),
		"store": validation.ValidateStruct(&s.Store,
			validation.Field(&s.Store.Driver, validation.Required,
				validation.In(types.DriverMemory, types.DriverSQLite, types.DriverPostgres)),
			validation.Field(&s.Store.Path,
				validation.When(s.Store.Driver == types.DriverSQLite, validation.Required)),
			validation.Field(&s.Store.DSN,
				validation.When(s.Store.Driver == types.DriverPostgres, validation.Required)),
		),
		"server": validation.ValidateStruct(&s.Server,
			validation.Field(&s.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
			validation.Field(&s.Server.BaseURL, is.URL),
			validation.Field(&s.Server.Mode, validation.In("debug", "release", "test")),
		),
		"mail": validation.ValidateStruct(&s.Mail,
			validation.Field(&s.Mail.From, validation.When(s.Mail.Host != "", validation.Required, is.EmailFormat)),
			validation.Field(&s.Mail.Port, validation.Min(0), validation.Max(65535)),
		),
		"log": validation.ValidateStruct(&s.Log,
			validation.Field(&s.Log.Level, validation.In("trace", "debug", "info", "warn", "error", "fatal", "disabled")),
			validation.Field(&s.Log.Format, validation.In("console", "json")),
		),
	}.Filter()
}

// distinct rejects a qualifier enumeration with repeated values.
func distinct(value any) error {
	qs, _ := value.(types.Qualifiers)
	seen := make(map[string]bool, len(qs))
	for _, q := range qs {
		if seen[q] {
			return validation.NewError("validation_distinct", "qualifiers must be distinct")
		}
		seen[q] = true
	}
	return nil
}
