// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the entities persisted in the publications store
// and the configuration structs shared across components.
package types

import "time"

// Document kinds. Every persisted entity carries one of these in its kind field.
const (
	KindPublication = "publication"
	KindAccount     = "account"
	KindLabel       = "label"
	KindJournal     = "journal"
	KindBlacklist   = "blacklist"
	KindResearcher  = "researcher"
	KindLog         = "log"
)

// TimestampLayout is the ISO 8601 form used for created, modified and login
// fields: UTC with milliseconds and a trailing Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t in TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a value written by Timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// Meta holds the fields every stored entity has. Rev is the optimistic
// concurrency token; it is carried by the document store, not the body.
type Meta struct {
	ID       string `json:"id" yaml:"id"`
	Rev      string `json:"rev,omitempty" yaml:"rev,omitempty"`
	Kind     string `json:"kind" yaml:"kind"`
	Owner    string `json:"owner,omitempty" yaml:"owner,omitempty"`
	Created  string `json:"created,omitempty" yaml:"created,omitempty"`
	Modified string `json:"modified,omitempty" yaml:"modified,omitempty"`
}

// Base returns the entity's Meta.
func (m *Meta) Base() *Meta { return m }

// Entity is implemented by every stored type through its embedded Meta.
type Entity interface {
	Base() *Meta
}
