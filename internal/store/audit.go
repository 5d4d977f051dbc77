// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"

	"github.com/pdiddy/publications/internal/docstore"
	"github.com/pdiddy/publications/pkg/types"
)

// RedactionMarker replaces the value of redacted fields in log entries.
const RedactionMarker = "******"

// redacted lists the fields whose values never reach the log.
var redacted = map[string]bool{
	"password": true,
	"code":     true,
	"api_key":  true,
}

// unlogged fields change on every write and carry no information.
var unlogged = map[string]bool{
	"modified": true,
	"rev":      true,
}

func fields(body []byte) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return nil
	}
	return m
}

// diff returns the top-level fields of after that differ from before,
// with removed fields mapped to nil. Redacted fields are masked.
func diff(before, after map[string]json.RawMessage) map[string]any {
	changed := make(map[string]any)
	for k, v := range after {
		if unlogged[k] {
			continue
		}
		if old, ok := before[k]; ok && jsonEqual(old, v) {
			continue
		}
		changed[k] = logValue(k, v)
	}
	for k := range before {
		if unlogged[k] {
			continue
		}
		if _, ok := after[k]; !ok {
			changed[k] = nil
		}
	}
	return changed
}

func logValue(field string, raw json.RawMessage) any {
	if redacted[field] {
		return RedactionMarker
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func jsonEqual(a, b json.RawMessage) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

// appendLog writes a log entry. A failure is logged and does not undo
// the save it describes.
func (s *Store) appendLog(ctx context.Context, docID, docKind, actor string, changed map[string]any) {
	entry := types.LogEntry{
		Meta: types.Meta{
			ID:       s.newID(),
			Kind:     types.KindLog,
			Modified: s.Timestamp(),
		},
		Doc:     docID,
		DocKind: docKind,
		Account: actor,
		Changed: changed,
	}
	body, err := json.Marshal(entry)
	if err == nil {
		_, err = s.docs.Put(ctx, docstore.Document{ID: entry.ID, Kind: types.KindLog, Body: body})
	}
	if err != nil {
		s.logger.Error().Err(err).Str("doc", docID).Msg("appending log entry")
	}
}

func (s *Store) deleteLogs(ctx context.Context, docID string) error {
	rows, err := s.docs.Query(ctx, docstore.Exact(IndexLogDoc, docID))
	if err != nil {
		return err
	}
	for _, id := range docstore.IDs(rows) {
		doc, err := s.docs.Get(ctx, id)
		if err != nil {
			continue
		}
		if err := s.docs.Delete(ctx, id, doc.Rev); err != nil {
			return err
		}
	}
	return nil
}

// LogsForDoc returns the log entries of a document, oldest first.
func (s *Store) LogsForDoc(ctx context.Context, docID string) ([]*types.LogEntry, error) {
	logs, err := loadMany[types.LogEntry](ctx, s, types.KindLog, docstore.Exact(IndexLogDoc, docID))
	if err != nil {
		return nil, err
	}
	sortLogs(logs)
	return logs, nil
}

// LogsForAccount returns the log entries written by an account, oldest first.
func (s *Store) LogsForAccount(ctx context.Context, email string) ([]*types.LogEntry, error) {
	logs, err := loadMany[types.LogEntry](ctx, s, types.KindLog, docstore.Exact(IndexLogAccount, email))
	if err != nil {
		return nil, err
	}
	sortLogs(logs)
	return logs, nil
}

// RecentLogs returns up to limit log entries, newest first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]*types.LogEntry, error) {
	q := docstore.All(IndexLogModified)
	q.Descending = true
	q.Limit = limit
	return loadMany[types.LogEntry](ctx, s, types.KindLog, q)
}

func sortLogs(logs []*types.LogEntry) {
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Modified < logs[j].Modified
	})
}
