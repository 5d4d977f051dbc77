// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"sort"
	"strings"

	"github.com/pdiddy/publications/internal/normalize"
	"github.com/pdiddy/publications/internal/store"
	"github.com/pdiddy/publications/pkg/types"
)

// TitleWords is the number of longest title words compared.
const TitleWords = 4

// DuplicateGroup holds publications whose longest title words coincide.
type DuplicateGroup struct {
	Key          string
	Publications []*types.Publication
}

// Duplicates groups the publications sharing the same TitleWords longest
// ASCII-lowercased title words. The heuristic produces false positives
// and is meant for review only.
func Duplicates(ctx context.Context, s *store.Store) ([]DuplicateGroup, error) {
	pubs, err := s.AllPublications(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string][]*types.Publication)
	for _, p := range pubs {
		key := strings.Join(normalize.LongestWords(p.Title, TitleWords), " ")
		if key == "" {
			continue
		}
		byKey[key] = append(byKey[key], p)
	}

	var groups []DuplicateGroup
	for key, members := range byKey {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i].Created < members[j].Created })
		groups = append(groups, DuplicateGroup{Key: key, Publications: members})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups, nil
}
