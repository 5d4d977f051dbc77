// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/publications/pkg/types"
)

// writeValue prints v as indented JSON, or YAML when asYAML is set.
func writeValue(w io.Writer, v any, asYAML bool) error {
	if asYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// summary is the one-line form of a publication.
func summary(p *types.Publication) string {
	ids := []string{p.ID}
	if p.PMID != "" {
		ids = append(ids, "pmid:"+p.PMID)
	}
	if p.DOI != "" {
		ids = append(ids, "doi:"+p.DOI)
	}
	return fmt.Sprintf("%s  %s  %s", strings.Join(ids, " "), p.Year(), p.Title)
}

// parseLabels reads VALUE or VALUE=QUALIFIER flags.
func parseLabels(flags []string) types.Labels {
	out := make(types.Labels, len(flags))
	for _, f := range flags {
		value, qualifier, _ := strings.Cut(f, "=")
		if value = strings.TrimSpace(value); value != "" {
			out[value] = strings.TrimSpace(qualifier)
		}
	}
	return out
}
