package domain

import (
	"fmt"
	"sort"
	"strings"
)

// FilterSet names the extensions and content types one side of an
// admission rule matches. Content types may end in "/*" to match a
// whole major type.
type FilterSet struct {
	Extensions   []string `json:"extensions" yaml:"extensions" mapstructure:"extensions"`
	ContentTypes []string `json:"content_types" yaml:"content_types" mapstructure:"content_types"`
}

// FilterRules is an admission rule set. Deny always wins over allow;
// an empty allow dimension places no restriction on that dimension.
// MaxSize <= 0 means unbounded.
type FilterRules struct {
	Allow   FilterSet `json:"allow" yaml:"allow" mapstructure:"allow"`
	Deny    FilterSet `json:"deny" yaml:"deny" mapstructure:"deny"`
	MaxSize int64     `json:"max_size" yaml:"max_size" mapstructure:"max_size"`
}

// NormalizeFilterRules canonicalizes a rule set: extensions are lowercased
// and stripped of leading dots, content types are lowercased and stripped
// of parameters, blanks are dropped, entries are sorted and deduplicated,
// and a negative max size becomes unbounded. Malformed entries widen the
// rules instead of failing; every widening is reported so the caller can
// log it. A nil rule set stays nil and allows everything.
func NormalizeFilterRules(rules *FilterRules) (*FilterRules, []string) {
	if rules == nil {
		return nil, nil
	}

	var warnings []string

	normalized := &FilterRules{MaxSize: rules.MaxSize}
	normalized.Allow.Extensions, warnings = normalizeExtensions(rules.Allow.Extensions, "allow", warnings)
	normalized.Deny.Extensions, warnings = normalizeExtensions(rules.Deny.Extensions, "deny", warnings)
	normalized.Allow.ContentTypes, warnings = normalizeContentTypes(rules.Allow.ContentTypes, "allow", warnings)
	normalized.Deny.ContentTypes, warnings = normalizeContentTypes(rules.Deny.ContentTypes, "deny", warnings)

	if normalized.MaxSize < 0 {
		warnings = append(warnings, fmt.Sprintf("negative max size %d treated as unbounded", normalized.MaxSize))
		normalized.MaxSize = 0
	}

	return normalized, warnings
}

// Allows reports whether the candidate passes the admission rules.
// Pure predicate: server-side enforcement and pre-flight checks must
// call the same code so the two can never disagree.
func (r *FilterRules) Allows(info FileInfo) bool {
	if r == nil {
		return true
	}

	ext := info.Ext()
	contentType := canonicalContentType(info.ContentType)

	if containsString(r.Deny.Extensions, ext) {
		return false
	}
	if matchesContentType(r.Deny.ContentTypes, contentType) {
		return false
	}
	if r.MaxSize > 0 && info.Size > r.MaxSize {
		return false
	}
	if len(r.Allow.Extensions) > 0 && !containsString(r.Allow.Extensions, ext) {
		return false
	}
	if len(r.Allow.ContentTypes) > 0 && !matchesContentType(r.Allow.ContentTypes, contentType) {
		return false
	}

	return true
}

// normalizeExtensions lowercases, trims dots, drops blanks, sorts, dedupes.
func normalizeExtensions(exts []string, side string, warnings []string) ([]string, []string) {
	var out []string
	for _, ext := range exts {
		cleaned := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if cleaned == "" {
			warnings = append(warnings, fmt.Sprintf("dropped empty %s extension entry", side))
			continue
		}
		out = append(out, cleaned)
	}
	return dedupeSorted(out), warnings
}

// normalizeContentTypes canonicalizes patterns, drops blanks, sorts, dedupes.
func normalizeContentTypes(types []string, side string, warnings []string) ([]string, []string) {
	var out []string
	for _, contentType := range types {
		cleaned := canonicalContentType(contentType)
		if cleaned == "" {
			warnings = append(warnings, fmt.Sprintf("dropped empty %s content type entry", side))
			continue
		}
		out = append(out, cleaned)
	}
	return dedupeSorted(out), warnings
}

// canonicalContentType lowercases and strips parameters such as charset.
func canonicalContentType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// matchesContentType reports whether the candidate matches any pattern.
// A pattern of the form "image/*" matches every subtype of its major type.
func matchesContentType(patterns []string, contentType string) bool {
	for _, pattern := range patterns {
		if pattern == contentType {
			return true
		}
		if major, ok := strings.CutSuffix(pattern, "/*"); ok && strings.HasPrefix(contentType, major+"/") {
			return true
		}
	}
	return false
}

// containsString reports set membership on a small sorted slice.
func containsString(set []string, s string) bool {
	for _, member := range set {
		if member == s {
			return true
		}
	}
	return false
}

// dedupeSorted sorts the slice and removes adjacent duplicates in place.
func dedupeSorted(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	sort.Strings(values)
	out := values[:1]
	for _, v := range values[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
