package msbuild

import (
	"strings"
)

// propertyLookup returns the value of a property and whether it is defined.
type propertyLookup func(name string) (string, bool)

// itemLookup returns the items of a type evaluated so far.
type itemLookup func(itemType string) []Item

// expandProperties replaces $(Name) references. Property functions such as
// $([System.IO.Path]::Combine(...)) and $(Name.Trim()) are left verbatim.
func expandProperties(s string, props propertyLookup) string {
	if !strings.Contains(s, "$(") {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '$' && i+1 < len(s) && s[i+1] == '(' {
			end := matchParen(s, i+1)
			if end < 0 {
				b.WriteString(s[i:])
				break
			}
			name := strings.TrimSpace(s[i+2 : end])
			if isPropertyName(name) {
				if v, ok := props(name); ok {
					b.WriteString(v)
				}
			} else {
				b.WriteString(s[i : end+1])
			}
			i = end + 1
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// expandItems replaces @(Type) and @(Type, 'separator') references with the
// includes of previously evaluated items. Transforms (@(Type->'...')) expand to
// the transform applied to %(Filename)/%(Extension)/%(Identity)/%(FullPath) only.
func expandItems(s string, items itemLookup) string {
	if !strings.Contains(s, "@(") {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '@' && i+1 < len(s) && s[i+1] == '(' {
			end := matchParen(s, i+1)
			if end < 0 {
				b.WriteString(s[i:])
				break
			}
			b.WriteString(expandItemReference(s[i+2:end], items))
			i = end + 1
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func expandItemReference(ref string, items itemLookup) string {
	sep := ";"
	transform := ""

	if idx := strings.Index(ref, "->"); idx >= 0 {
		rest := strings.TrimSpace(ref[idx+2:])
		ref = ref[:idx]
		transform, rest = takeQuoted(rest)
		if comma := strings.Index(rest, ","); comma >= 0 {
			sep, _ = takeQuoted(strings.TrimSpace(rest[comma+1:]))
		}
	} else if idx := strings.Index(ref, ","); idx >= 0 {
		sep, _ = takeQuoted(strings.TrimSpace(ref[idx+1:]))
		ref = ref[:idx]
	}

	var values []string
	for _, item := range items(strings.TrimSpace(ref)) {
		if transform == "" {
			values = append(values, item.EvaluatedInclude)
			continue
		}
		values = append(values, expandMetadata(transform, item))
	}
	return strings.Join(values, sep)
}

// expandMetadata replaces %(Name) references with metadata of item.
func expandMetadata(s string, item Item) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '%' && i+1 < len(s) && s[i+1] == '(' {
			end := matchParen(s, i+1)
			if end < 0 {
				b.WriteString(s[i:])
				break
			}
			b.WriteString(item.GetMetadataValue(strings.TrimSpace(s[i+2 : end])))
			i = end + 1
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// takeQuoted returns the content of a leading single-quoted string and the remainder.
func takeQuoted(s string) (string, string) {
	if len(s) < 2 || s[0] != '\'' {
		return s, ""
	}
	end := strings.IndexByte(s[1:], '\'')
	if end < 0 {
		return s[1:], ""
	}
	return s[1 : end+1], s[end+2:]
}

// matchParen returns the index of the parenthesis closing the one at open, or -1.
func matchParen(s string, open int) int {
	depth := 0
	inQuote := false
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\'':
			inQuote = !inQuote
		case '(':
			if !inQuote {
				depth++
			}
		case ')':
			if !inQuote {
				depth--
				if depth == 0 {
					return i
				}
			}
		}
	}
	return -1
}

func isPropertyName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r == '-' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return true
}
