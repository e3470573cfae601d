package prompt

import (
	"regexp"
	"strings"
)

// spanPattern matches expression and tag spans. A span left unterminated
// at end of body still matches, so scans never depend on a parseable
// template.
var spanPattern = regexp.MustCompile(`(?s)\{\{.*?(?:\}\}|$)|\{%.*?(?:%\}|$)`)

var (
	identRefPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*`)
	quotedPattern   = regexp.MustCompile(`"[^"]*"|'[^']*'`)
	filterPattern   = regexp.MustCompile(`\|\s*[A-Za-z_][A-Za-z0-9_]*`)
)

// Tag names, operators, and literals that never name a context variable.
// "global" is excluded here because the global context validator owns
// that namespace.
var templateKeywords = map[string]bool{
	"if": true, "elif": true, "else": true, "endif": true,
	"for": true, "endfor": true, "in": true, "empty": true,
	"include": true, "extends": true, "block": true, "endblock": true,
	"set": true, "with": true, "endwith": true,
	"macro": true, "endmacro": true, "import": true,
	"filter": true, "endfilter": true,
	"comment": true, "endcomment": true,
	"verbatim": true, "endverbatim": true,
	"autoescape": true, "endautoescape": true,
	"spaceless": true, "endspaceless": true,
	"ifchanged": true, "endifchanged": true,
	"cycle": true, "firstof": true, "now": true,
	"templatetag": true, "widthratio": true, "lorem": true, "ssi": true,
	"and": true, "or": true, "not": true,
	"true": true, "false": true, "True": true, "False": true,
	"none": true, "None": true, "nil": true,
	"forloop": true, "global": true,
}

// templateSpans returns every {{ }} and {% %} span of body, in order.
func templateSpans(body string) []string {
	return spanPattern.FindAllString(body, -1)
}

// undefinedRefs lexically scans expression spans for root identifiers
// absent from the render context, so a reference to a never-declared
// variable fails compilation instead of rendering to nothing. Loop
// variables introduced by for tags count as defined for the rest of the
// body. Distinct names, order of first appearance.
func undefinedRefs(body string, context map[string]any) []string {
	local := map[string]bool{}
	seen := map[string]bool{}
	var missing []string

	for _, span := range templateSpans(body) {
		inner := strings.Trim(span, "{}%-")
		inner = quotedPattern.ReplaceAllString(inner, "")
		inner = filterPattern.ReplaceAllString(inner, "")

		if strings.HasPrefix(span, "{%") {
			fields := strings.Fields(inner)
			if len(fields) > 0 && fields[0] == "for" {
				for _, f := range fields[1:] {
					if f == "in" {
						break
					}
					for _, name := range strings.Split(f, ",") {
						if name = strings.TrimSpace(name); name != "" {
							local[name] = true
						}
					}
				}
			}
		}

		for _, ident := range identRefPattern.FindAllString(inner, -1) {
			root := ident
			if i := strings.IndexByte(root, '.'); i >= 0 {
				root = root[:i]
			}
			if templateKeywords[root] || local[root] || seen[root] {
				continue
			}
			seen[root] = true
			if _, ok := context[root]; !ok {
				missing = append(missing, root)
			}
		}
	}
	return missing
}
