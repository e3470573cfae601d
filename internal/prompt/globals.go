package prompt

import "regexp"

// References to project-wide values use the reserved "global" namespace
// in template expressions, e.g. {{ global.companyName }}.
var globalRefPattern = regexp.MustCompile(`\bglobal\.([A-Za-z_][A-Za-z0-9_]*)`)

// ValidateGlobalContext statically scans a template body for global.*
// references and returns the distinct keys absent from the supplied
// context, in order of first appearance. Only {{ }} and {% %} spans are
// scanned, so prose mentioning "global.something" is not a reference.
// The scan is lexical: a body that fails to parse still yields its
// global references, and a genuine parse failure surfaces later from
// the compiler.
func ValidateGlobalContext(body string, globalContext map[string]any) []string {
	seen := make(map[string]bool)
	var missing []string
	for _, span := range templateSpans(body) {
		for _, m := range globalRefPattern.FindAllStringSubmatch(span, -1) {
			key := m[1]
			if seen[key] {
				continue
			}
			seen[key] = true
			if _, ok := globalContext[key]; !ok {
				missing = append(missing, key)
			}
		}
	}
	return missing
}
