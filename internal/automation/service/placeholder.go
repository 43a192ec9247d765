package service

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.]+)\s*\}\}`)

// substitute replaces {{dot.path}} tokens with values resolved from the
// trigger payload. Tokens that do not resolve stay verbatim.
func substitute(text string, data map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(token string) string {
		path := placeholderPattern.FindStringSubmatch(token)[1]
		value, ok := resolvePath(data, path)
		if !ok {
			return token
		}
		return asString(value)
	})
}
