package reminders

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// RenderTemplate substitutes {{name}}, {{service}}, {{date}}, {{time}} and
// {{reason}} placeholders with the supplied values. Placeholders with no
// value become empty strings, never literal braces.
func RenderTemplate(template string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		return values[key]
	})
}
