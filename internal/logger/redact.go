package logger

import "regexp"

var redactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`),
	regexp.MustCompile(`(?i)((token|secret|passw(or)?d|api[_-]?key)[\s:=]+)([^;,\s]{4,})`),
	regexp.MustCompile(`(?i)(://[^:/\s]+:)([^@\s]+)(@)`),
}

// Redact masks bearer tokens, key=value secrets and URL passwords so
// remote errors and target URLs can be logged safely.
func Redact(input string) string {
	if input == "" {
		return input
	}
	input = redactPatterns[0].ReplaceAllString(input, "${1}[REDACTED]")
	input = redactPatterns[1].ReplaceAllString(input, "${1}[REDACTED]")
	return redactPatterns[2].ReplaceAllString(input, "${1}[REDACTED]${3}")
}
