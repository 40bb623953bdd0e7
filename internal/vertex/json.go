package vertex

import "strings"

// StripFences removes surrounding whitespace and a markdown code fence
// (```json ... ``` or ``` ... ```) from a model reply.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return strings.TrimSpace(strings.Trim(s, "`"))
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = strings.TrimSpace(s[:idx])
	}
	return s
}

// CleanJSON strips markdown code fences and surrounding prose from a model reply,
// keeping the outermost JSON object or array. Text without any JSON delimiters
// is returned trimmed so that callers still see it fail to parse.
func CleanJSON(raw string) string {
	s := StripFences(raw)

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return s
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(s, closer); end > start {
		s = s[start : end+1]
	}

	return strings.TrimSpace(s)
}
