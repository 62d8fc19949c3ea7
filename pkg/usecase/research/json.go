package research

import "strings"

// cleanJSONResponse strips markdown code fences and slices out the first
// balanced JSON object or array, salvaging model output that wraps JSON in
// prose or ```json blocks.
func cleanJSONResponse(response string) string {
	response = removeCodeFences(response)

	if start := strings.IndexAny(response, "{["); start >= 0 {
		response = response[start:]
		if end := findJSONEnd(response); end >= 0 {
			response = response[:end+1]
		}
	}

	return response
}

func removeCodeFences(s string) string {
	for {
		start := strings.Index(s, "```")
		if start < 0 {
			return s
		}
		end := strings.Index(s[start+3:], "```")
		if end < 0 {
			return s
		}
		end += start + 3

		content := s[start+3 : end]
		// Drop the language tag (e.g. "json") on the opening fence.
		if nl := strings.Index(content, "\n"); nl >= 0 {
			content = content[nl+1:]
		}
		s = s[:start] + content + s[end+3:]
	}
}

// findJSONEnd returns the index of the character closing the first JSON
// value, honoring strings and escapes.
func findJSONEnd(s string) int {
	depth := 0
	inString := false
	escape := false

	for i, c := range s {
		if escape {
			escape = false
			continue
		}
		switch {
		case c == '\\':
			escape = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
