package shard

import "strings"

// lineBreaks end a line for hash tag matching
const lineBreaks = "\n\r\u2028\u2029"

// HashTag returns the part of key used for routing.
//
// The tag is taken from the first line of the key that holds a '}' preceded by a '{'.
// Within that line it runs from the last '{' before the last '}' up to that '}', so
// "a{x}b{y}c" routes by "y" and keys sharing a tag land on the same node. A brace pair
// never spans a line break. Keys without a pair, or whose tag is empty, route by the
// whole key.
func HashTag(key string) string {
	lines := []string{key}
	if strings.ContainsAny(key, lineBreaks) {
		lines = strings.FieldsFunc(key, isLineBreak)
	}
	for _, line := range lines {
		if tag, ok := lineTag(line); ok {
			if tag == "" {
				return key
			}
			return tag
		}
	}
	return key
}

// lineTag reports the tag of a single line and whether the line holds a brace pair
func lineTag(line string) (string, bool) {
	end := strings.LastIndexByte(line, '}')
	if end < 0 {
		return "", false
	}
	start := strings.LastIndexByte(line[:end], '{')
	if start < 0 {
		return "", false
	}
	return line[start+1 : end], true
}

func isLineBreak(r rune) bool {
	return strings.ContainsRune(lineBreaks, r)
}
