package lstore

import (
	"math"
	"strconv"
	"strings"
)

// parseInt parses a base 10 signed 64 bit integer argument
func parseInt(b []byte) (int64, bool) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, err == nil
}

// parseFloat parses a float argument, accepting inf, +inf and -inf
func parseFloat(b []byte) (float64, bool) {
	switch strings.ToLower(string(b)) {
	case "inf", "+inf":
		return math.Inf(1), true
	case "-inf":
		return math.Inf(-1), true
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// formatFloat returns the shortest representation of f
func formatFloat(f float64) []byte {
	switch {
	case math.IsInf(f, 1):
		return []byte("inf")
	case math.IsInf(f, -1):
		return []byte("-inf")
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64))
}

// option returns the lower case spelling of an option argument
func option(b []byte) string {
	return strings.ToLower(string(b))
}

// normRange converts inclusive start/stop indexes that may be negative (counting from
// the end) to a valid [start, stop] range over n elements. ok is false for empty ranges.
func normRange(start, stop int64, n int) (int, int, bool) {
	length := int64(n)
	if start < 0 {
		start += length
	}
	if stop < 0 {
		stop += length
	}
	if start < 0 {
		start = 0
	}
	if stop >= length {
		stop = length - 1
	}
	if start > stop || start >= length {
		return 0, 0, false
	}
	return int(start), int(stop), true
}

// keysOf converts raw key arguments to strings
func keysOf(args [][]byte) []string {
	keys := make([]string, len(args))
	for i, arg := range args {
		keys[i] = string(arg)
	}
	return keys
}

// clone returns a copy of b that never aliases the caller's buffer
func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// formatInt returns the decimal representation of n
func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
