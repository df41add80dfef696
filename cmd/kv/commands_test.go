package kv

import (
	"reflect"
	"testing"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		fields  []string
		command string
		key     string
		args    []any
	}{
		{[]string{"get", "foo"}, "get", "foo", nil},
		{[]string{"set", "foo", "bar", "EX", "10"}, "set", "foo", []any{"bar", "EX", "10"}},
		{[]string{"debug", "object", "foo"}, "debug object", "foo", nil},
		{[]string{"DEBUG", "OBJECT", "foo"}, "DEBUG OBJECT", "foo", nil},
		{[]string{"config", "get", "maxmemory"}, "config get", "maxmemory", nil},
		{[]string{"debug"}, "debug", "", nil},
		{[]string{"select", "2"}, "select", "2", nil},
		{[]string{"get", "object"}, "get", "object", nil},
	}
	for _, tt := range tests {
		command, key, args := splitCommand(tt.fields)
		if command != tt.command || key != tt.key || !reflect.DeepEqual(args, tt.args) {
			t.Errorf("splitCommand(%q) = %q, %q, %v; want %q, %q, %v",
				tt.fields, command, key, args, tt.command, tt.key, tt.args)
		}
	}
}
