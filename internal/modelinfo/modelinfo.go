// Package modelinfo guesses model metadata from a file name.
//
// This is a heuristic over the base name only. The GGUF header is never read,
// so a renamed file reports whatever its new name suggests.
package modelinfo

import (
	"path/filepath"
	"strings"
)

// Unknown marks a field the heuristics could not determine.
const Unknown = "Unknown"

// Info is the derived metadata for one model file.
type Info struct {
	Parameters  string
	ContextSize string
	ModelType   string
}

// Known reports whether v carries a real value.
func Known(v string) bool { return v != "" && v != Unknown }

// Rule matches when any of its substrings occurs in the lowercased base name.
type Rule struct {
	Contains []string
	Info     Info
}

// Rules are evaluated in order; the first match wins.
var Rules = []Rule{
	{Contains: []string{"tinyllama"}, Info: Info{Parameters: "1.1B", ContextSize: "2048", ModelType: "LLaMA"}},
	{Contains: []string{"7b"}, Info: Info{Parameters: "7B", ContextSize: "4096", ModelType: Unknown}},
	{Contains: []string{"13b"}, Info: Info{Parameters: "13B", ContextSize: "4096", ModelType: Unknown}},
	{Contains: []string{"70b"}, Info: Info{Parameters: "70B", ContextSize: "4096", ModelType: Unknown}},
}

// Extract classifies a path or file name using Rules.
func Extract(name string) Info {
	return ExtractWith(Rules, name)
}

// ExtractWith classifies name against an explicit rule table.
func ExtractWith(rules []Rule, name string) Info {
	base := strings.ToLower(filepath.Base(name))
	for _, r := range rules {
		for _, s := range r.Contains {
			if strings.Contains(base, strings.ToLower(s)) {
				return r.Info
			}
		}
	}
	return Info{Parameters: Unknown, ContextSize: Unknown, ModelType: Unknown}
}
