// Package convention derives names shared by every API surface:
// pluralized routes, event names, and past-tense verb events. REST,
// GraphQL, and OpenAPI all call through here so the surfaces agree.
package convention

import "strings"

// Pluralize returns the lower-cased plural form of a noun name.
// English heuristics: "es" after s/x/z/ch/sh, consonant+"y" becomes "ies",
// otherwise append "s".
func Pluralize(word string) string {
	lower := strings.ToLower(word)
	if lower == "" {
		return ""
	}

	if strings.HasSuffix(lower, "s") ||
		strings.HasSuffix(lower, "x") ||
		strings.HasSuffix(lower, "z") ||
		strings.HasSuffix(lower, "ch") ||
		strings.HasSuffix(lower, "sh") {
		return lower + "es"
	}

	if strings.HasSuffix(lower, "y") && len(lower) > 1 && !isVowel(rune(lower[len(lower)-2])) {
		return lower[:len(lower)-1] + "ies"
	}

	return lower + "s"
}

// PastTense returns the past-tense form of a verb name, used for event
// names: "complete" becomes "completed", "archive" becomes "archived",
// "assign" becomes "assigned".
func PastTense(verb string) string {
	if verb == "" {
		return ""
	}
	if strings.HasSuffix(verb, "e") {
		return verb + "d"
	}
	return verb + "ed"
}

// EventName builds a lifecycle event name for a noun: ("Todo", "Created")
// yields "todoCreated".
func EventName(noun, suffix string) string {
	return LowerFirst(noun) + suffix
}

// VerbEventName builds the event name emitted after a custom verb:
// ("Todo", "complete") yields "todoCompleted".
func VerbEventName(noun, verb string) string {
	return LowerFirst(noun) + UpperFirst(PastTense(verb))
}

// LowerFirst lower-cases the first letter of a name.
func LowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// UpperFirst upper-cases the first letter of a name.
func UpperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	default:
		return false
	}
}
