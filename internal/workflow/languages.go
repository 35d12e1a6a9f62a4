package workflow

import (
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"
)

// DefaultSupportedLanguages are the repository languages the bundled CodeQL
// workflow can analyze, in GitHub's linguist naming.
var DefaultSupportedLanguages = []string{
	"TypeScript",
	"JavaScript",
	"Ruby",
	"Python",
	"Kotlin",
	"Go",
	"C++",
	"C#",
	"C",
}

// LanguageSet is an ordered list of distinct language names.
type LanguageSet []string

// FromBytes orders the keys of GitHub's language map the way the API does:
// most bytes first, ties broken by name.
func FromBytes(byLang map[string]int) LanguageSet {
	out := make(LanguageSet, 0, len(byLang))
	for lang := range byLang {
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool {
		if byLang[out[i]] != byLang[out[j]] {
			return byLang[out[i]] > byLang[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

// Filter keeps the languages present in supported, preserving order. A nil
// or empty supported list keeps everything.
func (l LanguageSet) Filter(supported []string) LanguageSet {
	if len(supported) == 0 {
		return append(LanguageSet(nil), l...)
	}
	allowed := sets.New[string](supported...)
	out := make(LanguageSet, 0, len(l))
	for _, lang := range l {
		if allowed.Has(lang) {
			out = append(out, lang)
		}
	}
	return out
}
