package textnorm

import (
	"regexp"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"
	"unicode/utf8"
)

var (
	unknownAbbreviation = regexp.MustCompile(`^[A-Z]{2,}[0-9]*$`)
	spaceBeforePunct    = regexp.MustCompile(` +([.,!?;:])`)
)

type compiledDictionary struct {
	dict       Dictionary
	symbolKeys []string
}

func compile(dict Dictionary) *compiledDictionary {
	keys := make([]string, 0, len(dict.Symbols))
	for key := range dict.Symbols {
		if key != "" {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return &compiledDictionary{dict: dict, symbolKeys: keys}
}

// Normalizer runs the dictionary stages. Tables can be swapped while
// requests are in flight.
type Normalizer struct {
	current atomic.Pointer[compiledDictionary]
}

func NewNormalizer(dict Dictionary) *Normalizer {
	n := &Normalizer{}
	n.Swap(dict)
	return n
}

func (n *Normalizer) Swap(dict Dictionary) {
	n.current.Store(compile(dict))
}

// Dictionary returns the tables currently in use.
func (n *Normalizer) Dictionary() Dictionary {
	return n.current.Load().dict
}

// Abbreviations expands known abbreviations and spells unknown upper-case
// ones letter by letter. Words are runs of letters and digits.
func (n *Normalizer) Abbreviations(text string) string {
	dict := n.current.Load().dict
	return mapWords(text, func(word string) string {
		if replacement, ok := dict.Abbreviations[strings.ToLower(word)]; ok {
			return replacement
		}
		if unknownAbbreviation.MatchString(word) {
			return spellLetters(word, dict.AbbreviationLetters)
		}
		return word
	})
}

func spellLetters(word string, letters map[string]string) string {
	parts := make([]string, 0, len(word))
	digits := ""
	for _, r := range word {
		if unicode.IsDigit(r) {
			digits += string(r)
			continue
		}
		if name, ok := letters[strings.ToLower(string(r))]; ok {
			parts = append(parts, name)
		}
	}
	if digits != "" {
		parts = append(parts, digits)
	}
	if len(parts) == 0 {
		return word
	}
	return strings.Join(parts, " ")
}

// Symbols replaces dictionary symbols with words, longest key first.
func (n *Normalizer) Symbols(text string) string {
	compiled := n.current.Load()
	if len(compiled.symbolKeys) == 0 {
		return text
	}
	replaced := false
	for _, key := range compiled.symbolKeys {
		if !strings.Contains(text, key) {
			continue
		}
		text = strings.ReplaceAll(text, key, " "+compiled.dict.Symbols[key]+" ")
		replaced = true
	}
	if !replaced {
		return text
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = collapseBlanks(line)
		lines[i] = spaceBeforePunct.ReplaceAllString(line, "$1")
	}
	return strings.Join(lines, "\n")
}

// LatinLetters transliterates remaining latin letters one by one. An
// upper-case letter capitalizes its replacement.
func (n *Normalizer) LatinLetters(text string) string {
	letters := n.current.Load().dict.LatinLetters
	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range text {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			builder.WriteRune(r)
			continue
		}
		replacement, ok := letters[string(unicode.ToLower(r))]
		if !ok {
			builder.WriteRune(r)
			continue
		}
		if unicode.IsUpper(r) {
			first, size := utf8.DecodeRuneInString(replacement)
			replacement = string(unicode.ToUpper(first)) + replacement[size:]
		}
		builder.WriteString(replacement)
	}
	return builder.String()
}

func mapWords(text string, fn func(string) string) string {
	var builder strings.Builder
	builder.Grow(len(text))
	start := -1
	for i, r := range text {
		inWord := unicode.IsLetter(r) || unicode.IsDigit(r)
		switch {
		case inWord && start < 0:
			start = i
		case !inWord && start >= 0:
			builder.WriteString(fn(text[start:i]))
			start = -1
			builder.WriteRune(r)
		case !inWord:
			builder.WriteRune(r)
		}
	}
	if start >= 0 {
		builder.WriteString(fn(text[start:]))
	}
	return builder.String()
}
