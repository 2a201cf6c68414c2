package textnorm

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

//go:embed dictionaries/default.json
var defaultDictionaryJSON []byte

// Dictionary holds the lookup tables of the dictionary stages. Keys are
// matched case-insensitively and stored lower-case.
type Dictionary struct {
	Abbreviations       map[string]string `json:"abbreviations"`
	AbbreviationLetters map[string]string `json:"abbreviation_letters"`
	Symbols             map[string]string `json:"symbols"`
	LatinLetters        map[string]string `json:"latin_letters"`
}

var dictionarySections = []string{"abbreviations", "abbreviation_letters", "symbols", "latin_letters"}

// DefaultDictionary returns a fresh copy of the embedded tables.
func DefaultDictionary() Dictionary {
	var dict Dictionary
	if err := json.Unmarshal(defaultDictionaryJSON, &dict); err != nil {
		panic(fmt.Sprintf("textnorm: embedded dictionary is invalid: %v", err))
	}
	return dict.normalized()
}

func (d Dictionary) normalized() Dictionary {
	return Dictionary{
		Abbreviations:       lowerKeys(d.Abbreviations),
		AbbreviationLetters: lowerKeys(d.AbbreviationLetters),
		Symbols:             maps.Clone(nonNil(d.Symbols)),
		LatinLetters:        lowerKeys(d.LatinLetters),
	}
}

func (d *Dictionary) section(name string) map[string]string {
	switch name {
	case "abbreviations":
		return d.Abbreviations
	case "abbreviation_letters":
		return d.AbbreviationLetters
	case "symbols":
		return d.Symbols
	default:
		return d.LatinLetters
	}
}

// LoadDictionary reads an override file (any format viper understands) and
// merges it over the embedded defaults. An empty path yields the defaults.
func LoadDictionary(path string) (Dictionary, *viper.Viper, error) {
	dict := DefaultDictionary()
	if strings.TrimSpace(path) == "" {
		return dict, nil, nil
	}

	// "::" keeps symbol keys such as "." from being read as nesting.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return dict, nil, fmt.Errorf("read dictionary override %s: %w", path, err)
	}
	return mergeOverride(dict, v), v, nil
}

func mergeOverride(dict Dictionary, v *viper.Viper) Dictionary {
	for _, name := range dictionarySections {
		if !v.IsSet(name) {
			continue
		}
		target := dict.section(name)
		for key, value := range v.GetStringMapString(name) {
			if name != "symbols" {
				key = strings.ToLower(key)
			}
			if value == "" {
				delete(target, key)
				continue
			}
			target[key] = value
		}
	}
	return dict
}

// WatchDictionary loads the override file into normalizer and keeps it in
// sync with later edits. Reload failures keep the previous tables.
func WatchDictionary(path string, normalizer *Normalizer, logger *log.Logger) error {
	dict, v, err := LoadDictionary(path)
	if err != nil {
		return err
	}
	normalizer.Swap(dict)
	if v == nil {
		return nil
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		normalizer.Swap(mergeOverride(DefaultDictionary(), v))
		if logger != nil {
			logger.Info("normalization dictionary reloaded", "path", event.Name)
		}
	})
	v.WatchConfig()
	return nil
}

func lowerKeys(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[strings.ToLower(key)] = value
	}
	return out
}

func nonNil(in map[string]string) map[string]string {
	if in == nil {
		return map[string]string{}
	}
	return in
}
