package textnorm

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?(?:/\d+)?`)

const maxSpokenNumber = 999_999_999_999_999

var (
	unitsMasculine = [...]string{"ноль", "один", "два", "три", "четыре", "пять", "шесть", "семь", "восемь", "девять"}
	unitsFeminine  = [...]string{"ноль", "одна", "две", "три", "четыре", "пять", "шесть", "семь", "восемь", "девять"}
	teens          = [...]string{"десять", "одиннадцать", "двенадцать", "тринадцать", "четырнадцать", "пятнадцать", "шестнадцать", "семнадцать", "восемнадцать", "девятнадцать"}
	tens           = [...]string{"", "", "двадцать", "тридцать", "сорок", "пятьдесят", "шестьдесят", "семьдесят", "восемьдесят", "девяносто"}
	hundreds       = [...]string{"", "сто", "двести", "триста", "четыреста", "пятьсот", "шестьсот", "семьсот", "восемьсот", "девятьсот"}

	ordinalUnits    = [...]string{"нулевой", "первый", "второй", "третий", "четвёртый", "пятый", "шестой", "седьмой", "восьмой", "девятый"}
	ordinalTeens    = [...]string{"десятый", "одиннадцатый", "двенадцатый", "тринадцатый", "четырнадцатый", "пятнадцатый", "шестнадцатый", "семнадцатый", "восемнадцатый", "девятнадцатый"}
	ordinalTens     = [...]string{"", "", "двадцатый", "тридцатый", "сороковой", "пятидесятый", "шестидесятый", "семидесятый", "восьмидесятый", "девяностый"}
	ordinalHundreds = [...]string{"", "сотый", "двухсотый", "трёхсотый", "четырёхсотый", "пятисотый", "шестисотый", "семисотый", "восьмисотый", "девятисотый"}

	// Genitive stems fused in front of a scale ordinal: "двух" + "тысячный".
	compoundUnits    = [...]string{"", "одно", "двух", "трёх", "четырёх", "пяти", "шести", "семи", "восьми", "девяти"}
	compoundTeens    = [...]string{"десяти", "одиннадцати", "двенадцати", "тринадцати", "четырнадцати", "пятнадцати", "шестнадцати", "семнадцати", "восемнадцати", "девятнадцати"}
	compoundTens     = [...]string{"", "", "двадцати", "тридцати", "сорока", "пятидесяти", "шестидесяти", "семидесяти", "восьмидесяти", "девяноста"}
	compoundHundreds = [...]string{"", "сто", "двухсот", "трёхсот", "четырёхсот", "пятисот", "шестисот", "семисот", "восьмисот", "девятисот"}

	// fractionStems are the ordinal stems of 10^k for decimal fractions.
	fractionStems = [...]string{"", "десят", "сот", "тысячн", "десятитысячн", "стотысячн", "миллионн"}
)

type scale struct {
	one, few, many string
	ordinal        string
	feminine       bool
}

// scales are indexed by the power of a thousand.
var scales = [...]scale{
	{},
	{one: "тысяча", few: "тысячи", many: "тысяч", ordinal: "тысячный", feminine: true},
	{one: "миллион", few: "миллиона", many: "миллионов", ordinal: "миллионный"},
	{one: "миллиард", few: "миллиарда", many: "миллиардов", ordinal: "миллиардный"},
	{one: "триллион", few: "триллиона", many: "триллионов", ordinal: "триллионный"},
}

// ConvertNumbers rewrites integers, decimals and simple fractions as Russian words.
// A leading minus glued to a preceding word or digit is read as a hyphen.
func ConvertNumbers(text string) string {
	matches := numberPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var builder strings.Builder
	builder.Grow(len(text) * 2)
	last := 0
	for _, match := range matches {
		start, end := match[0], match[1]
		token := text[start:end]
		if strings.HasPrefix(token, "-") && start > 0 {
			previous, _ := utf8.DecodeLastRuneInString(text[:start])
			if unicode.IsLetter(previous) || unicode.IsDigit(previous) {
				builder.WriteString(text[last : start+1])
				start++
				token = token[1:]
				last = start
			}
		}
		builder.WriteString(text[last:start])
		builder.WriteString(SpeakNumber(token))
		last = end
	}
	builder.WriteString(text[last:])
	return builder.String()
}

// SpeakNumber converts a single numeric token. Tokens it cannot read are
// returned unchanged.
func SpeakNumber(token string) string {
	negative := strings.HasPrefix(token, "-")
	body := strings.TrimPrefix(token, "-")

	var (
		words string
		ok    bool
	)
	switch {
	case strings.Contains(body, "/"):
		words, ok = fractionWords(body)
	case strings.Contains(body, "."):
		words, ok = decimalWords(body)
	default:
		var value int64
		value, ok = parseSpoken(body)
		if ok {
			words = IntegerWords(value, false)
		}
	}
	if !ok {
		return token
	}
	if negative {
		return "минус " + words
	}
	return words
}

func parseSpoken(digits string) (int64, bool) {
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || value > maxSpokenNumber {
		return 0, false
	}
	return value, true
}

// IntegerWords spells a non-negative integer. feminine selects "одна/две"
// for the trailing units, as needed before feminine nouns.
func IntegerWords(value int64, feminine bool) string {
	if value < 0 {
		return "минус " + IntegerWords(-value, feminine)
	}
	if value == 0 {
		return unitsMasculine[0]
	}

	groups := splitThousands(value)
	words := make([]string, 0, 8)
	for power := len(groups) - 1; power >= 0; power-- {
		group := groups[power]
		if group == 0 {
			continue
		}
		groupFeminine := feminine
		if power > 0 {
			groupFeminine = scales[power].feminine
		}
		words = append(words, tripleWords(group, groupFeminine)...)
		if power > 0 {
			words = append(words, pluralForm(group, scales[power].one, scales[power].few, scales[power].many))
		}
	}
	return strings.Join(words, " ")
}

// OrdinalWords spells a non-negative integer as a masculine nominative ordinal.
func OrdinalWords(value int64) string {
	if value == 0 {
		return ordinalUnits[0]
	}
	groups := splitThousands(value)
	lowest := 0
	for lowest < len(groups) && groups[lowest] == 0 {
		lowest++
	}

	prefix := ""
	if head := value - int64(groups[lowest])*pow1000(lowest); head > 0 {
		prefix = IntegerWords(head, false) + " "
	}

	if lowest == 0 {
		return prefix + tripleOrdinal(groups[0])
	}
	count := groups[lowest]
	if count == 1 {
		return prefix + scales[lowest].ordinal
	}
	return prefix + compoundStem(count) + scales[lowest].ordinal
}

// compoundStem spells 2..999 as one genitive word, e.g. 25 -> "двадцатипяти".
func compoundStem(value int) string {
	var builder strings.Builder
	builder.WriteString(compoundHundreds[value/100])
	rest := value % 100
	if rest >= 10 && rest < 20 {
		builder.WriteString(compoundTeens[rest-10])
		return builder.String()
	}
	builder.WriteString(compoundTens[rest/10])
	builder.WriteString(compoundUnits[rest%10])
	return builder.String()
}

func fractionWords(body string) (string, bool) {
	numeratorText, denominatorText, found := strings.Cut(body, "/")
	if !found || strings.Contains(numeratorText, ".") {
		return "", false
	}
	numerator, ok := parseSpoken(numeratorText)
	if !ok {
		return "", false
	}
	denominator, ok := parseSpoken(denominatorText)
	if !ok {
		return "", false
	}
	return IntegerWords(numerator, false) + " " + OrdinalWords(denominator), true
}

func decimalWords(body string) (string, bool) {
	wholeText, fractionText, _ := strings.Cut(body, ".")
	whole, ok := parseSpoken(wholeText)
	if !ok {
		return "", false
	}
	fractionText = strings.TrimRight(fractionText, "0")
	if fractionText == "" {
		return IntegerWords(whole, false), true
	}
	if len(fractionText) >= len(fractionStems) {
		return "", false
	}
	fraction, ok := parseSpoken(fractionText)
	if !ok {
		return "", false
	}

	wholeNoun := pluralForm(int(whole%1000), "целая", "целых", "целых")
	stem := fractionStems[len(fractionText)]
	fractionNoun := pluralForm(int(fraction%1000), stem+"ая", stem+"ых", stem+"ых")
	return IntegerWords(whole, true) + " " + wholeNoun + " " + IntegerWords(fraction, true) + " " + fractionNoun, true
}

func tripleWords(value int, feminine bool) []string {
	words := make([]string, 0, 3)
	if h := value / 100; h > 0 {
		words = append(words, hundreds[h])
	}
	rest := value % 100
	switch {
	case rest >= 10 && rest < 20:
		words = append(words, teens[rest-10])
	default:
		if t := rest / 10; t >= 2 {
			words = append(words, tens[t])
		}
		if u := rest % 10; u > 0 {
			if feminine {
				words = append(words, unitsFeminine[u])
			} else {
				words = append(words, unitsMasculine[u])
			}
		}
	}
	return words
}

func tripleOrdinal(value int) string {
	h, rest := value/100, value%100
	words := make([]string, 0, 3)
	switch {
	case rest == 0:
		return ordinalHundreds[h]
	case rest >= 10 && rest < 20:
		if h > 0 {
			words = append(words, hundreds[h])
		}
		words = append(words, ordinalTeens[rest-10])
	default:
		if h > 0 {
			words = append(words, hundreds[h])
		}
		t, u := rest/10, rest%10
		if u == 0 {
			words = append(words, ordinalTens[t])
			break
		}
		if t >= 2 {
			words = append(words, tens[t])
		}
		words = append(words, ordinalUnits[u])
	}
	return strings.Join(words, " ")
}

func pluralForm(value int, one, few, many string) string {
	if mod := value % 100; mod >= 11 && mod <= 14 {
		return many
	}
	switch value % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	default:
		return many
	}
}

func splitThousands(value int64) []int {
	groups := make([]int, 0, len(scales))
	for value > 0 {
		groups = append(groups, int(value%1000))
		value /= 1000
	}
	return groups
}

func pow1000(power int) int64 {
	result := int64(1)
	for i := 0; i < power; i++ {
		result *= 1000
	}
	return result
}
