package onboarding

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldRune maps Persian and Arabic-Indic digits to ASCII and the Arabic
// Kaf/Yeh code points that some keyboards emit to their Persian forms.
func foldRune(r rune) rune {
	switch {
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r == 'ك':
		return 'ک'
	case r == 'ي', r == 'ى':
		return 'ی'
	}
	return r
}

func digitRune(r rune) rune {
	switch {
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	}
	return r
}

// Normalize prepares free text for matching against fixed answers: NFC,
// folded letters and digits, trimmed and with runs of whitespace collapsed.
func Normalize(input string) string {
	out, _, err := transform.String(transform.Chain(norm.NFC, runes.Map(foldRune)), input)
	if err != nil {
		out = input
	}
	return strings.Join(strings.Fields(out), " ")
}

// NormalizeDigits rewrites Persian and Arabic-Indic digits as ASCII digits
// and leaves every other rune untouched.
func NormalizeDigits(input string) string {
	out, _, err := transform.String(runes.Map(digitRune), input)
	if err != nil {
		return input
	}
	return out
}

// ParseLeadingInt reads an optionally signed integer from the start of the
// trimmed input, ignoring whatever follows it ("۲۸ سال" is 28).
func ParseLeadingInt(input string) (int, bool) {
	s := strings.TrimSpace(NormalizeDigits(input))
	negative := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		negative = s[0] == '-'
		s = s[1:]
	}
	value, digits := 0, 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		if digits == 9 {
			return 0, false
		}
		value = value*10 + int(r-'0')
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if negative {
		value = -value
	}
	return value, true
}

type Answer int

const (
	AnswerUnknown Answer = iota
	AnswerYes
	AnswerNo
)

var (
	yesTokens = map[string]bool{"بله": true, "آره": true, "اره": true}
	noTokens  = map[string]bool{"خیر": true, "نه": true, "نیستم": true}
	// fillers may surround a yes/no token without changing the answer.
	fillers = map[string]bool{"من": true, "هستم": true, "حامله": true, "باردار": true}
)

// MatchYesNo reads a short yes/no answer. Every word must be a yes/no token
// or a filler; input containing any other word, both kinds of token, or
// neither is AnswerUnknown.
func MatchYesNo(input string) Answer {
	words := strings.FieldsFunc(Normalize(input), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r)
	})
	yes, no := false, false
	for _, word := range words {
		switch {
		case yesTokens[word]:
			yes = true
		case noTokens[word]:
			no = true
		case !fillers[word]:
			return AnswerUnknown
		}
	}
	switch {
	case yes && !no:
		return AnswerYes
	case no && !yes:
		return AnswerNo
	}
	return AnswerUnknown
}
