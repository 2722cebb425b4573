package onboarding

import "testing"

func TestNormalizeDigits(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"۰۱۲۳۴۵۶۷۸۹", "0123456789"},
		{"٠١٢٣٤٥٦٧٨٩", "0123456789"},
		{"هفته ۲۰", "هفته 20"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		if got := NormalizeDigits(tt.in); got != tt.want {
			t.Errorf("NormalizeDigits(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLeadingInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"28", 28, true},
		{"  ۲۸ سال", 28, true},
		{"15.5", 15, true},
		{"-3", -3, true},
		{"+7", 7, true},
		{"fifteen", 0, false},
		{"", 0, false},
		{"-", 0, false},
		{"1234567890", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseLeadingInt(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLeadingInt(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestMatchYesNo(t *testing.T) {
	tests := []struct {
		in   string
		want Answer
	}{
		{"بله", AnswerYes},
		{"آره، هستم", AnswerYes},
		{"خیر", AnswerNo},
		{"نه", AnswerNo},
		{"نیستم!", AnswerNo},
		{"بله نه", AnswerUnknown},
		{"حامله نیستم", AnswerNo},
		{"هستم", AnswerUnknown},
		{"فکر کنم بله", AnswerUnknown},
		{"نهال", AnswerUnknown},
		{"بلهههه", AnswerUnknown},
		{"", AnswerUnknown},
	}
	for _, tt := range tests {
		if got := MatchYesNo(tt.in); got != tt.want {
			t.Errorf("MatchYesNo(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeFoldsLettersAndSpaces(t *testing.T) {
	if got := Normalize("  مادر   شيرده "); got != "مادر شیرده" {
		t.Errorf("Normalize() = %q, want %q", got, "مادر شیرده")
	}
}
