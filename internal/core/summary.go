package core

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// ParseLocale resolves a BCP 47 tag such as "en", "ko" or "ko-KR".
func ParseLocale(s string) (language.Tag, error) {
	tag, err := language.Parse(strings.TrimSpace(s))
	if err != nil {
		return language.Und, fmt.Errorf("parse locale %q: %w", s, err)
	}
	return tag, nil
}

func isKorean(tag language.Tag) bool {
	base, _ := tag.Base()
	return base.String() == "ko"
}

// MonthHeading returns the upper-cased month name for the main screen,
// e.g. "OCTOBER" for English and "10월" for Korean.
func MonthHeading(t time.Time, tag language.Tag) string {
	if isKorean(tag) {
		return fmt.Sprintf("%d월", int(t.Month()))
	}
	return strings.ToUpper(t.Month().String())
}

// DetailTitle returns the detail screen title, e.g. "8월 이용내역 상세".
func DetailTitle(t time.Time) string {
	return fmt.Sprintf("%d월 이용내역 상세", int(t.Month()))
}
