// Package i18n holds the static message tables of the supported languages.
// The language is always passed in explicitly.
package i18n

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

type Language string

const (
	English    Language = "en"
	Portuguese Language = "pt"
	Spanish    Language = "es"

	Default = English
)

// Supported lists languages in matcher preference order.
var Supported = []Language{English, Portuguese, Spanish}

var (
	tags    = []language.Tag{language.English, language.Portuguese, language.Spanish}
	matcher = language.NewMatcher(tags)
)

// Match picks the best supported language for an Accept-Language header or
// a bare code such as "pt-BR". Unknown input yields fallback.
func Match(raw string, fallback Language) Language {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return normalize(fallback)
	}
	desired, _, err := language.ParseAcceptLanguage(raw)
	if err != nil || len(desired) == 0 {
		return normalize(fallback)
	}
	_, index, confidence := matcher.Match(desired...)
	if confidence == language.No {
		return normalize(fallback)
	}
	return Supported[index]
}

func normalize(lang Language) Language {
	for _, l := range Supported {
		if l == lang {
			return l
		}
	}
	return Default
}

// T returns the message for key, falling back to English and then to the
// key itself.
func T(lang Language, key string) string {
	if msg, ok := tables[normalize(lang)][key]; ok {
		return msg
	}
	if msg, ok := tables[Default][key]; ok {
		return msg
	}
	return key
}

// FormatAmount renders amount with two decimals and the grouping rules of
// lang, e.g. 1,234.50 in English and 1.234,50 in Portuguese.
func FormatAmount(lang Language, amount decimal.Decimal) string {
	tag := tags[0]
	for i, l := range Supported {
		if l == normalize(lang) {
			tag = tags[i]
		}
	}
	p := message.NewPrinter(tag)
	return p.Sprint(number.Decimal(amount.Round(2).InexactFloat64(), number.Scale(2)))
}
