// Package i18n renders the human-readable text of error codes in the
// caller's language.  English is the fallback; Russian is supported for
// the members of staff the service was first written for.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var supported = []language.Tag{language.English, language.Russian}

// Localizer picks a language from an Accept-Language header and looks up
// message codes in it.
type Localizer struct {
	matcher language.Matcher
	cat     *catalog.Builder
}

// New builds a Localizer with the built-in catalogs.
func New() *Localizer {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range catalogs {
		for code, text := range msgs {
			// SetString only fails on a malformed tag; ours are constants.
			_ = b.SetString(tag, code, text)
		}
	}
	return &Localizer{matcher: language.NewMatcher(supported), cat: b}
}

// Match returns the best supported language for an Accept-Language value.
func (l *Localizer) Match(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := l.matcher.Match(tags...)
	return supported[idx]
}

// Text returns the message for code in tag.  Unknown codes come back
// unchanged.
func (l *Localizer) Text(tag language.Tag, code string) string {
	if !l.known(code) {
		return code
	}
	return message.NewPrinter(tag, message.Catalog(l.cat)).Sprintf(code)
}

func (l *Localizer) known(code string) bool {
	_, ok := catalogs[language.English][code]
	return ok
}
