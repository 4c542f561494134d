// Package lang decides which of the supported response languages a piece of
// user input is written in. Every locale decision in voxchat goes through
// Detect or DetectTranscript.
package lang

import (
	"regexp"
	"strings"
)

type Locale string

const (
	English Locale = "en"
	French  Locale = "fr"
)

// Default is used whenever detection cannot run.
const Default = English

var frenchRe = regexp.MustCompile(
	`[àáâãäçèéêëìíîïñòóôõöùúûüý]|\b(je|tu|il|nous|vous|ils|le|la|les|un|une|des|du|de|à|au|aux|bonjour|salut)\b`,
)

// transcriptWords are the markers counted in speech transcripts.
var transcriptWords = map[string]struct{}{
	"bonjour": {},
	"merci":   {},
	"oui":     {},
	"non":     {},
	"je":      {},
	"tu":      {},
	"nous":    {},
	"vous":    {},
}

// Detect classifies typed text. Any French diacritic or whole-word function
// word anywhere in the text makes it French.
func Detect(text string) Locale {
	if text == "" {
		return Default
	}
	if frenchRe.MatchString(strings.ToLower(text)) {
		return French
	}
	return English
}

// DetectTranscript classifies a speech transcript by counting whitespace
// separated tokens found in the transcript marker set.
func DetectTranscript(transcript string) Locale {
	n := 0
	for _, w := range strings.Fields(strings.ToLower(transcript)) {
		if _, ok := transcriptWords[w]; ok {
			n++
		}
	}
	if n > 0 {
		return French
	}
	return English
}

var labels = map[Locale]string{
	English: "English",
	French:  "French",
}

// Label returns the display name of a locale code, or the code itself when
// it is not one of the supported locales.
func Label(code Locale) string {
	if l, ok := labels[code]; ok {
		return l
	}
	return string(code)
}

func (l Locale) String() string { return string(l) }
