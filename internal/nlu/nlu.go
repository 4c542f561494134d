// Package nlu classifies user input into a closed set of topics and builds
// the assistant's canned, localized reply for it.
package nlu

import (
	"strings"
	"unicode/utf8"

	"voxchat/pkg/lang"
)

const (
	MatchedConfidence    = 0.9
	ContextualConfidence = 0.7
)

type Response struct {
	Text             string   `json:"text"`
	Confidence       float64  `json:"confidence"`
	SuggestedActions []string `json:"suggested_actions"`
}

// Classify returns the first topic, in priority order, that has a keyword
// occurring anywhere in the input. TopicNone means nothing matched.
func Classify(input string) Topic {
	if r, ok := match(strings.ToLower(input)); ok {
		return r.topic
	}
	return TopicNone
}

func match(normalized string) (topicRule, bool) {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(normalized, kw) {
				return r, true
			}
		}
	}
	return topicRule{}, false
}

// Generate builds the reply to input in the given locale. The result depends
// only on its arguments.
func Generate(input string, locale lang.Locale) Response {
	normalized := strings.ToLower(input)

	if r, ok := match(normalized); ok {
		return Response{
			Text:             pick(r.reply, locale),
			Confidence:       MatchedConfidence,
			SuggestedActions: pickAll(r.actions, locale),
		}
	}

	return Response{
		Text:             strings.Replace(pick(contextual.reply, locale), "{topic}", subject(normalized), 1),
		Confidence:       ContextualConfidence,
		SuggestedActions: pickAll(contextual.actions, locale),
	}
}

// subject picks the first word longer than four characters as a stand-in
// for what the user is talking about.
func subject(normalized string) string {
	for _, w := range strings.Fields(normalized) {
		if utf8.RuneCountInString(w) > 4 {
			return w
		}
	}
	return fallbackTopic
}
