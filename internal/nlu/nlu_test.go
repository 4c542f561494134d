package nlu

import (
	"reflect"
	"strings"
	"testing"

	"voxchat/pkg/lang"
)

func TestClassifyPriority(t *testing.T) {
	tests := []struct {
		in   string
		want Topic
	}{
		{"hello there", TopicGreeting},
		{"HEY", TopicGreeting},
		{"goodbye", TopicFarewell},
		{"au revoir", TopicFarewell},
		{"I need support", TopicHelp},
		{"please analyze image", TopicAnalysis},
		// greeting is declared before help, so it wins when both match
		{"hi, help me", TopicGreeting},
		// substring matching: "this" contains "hi"
		{"check this", TopicGreeting},
		{"xyzxyzabcde", TopicNone},
		{"", TopicNone},
	}

	for _, tt := range tests {
		if got := Classify(tt.in); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateGreeting(t *testing.T) {
	en := Generate("hello", lang.English)
	if en.Text != "Hello! I'm your AI assistant. How can I help you today?" {
		t.Errorf("english greeting = %q", en.Text)
	}
	if en.Confidence != MatchedConfidence {
		t.Errorf("confidence = %v, want %v", en.Confidence, MatchedConfidence)
	}
	wantActions := []string{"Start a new project", "View tutorials"}
	if !reflect.DeepEqual(en.SuggestedActions, wantActions) {
		t.Errorf("actions = %v, want %v", en.SuggestedActions, wantActions)
	}

	fr := Generate("bonjour", lang.French)
	if fr.Text != "Bonjour! Je suis votre assistant IA. Comment puis-je vous aider aujourd'hui?" {
		t.Errorf("french greeting = %q", fr.Text)
	}
	if fr.SuggestedActions[0] != "Démarrer un nouveau projet" {
		t.Errorf("french action = %q", fr.SuggestedActions[0])
	}
}

func TestGenerateFarewellHasNoActions(t *testing.T) {
	r := Generate("bye", lang.English)
	if r.SuggestedActions == nil || len(r.SuggestedActions) != 0 {
		t.Fatalf("farewell actions = %#v, want empty non-nil list", r.SuggestedActions)
	}
	if r.Confidence != MatchedConfidence {
		t.Errorf("confidence = %v", r.Confidence)
	}
}

func TestGenerateTopicActions(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"help", []string{"Show documentation", "Contact support"}},
		{"analyze image", []string{"Upload data", "View reports"}},
	}
	for _, tt := range tests {
		got := Generate(tt.in, lang.English).SuggestedActions
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Generate(%q) actions = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGenerateContextual(t *testing.T) {
	r := Generate("xyzxyzabcde", lang.English)
	want := "I understand you're interested in xyzxyzabcde. Could you provide more details about what you'd like to know?"
	if r.Text != want {
		t.Errorf("text = %q, want %q", r.Text, want)
	}
	if r.Confidence != ContextualConfidence {
		t.Errorf("confidence = %v, want %v", r.Confidence, ContextualConfidence)
	}
	wantActions := []string{"Tell me more", "Show examples", "Explain differently"}
	if !reflect.DeepEqual(r.SuggestedActions, wantActions) {
		t.Errorf("actions = %v", r.SuggestedActions)
	}
}

func TestGenerateContextualDefaultTopic(t *testing.T) {
	r := Generate("", lang.English)
	if !strings.Contains(r.Text, "interested in this topic.") {
		t.Errorf("text = %q, want fallback topic", r.Text)
	}

	r = Generate("a bc def", lang.French)
	if !strings.Contains(r.Text, "vous intéressez à this topic.") {
		t.Errorf("text = %q", r.Text)
	}
	if r.SuggestedActions[0] != "Dites-m'en plus" {
		t.Errorf("french actions = %v", r.SuggestedActions)
	}
}

func TestGenerateContextualUsesLowercasedWord(t *testing.T) {
	r := Generate("Quantum Computing", lang.English)
	if !strings.Contains(r.Text, "interested in quantum.") {
		t.Errorf("text = %q", r.Text)
	}
}

func TestGenerateVoiceMessage(t *testing.T) {
	r := Generate("voice message", lang.English)
	if !strings.Contains(r.Text, "interested in voice.") {
		t.Errorf("text = %q", r.Text)
	}
}

func TestGenerateIsPure(t *testing.T) {
	a := Generate("tell me about rockets", lang.French)
	b := Generate("tell me about rockets", lang.French)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("Generate not deterministic: %#v vs %#v", a, b)
	}

	// mutating a returned slice must not leak into later calls
	a.SuggestedActions[0] = "changed"
	c := Generate("tell me about rockets", lang.French)
	if c.SuggestedActions[0] == "changed" {
		t.Fatal("Generate shares its actions slice between calls")
	}
}
