package lang_test

import (
	"testing"

	"voxchat/pkg/lang"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want lang.Locale
	}{
		{"empty", "", lang.English},
		{"plain english", "Hello, how are you today?", lang.English},
		{"greeting bonjour", "bonjour", lang.French},
		{"greeting salut", "Salut tout le monde", lang.French},
		{"function word", "je veux voir", lang.French},
		{"uppercase function word", "NOUS partons", lang.French},
		{"diacritic only", "café", lang.French},
		{"a grave", "rendez-vous à midi", lang.French},
		{"word inside word", "unless the desk is under it", lang.English},
		{"prefix of marker", "jest tutorial", lang.English},
		{"punctuation boundary", "ok, vous?", lang.French},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lang.Detect(tt.in); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDetectTranscript(t *testing.T) {
	tests := []struct {
		in   string
		want lang.Locale
	}{
		{"", lang.English},
		{"Hello, how are you today?", lang.English},
		{"Bonjour, comment allez-vous aujourd'hui?", lang.English},
		{"bonjour comment allez vous", lang.French},
		{"  MERCI  ", lang.French},
		{"oui", lang.French},
		{"nonsense words only", lang.English},
	}

	for _, tt := range tests {
		if got := lang.DetectTranscript(tt.in); got != tt.want {
			t.Errorf("DetectTranscript(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDetectIsDeterministic(t *testing.T) {
	in := "Je suis là"
	first := lang.Detect(in)
	for i := 0; i < 10; i++ {
		if got := lang.Detect(in); got != first {
			t.Fatalf("Detect changed result on call %d: %q != %q", i, got, first)
		}
	}
}

func TestLabel(t *testing.T) {
	if got := lang.Label(lang.English); got != "English" {
		t.Errorf("Label(en) = %q", got)
	}
	if got := lang.Label(lang.French); got != "French" {
		t.Errorf("Label(fr) = %q", got)
	}
	if got := lang.Label("de"); got != "de" {
		t.Errorf("Label(de) = %q, want passthrough", got)
	}
}
