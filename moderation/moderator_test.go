package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const mask = '*'

// Words are picked so none of them hides inside an ordinary word.
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mod, err := NewModerator([]string{"scam", "counterfeit", "venmo"}, mask, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "single word keeps spacing",
			input:    "this listing is a scam",
			expected: "this listing is a ****",
			words:    []string{"scam"},
		},
		{
			name:     "repeated word",
			input:    "scam scam",
			expected: "**** ****",
			words:    []string{"scam", "scam"},
		},
		{
			name:     "leet speak and inner punctuation",
			input:    "pay by V.3.n.m.0 only",
			expected: "pay by ********* only",
			words:    []string{"venmo"},
		},
		{
			name:     "uppercase with separators",
			input:    "S-C-A-M, a C.O.U.N.T.E.R.F.E.I.T bag",
			expected: "*******, a ********************* bag",
			words:    []string{"scam", "counterfeit"},
		},
		{
			name:     "accents stay untouched",
			input:    "Vélo d'été, pas une scam",
			expected: "Vélo d'été, pas une ****",
			words:    []string{"scam"},
		},
		{
			name:     "clean message",
			input:    "Is the desk still available?",
			expected: "Is the desk still available?",
		},
		{
			name:     "empty message",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content)
			req.Equal(tt.words, words)
		})
	}
}

func TestModerator_Ignores_Words_Without_Letters(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a list mixing punctuation only entries and a real word
	mod, err := NewModerator([]string{"...", ",,,", "", "scam"}, mask, log)
	req.NoError(err)

	// Then the real word is still masked
	content, words := mod.Censor("not a scam")
	req.Equal("not a ****", content)
	req.Equal([]string{"scam"}, words)

	// Then punctuation is left alone
	content, words = mod.Censor("Hello ...")
	req.Equal("Hello ...", content)
	req.Nil(words)
}

func TestNewModerator_Requires_A_Word(t *testing.T) {
	_, err := NewModerator([]string{"...", " "}, mask, logs.GetLoggerFromLevel(slog.LevelDebug))
	require.Error(t, err)
}

func TestParseWords(t *testing.T) {
	require.Equal(t, []string{"scam", "venmo"}, ParseWords(" scam, ,venmo,"))
	require.Empty(t, ParseWords(""))
}
