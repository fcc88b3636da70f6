package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/legal-intake/internal/domain"
)

func TestDecodeClassification(t *testing.T) {
	want := domain.Classification{Area: "Direito Civil", Summary: "s", Explanation: "e", AnswerIA: "a"}

	cases := map[string]string{
		"plain":        `{"area":"Direito Civil","summary":"s","explanation":"e","answerIA":"a"}`,
		"json fence":   "```json\n{\"area\":\"Direito Civil\",\"summary\":\"s\",\"explanation\":\"e\",\"answerIA\":\"a\"}\n```",
		"bare fence":   "```\n{\"area\":\"Direito Civil\",\"summary\":\"s\",\"explanation\":\"e\",\"answerIA\":\"a\"}```",
		"escaped":      `{\"area\":\"Direito Civil\",\"summary\":\"s\",\"explanation\":\"e\",\"answerIA\":\"a\"}`,
		"quoted":       `"{\"area\":\"Direito Civil\",\"summary\":\"s\",\"explanation\":\"e\",\"answerIA\":\"a\"}"`,
		"padded space": "  \n{\"area\":\" Direito Civil \",\"summary\":\"s\",\"explanation\":\"e\",\"answerIA\":\"a\"}\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := decodeClassification(raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDecodeClassificationKeepsNewlinesInsideValues(t *testing.T) {
	got, err := decodeClassification(`{"area":"Outro","summary":"linha 1\nlinha 2","explanation":"","answerIA":""}`)
	require.NoError(t, err)
	assert.Equal(t, "linha 1\nlinha 2", got.Summary)
}

func TestDecodeClassificationRejects(t *testing.T) {
	cases := map[string]string{
		"not json":     "not json at all",
		"empty":        "",
		"missing key":  `{"area":"Direito Civil","summary":"s","explanation":"e"}`,
		"extra key":    `{"area":"Direito Civil","summary":"s","explanation":"e","answerIA":"a","confidence":1}`,
		"empty area":   `{"area":"  ","summary":"s","explanation":"e","answerIA":"a"}`,
		"wrong type":   `{"area":"Direito Civil","summary":1,"explanation":"e","answerIA":"a"}`,
		"truncated":    `{"area":"Direito Civil","summary":"s"`,
		"trailing":     `{"area":"Direito Civil","summary":"s","explanation":"e","answerIA":"a"} and more`,
		"two objects":  `{"area":"A","summary":"","explanation":"","answerIA":""}{"area":"B"}`,
		"array":        `[{"area":"Direito Civil"}]`,
		"null area":    `{"area":null,"summary":"s","explanation":"e","answerIA":"a"}`,
		"prose prefix": `Claro! {"area":"Direito Civil","summary":"s","explanation":"e","answerIA":"a"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeClassification(raw)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "short", truncateForLog("short", 10))

	long := strings.Repeat("á", 10)
	out := truncateForLog(long, 5)
	assert.True(t, strings.HasSuffix(out, "...[truncated]"))
	assert.Equal(t, "áá...[truncated]", out)
}
