package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/legal-intake/internal/domain"
)

// ErrMalformedResponse means the provider answered but not with the
// expected four-key object.
var ErrMalformedResponse = errors.New("classifier: malformed response")

// wireClassification uses pointers so a missing key is distinguishable from
// an empty value.
type wireClassification struct {
	Area        *string `json:"area"`
	Summary     *string `json:"summary"`
	Explanation *string `json:"explanation"`
	AnswerIA    *string `json:"answerIA"`
}

// decodeClassification turns raw model output into a classification. It
// either returns a complete result or ErrMalformedResponse.
func decodeClassification(raw string) (domain.Classification, error) {
	body := stripCodeFence(raw)
	result, err := decodeStrict(body)
	if err == nil {
		return result, nil
	}
	if normalized := normalizeEscapes(body); normalized != body {
		if result, retryErr := decodeStrict(normalized); retryErr == nil {
			return result, nil
		}
	}
	return domain.Classification{}, err
}

func decodeStrict(body string) (domain.Classification, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()

	var wire wireClassification
	if err := dec.Decode(&wire); err != nil {
		return domain.Classification{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.Classification{}, fmt.Errorf("%w: trailing data after object", ErrMalformedResponse)
	}
	if wire.Area == nil || wire.Summary == nil || wire.Explanation == nil || wire.AnswerIA == nil {
		return domain.Classification{}, fmt.Errorf("%w: missing key", ErrMalformedResponse)
	}
	area := strings.TrimSpace(*wire.Area)
	if area == "" {
		return domain.Classification{}, fmt.Errorf("%w: empty area", ErrMalformedResponse)
	}
	return domain.Classification{
		Area:        area,
		Summary:     strings.TrimSpace(*wire.Summary),
		Explanation: strings.TrimSpace(*wire.Explanation),
		AnswerIA:    strings.TrimSpace(*wire.AnswerIA),
	}, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(raw string) string {
	body := strings.TrimSpace(raw)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = strings.TrimPrefix(body, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// drop the info string, e.g. "json"
		if !strings.ContainsAny(body[:nl], "{[") {
			body = body[nl+1:]
		}
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// normalizeEscapes undoes one level of string escaping some models apply to
// the whole object, e.g. {\"area\": \"...\"}.
func normalizeEscapes(body string) string {
	replacer := strings.NewReplacer(`\n`, "\n", `\r`, "", `\t`, "\t", `\"`, `"`)
	out := strings.TrimSpace(replacer.Replace(body))
	if len(out) >= 2 && out[0] == '"' && out[len(out)-1] == '"' {
		out = strings.TrimSpace(out[1 : len(out)-1])
	}
	return out
}

// truncateForLog bounds a raw payload recorded for diagnostics.
func truncateForLog(raw string, limit int) string {
	if len(raw) <= limit {
		return raw
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut] + "...[truncated]"
}
