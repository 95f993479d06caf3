package oracle

import (
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Payload is the loosely typed object extracted from an oracle reply.
type Payload map[string]any

// fenceRE matches a code fence and, when a line break or space follows, its
// language tag.
var fenceRE = regexp.MustCompile("```(?:[A-Za-z0-9_+-]*\\s)?")

// ExtractPayload pulls a JSON object out of free-form model output. Code
// fences are removed wherever they appear, then the text between the first
// '{' and the last '}' is decoded. It never fails loudly: on any problem it
// returns an empty payload and false.
func ExtractPayload(raw string) (Payload, bool) {
	cleaned := fenceRE.ReplaceAllString(raw, "")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		log.Debug().Int("length", len(raw)).Msg("Oracle reply contains no JSON object")
		return Payload{}, false
	}

	dec := json.NewDecoder(strings.NewReader(cleaned[start : end+1]))
	dec.UseNumber()

	var p map[string]any
	if err := dec.Decode(&p); err != nil {
		log.Debug().Err(err).Msg("Oracle reply is not valid JSON")
		return Payload{}, false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		log.Debug().Msg("Oracle reply has trailing data after the JSON object")
		return Payload{}, false
	}
	return Payload(p), true
}
