package generation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualityValidator_Check(t *testing.T) {
	t.Parallel()

	v := NewQualityValidator("Premium")
	raw := json.RawMessage(`{
		"meta_suggestions": [
			{"h1": "Boiler repair in Leeds", "seo_description": "Look no further! We delve into every boiler."},
			{"h1": "Sin lugar a dudas, el mejor fontanero", "seo_title": "Servicio premium"}
		],
		"count": 2
	}`)

	warnings := v.Check(raw)
	assert.ElementsMatch(t, []QualityWarning{
		{Path: "$.meta_suggestions[0].seo_description", Phrase: "delve"},
		{Path: "$.meta_suggestions[0].seo_description", Phrase: "look no further"},
		{Path: "$.meta_suggestions[1].h1", Phrase: "sin lugar a dudas"},
		{Path: "$.meta_suggestions[1].seo_title", Phrase: "premium"},
	}, warnings)
}

func TestQualityValidator_WholeWordsOnly(t *testing.T) {
	t.Parallel()

	v := NewQualityValidator()
	assert.Empty(t, v.Check(json.RawMessage(`{"h1": "Delvecchio Plumbing and seamlessly fitted pipes"}`)))
	assert.Len(t, v.Check(json.RawMessage(`["A seamless, cutting-edge install"]`)), 2)
}

func TestQualityValidator_InvalidJSON(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewQualityValidator().Check(json.RawMessage(`{oops`)))
}
