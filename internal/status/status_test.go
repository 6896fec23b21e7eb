package status

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_EmptyTests(t *testing.T) {
	doc, err := Parse([]byte(`{"tests":{}}`), "test")
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
}

func TestParse_PendingAndPassing(t *testing.T) {
	doc, err := Parse([]byte(`{"tests":{"mod::test_a":"passing","mod::test_b":"pending"}}`), "test")
	require.NoError(t, err)

	st, ok := doc.Get("mod::test_a")
	require.True(t, ok)
	assert.Equal(t, Passing, st)

	st, ok = doc.Get("mod::test_b")
	require.True(t, ok)
	assert.Equal(t, Pending, st)
}

func TestParse_SchemaKeyAccepted(t *testing.T) {
	doc, err := Parse([]byte(`{"$schema":"https://example.com/test-status.v1.json","tests":{"a":"passing"}}`), "test")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Len())
}

func TestParse_SpecialCharactersInIdentifier(t *testing.T) {
	id := "mod::sub::test with spaces & colons: yes"
	doc, err := Parse([]byte(`{"tests":{"`+id+`":"pending"}}`), "test")
	require.NoError(t, err)

	st, ok := doc.Get(id)
	require.True(t, ok)
	assert.Equal(t, Pending, st)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"invalid json", `{ not valid json }`, "invalid character"},
		{"unknown field", `{"tests":{"a":"passing"},"future_field":"whatever"}`, "unknown field"},
		{"missing tests", `{}`, `missing "tests"`},
		{"null tests", `{"tests":null}`, `missing "tests"`},
		{"unknown state", `{"tests":{"a":"flaky"}}`, "unknown test state"},
		{"non-string state", `{"tests":{"a":1}}`, "must be a string"},
		{"trailing data", `{"tests":{}} {"tests":{}}`, "unexpected data"},
		{"array", `[]`, "cannot unmarshal"},
		{"empty", ``, "EOF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), "fixture.json")
			require.Error(t, err)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "fixture.json", perr.Source)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "malformed status file fixture.json")
		})
	}
}

func TestParse_NormalizationCollision(t *testing.T) {
	// Precomposed U+00E9 and decomposed e+U+0301 normalize to the same NFC form.
	input := "{\"tests\":{\"caf\u00e9\":\"pending\",\"cafe\u0301\":\"passing\"}}"
	_, err := Parse([]byte(input), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate test identifier")
}

func TestParse_NormalizesIdentifiers(t *testing.T) {
	doc, err := Parse([]byte("{\"tests\":{\"cafe\u0301\":\"pending\"}}"), "test")
	require.NoError(t, err)

	_, ok := doc.Get("caf\u00e9")
	assert.True(t, ok, "decomposed identifier should be stored in NFC form")
}

func TestMarshal_SortedIndentedWithNewline(t *testing.T) {
	doc := FromMap(map[string]TestState{
		"b_test": Pending,
		"a_test": Passing,
	})

	data, err := Marshal(doc)
	require.NoError(t, err)

	expected := "{\n  \"tests\": {\n    \"a_test\": \"passing\",\n    \"b_test\": \"pending\"\n  }\n}\n"
	assert.Equal(t, expected, string(data))
}

func TestMarshal_EmptyDocument(t *testing.T) {
	data, err := Marshal(NewDocument())
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"tests\": {}\n}\n", string(data))

	doc, err := Parse(data, "roundtrip")
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	doc := FromMap(map[string]TestState{"a<b>&c": Pending})
	data, err := Marshal(doc)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `"a<b>&c"`), "got %s", data)
}

func TestMarshal_NeverEmitsSchema(t *testing.T) {
	doc, err := Parse([]byte(`{"$schema":"x","tests":{"a":"passing"}}`), "test")
	require.NoError(t, err)

	data, err := Marshal(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "$schema")
}

func TestDocument_CloneIsIndependent(t *testing.T) {
	doc := FromMap(map[string]TestState{"a": Pending})
	clone := doc.Clone()
	clone.Set("a", Passing)
	clone.Set("b", Pending)

	st, _ := doc.Get("a")
	assert.Equal(t, Pending, st)
	assert.Equal(t, 1, doc.Len())
	assert.False(t, doc.Equal(clone))
}

func TestDocument_CountsAndIDs(t *testing.T) {
	doc := FromMap(map[string]TestState{
		"c": Passing,
		"a": Pending,
		"b": Pending,
	})

	pending, passing := doc.Counts()
	assert.Equal(t, 2, pending)
	assert.Equal(t, 1, passing)
	assert.Equal(t, []string{"a", "b", "c"}, doc.IDs())
}

func TestHash_StableAndContentAddressed(t *testing.T) {
	a := FromMap(map[string]TestState{"x": Pending, "y": Passing})
	b := FromMap(map[string]TestState{"y": Passing, "x": Pending})
	c := FromMap(map[string]TestState{"x": Passing, "y": Passing})

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	hc, err := Hash(c)
	require.NoError(t, err)

	assert.Len(t, ha, 64)
	assert.Equal(t, ha, hb)
	assert.NotEqual(t, ha, hc)
}
