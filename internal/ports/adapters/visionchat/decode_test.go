package visionchat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jetteezhou/PhysVLM-Intent/internal/types"
)

func TestExtractDescriptions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "two descriptions",
			content: "<description>red mug</description><description>wooden table</description>",
			want:    []string{"red mug", "wooden table"},
		},
		{
			name:    "surrounding prose",
			content: "Here you go:\n<description>a blue pen</description>\nThanks!",
			want:    []string{"a blue pen"},
		},
		{
			name:    "more than two preserved in order",
			content: "<description>a</description><description>b</description><description>c</description>",
			want:    []string{"a", "b", "c"},
		},
		{
			name:    "no match yields empty",
			content: "the model refused to answer",
			want:    []string{},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ExtractDescriptions(tc.content))
		})
	}
}

func TestDecodePointResponse(t *testing.T) {
	t.Parallel()

	resp, err := DecodePointResponse(`{"point": [500, 750], "label": "mug"}`)
	require.NoError(t, err)
	assert.Equal(t, [2]int{500, 750}, resp.Point)
	assert.Equal(t, "mug", resp.Label)
}

func TestDecodePointResponse_StripsCodeFences(t *testing.T) {
	t.Parallel()

	content := "```json\n{\"point\": [10, 990], \"label\": \"cup\"}\n```"
	resp, err := DecodePointResponse(content)
	require.NoError(t, err)
	assert.Equal(t, [2]int{10, 990}, resp.Point)
	assert.Equal(t, "cup", resp.Label)
}

func TestDecodePointResponse_SurroundingProse(t *testing.T) {
	t.Parallel()

	content := "Sure! The object is here:\n{\"point\": [0, 1000],\n \"label\": \"edge\"}\nLet me know."
	resp, err := DecodePointResponse(content)
	require.NoError(t, err)
	assert.Equal(t, [2]int{0, 1000}, resp.Point)
}

func TestDecodePointResponse_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		content string
	}{
		{name: "no json object", content: "I cannot find the object."},
		{name: "malformed json", content: `{"point": [500, "label": }`},
		{name: "wrong point arity", content: `{"point": [500], "label": "x"}`},
		{name: "component above range", content: `{"point": [1500, 200], "label": "x"}`},
		{name: "negative component", content: `{"point": [-10, 200], "label": "x"}`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodePointResponse(tc.content)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrParse)
		})
	}
}

func TestDecodePointResponse_ErrorCarriesRawText(t *testing.T) {
	t.Parallel()

	_, err := DecodePointResponse("the object is near the sink")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "the object is near the sink")
}

func TestRedactSecrets(t *testing.T) {
	t.Parallel()

	in := `{"error":"Authorization: Bearer sk-abc123 rejected","api_key": "sk-abc123"}`
	out := redactSecrets(in, "sk-abc123")
	assert.NotContains(t, out, "sk-abc123")
	assert.Contains(t, out, "[REDACTED]")
}
