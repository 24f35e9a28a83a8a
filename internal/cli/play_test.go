package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/openface/internal/api/request"
)

func TestSplitCards(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"As", []string{"As"}},
		{"As,Kd", []string{"As", "Kd"}},
		{"As, Kd  7h", []string{"As", "Kd", "7h"}},
		{",,", nil},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, splitCards(tt.input))
		})
	}
}

func TestBuildPlacements(t *testing.T) {
	req, err := buildPlacements("2s", "7h,7c", "As,Ad", " 3h ")
	require.NoError(t, err)

	assert.Equal(t, []request.Placement{
		{Card: "2s", Row: "top"},
		{Card: "7h", Row: "middle"},
		{Card: "7c", Row: "middle"},
		{Card: "As", Row: "bottom"},
		{Card: "Ad", Row: "bottom"},
	}, req.Placements)
	assert.Equal(t, "3h", req.Discard)

	_, err = buildPlacements("", "", "", "3h")
	assert.Error(t, err)
}

func TestRoomPath(t *testing.T) {
	assert.Equal(t, "/api/v1/rooms/ABCDEF", roomPath("abcdef"))
	assert.Equal(t, "/api/v1/rooms/ABCDEF/bots/bot-1", roomPath("ABCDEF", "bots", "bot-1"))
}
