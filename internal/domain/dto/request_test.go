package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchPlayersRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr error
	}{
		{"valid", "mahomes", nil},
		{"empty", "", ErrQueryRequired},
		{"blank", "   ", ErrQueryRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := SearchPlayersRequest{Query: tt.query}
			assert.Equal(t, tt.wantErr, r.Validate())
		})
	}
}

func TestInvalidateCacheRequest(t *testing.T) {
	tests := []struct {
		name     string
		tags     string
		wantTags []string
		wantErr  error
	}{
		{"single", "rosters", []string{"rosters"}, nil},
		{"several with spaces", " rosters , team:12 ", []string{"rosters", "team:12"}, nil},
		{"blanks dropped", "players,,", []string{"players"}, nil},
		{"empty", "", nil, ErrTagsRequired},
		{"only commas", ",,", nil, ErrTagsRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := InvalidateCacheRequest{Tags: tt.tags}
			assert.Equal(t, tt.wantTags, r.TagList())
			assert.Equal(t, tt.wantErr, r.Validate())
		})
	}
}

func TestProxyRequest_Validate(t *testing.T) {
	assert.NoError(t, (&ProxyRequest{URL: "https://site.api.espn.com/x"}).Validate())
	assert.Equal(t, ErrURLRequired, (&ProxyRequest{}).Validate())
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "q: must not be empty", ErrQueryRequired.Error())
}
