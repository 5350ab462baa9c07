package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title string   `json:"title" validate:"required,max=5"`
	Links []string `json:"links" validate:"dive,url"`
	Kind  string   `json:"kind" validate:"oneof=qr code128"`
}

func TestStructOK(t *testing.T) {
	assert.NoError(t, Struct(sample{Title: "hi", Kind: "qr"}))
}

func TestStructUsesJSONNames(t *testing.T) {
	err := Struct(sample{Links: []string{"nope"}, Kind: "ean"})
	require.Error(t, err)
	assert.Equal(t, "kind must be one of qr code128; links[0] must be a valid url; title is required", err.Error())
}
