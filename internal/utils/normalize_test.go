package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldContains(t *testing.T) {
	tests := []struct {
		haystack, needle string
		want             bool
	}{
		{"Downtown Gym Name", "gym", true},
		{"Downtown Gym Name", "GYM NAME", true},
		{"Straße Boulders", "STRASSE", true},
		{"Café Crimps", "café", true},
		{"Lead Cave", "boulder", false},
		{"anything", "", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FoldContains(tt.haystack, tt.needle), "%q in %q", tt.needle, tt.haystack)
	}
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "movement-climbing-fitness", Slugify("  Movement Climbing & Fitness "))
	assert.Equal(t, "cafe-crag", Slugify("Café_Crag"))
	assert.Equal(t, "", Slugify("   "))
}

func TestMentions(t *testing.T) {
	got := Mentions("beta from @Alex_H and @sam. thanks @alex_h, mail me a@b.com")
	assert.Equal(t, []string{"alex_h", "sam"}, got)
	assert.Nil(t, Mentions("no handles here"))
}

func TestTrimMax(t *testing.T) {
	assert.Equal(t, "héll", TrimMax("  héllo ", 4))
	assert.Equal(t, "ok", TrimMax("ok", 10))
}
