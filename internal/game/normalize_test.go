package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTable(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Dog", "dog"},
		{"  dog  ", "dog"},
		{"The Dogs!", "dog"},
		{"an apple", "apple"},
		{"CATS AND DOGS", "cat and dog"},
		{"pizza, obviously.", "pizza obviously"},
		{"glass", "glass"}, // double-s words are not plurals
		{"boss", "boss"},
		{"a", ""},
		{"the", ""},
		{"!!!", ""},
		{"", ""},
		{"Banana's", "banana"},
		{"ice   cream", "ice cream"},
		{"s", "s"}, // single letter never folds to empty
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Normalize(c.in), "Normalize(%q)", c.in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"The Dogs!", "bananas", "glass houses", "As the world turns",
		"  PIZZA  ", "an answer", "a", "", "cats!!!", "boss's",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "Normalize not idempotent for %q", in)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Equal(t, "dog", Normalize("The Dogs!"))
	}
}
