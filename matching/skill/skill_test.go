package skill

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Go", "go"},
		{"  Go  ", "go"},
		{"ＧＯ", "go"},
		{"Machine   Learning", "machine learning"},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Key(tt.in), "Key(%q)", tt.in)
	}
}

func TestDedupe_KeepsFirstSpellingAndOrder(t *testing.T) {
	got := Dedupe([]string{"Kafka", " go", "", "SQL", "GO", "kafka", "Docker  Compose"})
	assert.Equal(t, []string{"Kafka", "go", "SQL", "Docker Compose"}, got)
	assert.Empty(t, Dedupe(nil))
}

func TestSet(t *testing.T) {
	s := NewSet([]string{"Go", "SQL", " "})
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has(" sql "))
	assert.False(t, s.Has("Kafka"))
}
