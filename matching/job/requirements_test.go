package job

import (
	"testing"

	"github.com/TryAwesome/CVibe-sub002/pkg/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequirements(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want Requirements
	}{
		{
			name: "typed",
			raw:  map[string]any{"years": 3, "tech": []any{"Go", "SQL", "go"}, "education": "BS"},
			want: Requirements{Years: 3, Tech: []string{"Go", "SQL"}, Education: "BS"},
		},
		{
			name: "loosely typed",
			raw:  map[string]any{"years": "5", "tech": "Kafka, Go"},
			want: Requirements{Years: 5, Tech: []string{"Kafka", "Go"}},
		},
		{
			name: "empty",
			raw:  nil,
			want: Requirements{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRequirements(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRequirements_Invalid(t *testing.T) {
	_, err := DecodeRequirements(map[string]any{"years": "several"})
	require.Error(t, err)
	assert.True(t, errx.Is(err, CodeInvalidRequirements))
}

func TestMergeSkills(t *testing.T) {
	got := MergeSkills([]string{"Go", "SQL"}, Requirements{Tech: []string{"sql", "Kafka"}})
	assert.Equal(t, []string{"Go", "SQL", "Kafka"}, got)
}
