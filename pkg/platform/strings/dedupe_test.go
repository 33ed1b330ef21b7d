package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil stays nil", nil, nil},
		{"order is kept", []string{" https://b.example ", "https://a.example", "https://b.example"}, []string{"https://b.example", "https://a.example"}},
		{"blank entries dropped", []string{"", "  ", "kafka:9092"}, []string{"kafka:9092"}},
		{"case is significant", []string{"A", "a"}, []string{"A", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.in))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"},
		DedupeAndTrimLower([]string{"Broker-1:9092", " broker-1:9092", "BROKER-2:9092 "}))
}
