package context

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestIDFrom(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "client id", header: "req-42", keep: true},
		{name: "uuid", header: "6f1c7a2e-6a53-4c1b-9a7f-3f0e2b9f1d11", keep: true},
		{name: "empty", header: ""},
		{name: "newline", header: "abc\ninjected=1"},
		{name: "space", header: "a b"},
		{name: "too long", header: strings.Repeat("x", maxRequestIDLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RequestIDFrom(tt.header)
			if tt.keep {
				assert.Equal(t, tt.header, got)

				return
			}
			_, err := uuid.Parse(got)
			assert.NoError(t, err)
		})
	}
}
