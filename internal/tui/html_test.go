package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text untouched",
			in:   "A relaxed linen shirt.",
			want: "A relaxed linen shirt.",
		},
		{
			name: "tags removed",
			in:   "<p>Cut from <strong>Irish linen</strong>.</p>",
			want: "Cut from Irish linen.",
		},
		{
			name: "paragraphs become lines",
			in:   "<p>First.</p><p>Second.</p>",
			want: "First.\nSecond.",
		},
		{
			name: "entities decoded",
			in:   "<p>Wash &amp; wear &mdash; no ironing</p>",
			want: "Wash & wear — no ironing",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}
