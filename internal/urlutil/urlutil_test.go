package urlutil_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"collector/internal/urlutil"
)

func TestCleanReferrer(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "", want: ""},
		{raw: "   ", want: ""},
		{raw: "https://News.Example.org/post?utm_source=x#top", want: "https://news.example.org/post"},
		{raw: "http://example.com", want: "http://example.com"},
		{raw: "HTTPS://example.com/a/b", want: "https://example.com/a/b"},
		{raw: "android-app://com.example", want: ""},
		{raw: "/relative/path", want: ""},
		{raw: "javascript:alert(1)", want: ""},
		{raw: "://broken", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			require.Equal(t, tc.want, urlutil.CleanReferrer(tc.raw))
		})
	}
}
