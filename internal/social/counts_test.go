package social

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  int
	}{
		{"empty", "", 0},
		{"plain", "42", 42},
		{"comma", "1,242", 1242},
		{"thousands", "1.2K", 1200},
		{"millions", "3M", 3_000_000},
		{"billions", "1B", 1_000_000_000},
		{"lowercase suffix", "2.5k", 2500},
		{"whitespace", "  229.5K  ", 229_500},
		{"garbage", "likes", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ParseCount(tc.input))
		})
	}
}

func TestLeadingCount(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1200, LeadingCount("1.2K Followers"))
	require.Equal(t, 829, LeadingCount("829 Following"))
	require.Equal(t, 0, LeadingCount("Followers"))
}

func TestExtractHashtagsAndMentions(t *testing.T) {
	t.Parallel()

	text := "Shipping #golang and #opensource with @alice and @bob_dev"
	require.Equal(t, []string{"golang", "opensource"}, ExtractHashtags(text))
	require.Equal(t, []string{"alice", "bob_dev"}, ExtractMentions(text))
	require.Nil(t, ExtractHashtags("no tags here"))
	require.Nil(t, ExtractMentions("no handles here"))
}

func TestNormalizeUsername(t *testing.T) {
	t.Parallel()

	require.Equal(t, "jack", NormalizeUsername(" @jack "))
	require.Equal(t, "jack", NormalizeUsername("jack"))
	require.Equal(t, "jack", NormalizeUsername("@Jack"))
}
