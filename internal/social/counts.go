package social

import (
	"regexp"
	"strconv"
	"strings"
)

// countToken matches the leading count in strings like "1.2K Followers".
var countToken = regexp.MustCompile(`([\d,.]+)\s*([KMB]?)`)

var (
	hashtagPattern = regexp.MustCompile(`#(\w+)`)
	mentionPattern = regexp.MustCompile(`@(\w+)`)
)

// ParseCount converts display strings like "1.2K", "3M" or "1,242" to
// integers. Unparseable input yields zero.
func ParseCount(s string) int {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1_000
		s = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier = 1_000_000
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "B"):
		multiplier = 1_000_000_000
		s = strings.TrimSuffix(s, "B")
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return int(value * multiplier)
}

// LeadingCount extracts and parses the first count token in s, e.g. the
// "1.2K" in "1.2K Followers". Returns zero when no token is present.
func LeadingCount(s string) int {
	match := countToken.FindStringSubmatch(s)
	if match == nil {
		return 0
	}
	return ParseCount(match[1] + match[2])
}

// ExtractHashtags returns the hashtag words in text, without the '#'.
func ExtractHashtags(text string) []string {
	return extractTokens(hashtagPattern, text)
}

// ExtractMentions returns the mentioned handles in text, without the '@'.
func ExtractMentions(text string) []string {
	return extractTokens(mentionPattern, text)
}

func extractTokens(pattern *regexp.Regexp, text string) []string {
	matches := pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, m[1])
	}
	return tokens
}

// NormalizeUsername strips a leading '@' and surrounding whitespace and
// lowercases the handle; handles are case-insensitive on the platform.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}
