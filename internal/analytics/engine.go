// Package analytics computes summaries over scraped posts and profiles.
package analytics

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/JakeFAU/socialpulse/internal/social"
)

// SentimentSummary aggregates polarity over a set of posts.
type SentimentSummary struct {
	PositiveCount   int     `json:"positive_count"`
	NeutralCount    int     `json:"neutral_count"`
	NegativeCount   int     `json:"negative_count"`
	PositivePct     float64 `json:"positive_pct"`
	NeutralPct      float64 `json:"neutral_pct"`
	NegativePct     float64 `json:"negative_pct"`
	AveragePolarity float64 `json:"average_polarity"`
}

// EngagementSummary aggregates interaction metrics over a set of posts.
type EngagementSummary struct {
	EngagementRate    float64 `json:"engagement_rate"`
	ConversionRate    float64 `json:"conversion_rate"`
	AvgLikes          float64 `json:"avg_likes"`
	AvgReposts        float64 `json:"avg_reposts"`
	AvgReplies        float64 `json:"avg_replies"`
	AvgViews          float64 `json:"avg_views"`
	TotalInteractions int     `json:"total_interactions"`
	TotalImpressions  int     `json:"total_impressions"`
}

// TagCount is one hashtag or mention with its occurrence count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TypeDistribution splits posts into originals and replies.
type TypeDistribution struct {
	OriginalPosts int     `json:"original_posts"`
	Replies       int     `json:"replies"`
	OriginalPct   float64 `json:"original_pct"`
	RepliesPct    float64 `json:"replies_pct"`
}

// Report is the full analytics payload returned by the API.
type Report struct {
	Username    string            `json:"username,omitempty"`
	Sentiment   SentimentSummary  `json:"sentiment"`
	Engagement  EngagementSummary `json:"engagement"`
	TopHashtags []TagCount        `json:"top_hashtags"`
	TopMentions []TagCount        `json:"top_mentions"`
	PostTypes   TypeDistribution  `json:"post_types"`
}

// DefaultTopN bounds the hashtag/mention leaderboards.
const DefaultTopN = 10

// Engine computes analytics; it is stateless and safe for concurrent use.
type Engine struct{}

// NewEngine constructs an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Analyze builds a full Report. Engagement needs follower counts, so it
// stays zeroed when profile is nil and no post carries views.
func (e *Engine) Analyze(posts []social.Post, profile *social.Profile) Report {
	report := Report{
		Sentiment:   e.Sentiment(posts),
		TopHashtags: e.TopHashtags(posts, DefaultTopN),
		TopMentions: e.TopMentions(posts, DefaultTopN),
		PostTypes:   e.TypeDistribution(posts),
	}
	if profile != nil {
		report.Engagement = e.Engagement(*profile, posts)
	}
	return report
}

// Sentiment scores each post and buckets it by polarity thresholds.
func (e *Engine) Sentiment(posts []social.Post) SentimentSummary {
	if len(posts) == 0 {
		return SentimentSummary{}
	}

	var summary SentimentSummary
	var sum float64
	for _, post := range posts {
		polarity := Polarity(post.Text)
		sum += polarity
		switch {
		case polarity > positiveThreshold:
			summary.PositiveCount++
		case polarity < negativeThreshold:
			summary.NegativeCount++
		default:
			summary.NeutralCount++
		}
	}

	total := float64(len(posts))
	summary.PositivePct = round2(float64(summary.PositiveCount) / total * 100)
	summary.NeutralPct = round2(float64(summary.NeutralCount) / total * 100)
	summary.NegativePct = round2(float64(summary.NegativeCount) / total * 100)
	summary.AveragePolarity = round4(sum / total)
	return summary
}

// Engagement computes interaction totals, averages, and rates. When view
// counts exist the rate denominator is impressions; otherwise it falls
// back to followers times post count, with followers floored at one.
func (e *Engine) Engagement(profile social.Profile, posts []social.Post) EngagementSummary {
	if len(posts) == 0 {
		return EngagementSummary{}
	}

	var totalLikes, totalReposts, totalReplies, totalViews int
	for _, post := range posts {
		totalLikes += post.Likes
		totalReposts += post.Reposts
		totalReplies += post.Replies
		totalViews += post.Views
	}
	totalInteractions := totalLikes + totalReposts + totalReplies
	numPosts := float64(len(posts))

	summary := EngagementSummary{
		AvgLikes:          round2(float64(totalLikes) / numPosts),
		AvgReposts:        round2(float64(totalReposts) / numPosts),
		AvgReplies:        round2(float64(totalReplies) / numPosts),
		TotalInteractions: totalInteractions,
		TotalImpressions:  totalViews,
	}
	if totalViews > 0 {
		summary.AvgViews = round2(float64(totalViews) / numPosts)
		rate := float64(totalInteractions) / float64(totalViews) * 100
		summary.EngagementRate = round2(math.Min(rate, 100))
		summary.ConversionRate = summary.EngagementRate
	} else {
		followers := profile.FollowersCount
		if followers < 1 {
			followers = 1
		}
		rate := float64(totalInteractions) / (float64(followers) * numPosts) * 100
		summary.EngagementRate = round2(math.Min(rate, 100))
	}
	return summary
}

// TopHashtags returns the topN most frequent hashtags, ties broken by
// first appearance.
func (e *Engine) TopHashtags(posts []social.Post, topN int) []TagCount {
	return topTags(posts, topN, func(p social.Post) []string { return p.Hashtags })
}

// TopMentions returns the topN most frequent mentions.
func (e *Engine) TopMentions(posts []social.Post, topN int) []TagCount {
	return topTags(posts, topN, func(p social.Post) []string { return p.Mentions })
}

// TypeDistribution splits posts into originals and replies.
func (e *Engine) TypeDistribution(posts []social.Post) TypeDistribution {
	var dist TypeDistribution
	if len(posts) == 0 {
		return dist
	}
	for _, post := range posts {
		if post.IsReply {
			dist.Replies++
		} else {
			dist.OriginalPosts++
		}
	}
	total := float64(len(posts))
	dist.OriginalPct = round2(float64(dist.OriginalPosts) / total * 100)
	dist.RepliesPct = round2(float64(dist.Replies) / total * 100)
	return dist
}

// ExportCSV writes posts as CSV rows with a header.
func (e *Engine) ExportCSV(w io.Writer, posts []social.Post) error {
	cw := csv.NewWriter(w)
	header := []string{
		"id", "username", "text", "timestamp",
		"likes", "reposts", "replies", "views",
		"is_reply", "reply_to", "hashtags", "mentions", "url",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, post := range posts {
		row := []string{
			post.ID,
			post.Username,
			post.Text,
			post.Timestamp,
			strconv.Itoa(post.Likes),
			strconv.Itoa(post.Reposts),
			strconv.Itoa(post.Replies),
			strconv.Itoa(post.Views),
			strconv.FormatBool(post.IsReply),
			post.ReplyTo,
			strings.Join(post.Hashtags, " "),
			strings.Join(post.Mentions, " "),
			post.URL,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func topTags(posts []social.Post, topN int, extract func(social.Post) []string) []TagCount {
	if topN <= 0 {
		topN = DefaultTopN
	}
	counts := make(map[string]int)
	var order []string
	for _, post := range posts {
		for _, tag := range extract(post) {
			if counts[tag] == 0 {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}
	// Stable sort over first-seen order keeps ties deterministic.
	result := make([]TagCount, 0, len(order))
	for _, tag := range order {
		result = append(result, TagCount{Tag: tag, Count: counts[tag]})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	if len(result) > topN {
		result = result[:topN]
	}
	return result
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
