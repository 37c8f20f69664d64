package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/socialpulse/internal/social"
)

var (
	postsCountPattern  = regexp.MustCompile(`(?i)(?:^|\s)([\d,.KMB]+)\s*(?:posts|tweets)`)
	countTokenPattern  = regexp.MustCompile(`([\d,.KMB]+)`)
	likesLabelPattern  = regexp.MustCompile(`(?i)(\d+)\s+likes?`)
	repostLabelPattern = regexp.MustCompile(`(?i)(\d+)\s+reposts?`)
	replyLabelPattern  = regexp.MustCompile(`(?i)(\d+)\s+replies`)
	statusIDPattern    = regexp.MustCompile(`/status/(\d+)`)
)

// parseProfile extracts a Profile from a rendered profile page.
func parseProfile(doc *goquery.Document, username string) (social.Profile, error) {
	profile := social.Profile{Username: username}

	if name := doc.Find(selUserName).Find("span").First(); name.Length() > 0 {
		profile.FullName = strings.TrimSpace(name.Text())
	}
	profile.Bio = strings.TrimSpace(doc.Find(selUserDescription).First().Text())
	profile.Location = strings.TrimSpace(doc.Find(selUserLocation).First().Text())
	profile.JoinDate = strings.TrimSpace(doc.Find(selUserJoinDate).First().Text())
	profile.Verified = doc.Find(selVerifiedIcon).Length() > 0

	profile.ProfileImageURL = pickProfileImage(doc)
	if banner, ok := doc.Find(selBannerImage).First().Attr("src"); ok {
		profile.BannerImageURL = banner
	}

	profile.PostsCount = parsePostsCount(doc)
	profile.FollowingCount = social.LeadingCount(doc.Find(selFollowingLink).First().Text())
	profile.FollowersCount = parseFollowersCount(doc)

	if profile.FullName == "" && profile.Bio == "" && profile.FollowersCount == 0 &&
		profile.PostsCount == 0 && profile.ProfileImageURL == "" {
		return social.Profile{}, fmt.Errorf("parse profile %s: %w", username, social.ErrProfileUnavailable)
	}
	return profile, nil
}

// pickProfileImage prefers the higher-resolution avatar variants so we
// do not grab the tiny avatars from "followed by" rows.
func pickProfileImage(doc *goquery.Document) string {
	var first, preferred string
	doc.Find(selProfileImage).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, ok := s.Attr("src")
		if !ok {
			return true
		}
		if first == "" {
			first = src
		}
		if strings.Contains(src, "200x200") || strings.Contains(src, "400x400") {
			preferred = src
			return false
		}
		return true
	})
	if preferred != "" {
		return preferred
	}
	return first
}

// parsePostsCount scans the profile header for "1,242 posts" style text,
// falling back to any short text node mentioning posts or tweets.
func parsePostsCount(doc *goquery.Document) int {
	headerText := ""
	if primary := doc.Find(selPrimaryColumn).First(); primary.Length() > 0 {
		headerText = primary.Children().First().Text()
	}
	if headerText == "" {
		full := doc.Text()
		if len(full) > 500 {
			full = full[:500]
		}
		headerText = full
	}
	if match := postsCountPattern.FindStringSubmatch(headerText); match != nil {
		return social.ParseCount(match[1])
	}

	count := 0
	doc.Find("span, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) == 0 || len(text) >= 20 {
			return true
		}
		if match := postsCountPattern.FindStringSubmatch(text); match != nil {
			count = social.ParseCount(match[1])
			return false
		}
		return true
	})
	return count
}

func parseFollowersCount(doc *goquery.Document) int {
	if link := doc.Find(selVerifiedFolLink).First(); link.Length() > 0 {
		return social.LeadingCount(link.Text())
	}
	return social.LeadingCount(doc.Find(selFollowersLink).First().Text())
}

// parsePost extracts a Post from one timeline article. Media-only posts
// yield empty text; metric text is never used as a text fallback.
func parsePost(article *goquery.Selection, username string) social.Post {
	post := social.Post{Username: username}

	post.Text = strings.TrimSpace(article.Find(selPostText).First().Text())
	if ts, ok := article.Find(selPostTime).First().Attr("datetime"); ok {
		post.Timestamp = ts
	}

	post.Likes = parseMetric(article.Find(selLikeBtn).First(), likesLabelPattern)
	post.Reposts = parseMetric(article.Find(selRepostBtn).First(), repostLabelPattern)
	post.Replies = parseMetric(article.Find(selReplyBtn).First(), replyLabelPattern)

	if views := article.Find(selViewsLink).First(); views.Length() > 0 {
		if match := countTokenPattern.FindStringSubmatch(views.Text()); match != nil {
			post.Views = social.ParseCount(match[1])
		}
	}

	if href, ok := article.Find(selStatusLink).First().Attr("href"); ok {
		post.URL = href
		if match := statusIDPattern.FindStringSubmatch(href); match != nil {
			post.ID = match[1]
		}
	}

	article.Find(selPostPhoto).Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok {
			post.MediaURLs = append(post.MediaURLs, src)
		}
	})

	post.IsReply, post.ReplyTo = parseReplyContext(article)
	post.Hashtags = social.ExtractHashtags(post.Text)
	post.Mentions = social.ExtractMentions(post.Text)
	return post
}

// parseMetric reads a count from a button, preferring the aria-label over
// the displayed text because labels carry exact numbers.
func parseMetric(button *goquery.Selection, labelPattern *regexp.Regexp) int {
	if button.Length() == 0 {
		return 0
	}
	if label, ok := button.Attr("aria-label"); ok && label != "" {
		if match := labelPattern.FindStringSubmatch(label); match != nil {
			return social.ParseCount(match[1])
		}
	}
	text := strings.TrimSpace(button.Text())
	if match := countTokenPattern.FindStringSubmatch(text); match != nil {
		return social.ParseCount(match[1])
	}
	return 0
}

func parseReplyContext(article *goquery.Selection) (bool, string) {
	var isReply bool
	var replyTo string
	article.Find("div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(s.Text(), "Replying to") {
			return true
		}
		isReply = true
		if link := s.Find("a").First(); link.Length() > 0 {
			replyTo = strings.TrimSpace(link.Text())
		}
		return false
	})
	return isReply, replyTo
}

// parseFollowingCells extracts partial profiles from a following list.
// The list view exposes no counts, so those stay zero until a deep scrape.
func parseFollowingCells(doc *goquery.Document, seen map[string]struct{}) []social.Profile {
	var profiles []social.Profile
	doc.Find(selUserCell).Each(func(_ int, cell *goquery.Selection) {
		href, ok := cell.Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		handle := strings.Trim(href, "/")
		if handle == "" || strings.Contains(handle, "/") {
			return
		}
		if _, dup := seen[handle]; dup {
			return
		}
		seen[handle] = struct{}{}

		name := strings.TrimSpace(cell.Find(`div[dir="auto"]`).First().Text())
		if name == "" {
			name = handle
		}
		avatar, _ := cell.Find("img[src]").First().Attr("src")

		profiles = append(profiles, social.Profile{
			Username:        handle,
			FullName:        name,
			ProfileImageURL: avatar,
		})
	})
	return profiles
}
