package scraper

// DOM selectors for x.com. These are isolated here because the site
// changes its DOM frequently; update these when scraping breaks.
const (
	selPrimaryColumn = `div[data-testid="primaryColumn"]`

	// Profile page
	selUserName        = `div[data-testid="UserName"]`
	selUserDescription = `div[data-testid="UserDescription"]`
	selUserLocation    = `span[data-testid="UserLocation"]`
	selUserJoinDate    = `span[data-testid="UserJoinDate"]`
	selVerifiedIcon    = `svg[data-testid="icon-verified"]`
	selProfileImage    = `img[src*="profile_images"]`
	selBannerImage     = `img[src*="profile_banners"]`
	selFollowersLink   = `a[href$="/followers"]`
	selVerifiedFolLink = `a[href$="/verified_followers"]`
	selFollowingLink   = `a[href$="/following"]`

	// Timeline
	selPostArticle = `article[data-testid="tweet"]`
	selPostText    = `div[data-testid="tweetText"]`
	selPostTime    = `time`
	selReplyBtn    = `button[data-testid="reply"]`
	selRepostBtn   = `button[data-testid="retweet"]`
	selLikeBtn     = `button[data-testid="like"]`
	selViewsLink   = `a[href*="/analytics"]`
	selStatusLink  = `a[href*="/status/"]`
	selPostPhoto   = `div[data-testid="tweetPhoto"] img`

	// Following list
	selUserCell = `div[data-testid="UserCell"]`
)
