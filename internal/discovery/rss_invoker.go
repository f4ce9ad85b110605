package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/moderation"
)

var (
	amountPattern = regexp.MustCompile(`\$\s?([0-9]{1,3}(?:,[0-9]{3})+|[0-9]+)`)
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
)

// RSSInvoker discovers scholarships from RSS/Atom listing feeds. Feed URLs may
// contain {city} and {state} placeholders. Items are unvetted, so every
// candidate is flagged for review.
type RSSInvoker struct {
	feeds  []string
	parser *gofeed.Parser
}

// NewRSSInvoker returns an invoker over feeds.
func NewRSSInvoker(feeds []string, timeout time.Duration) *RSSInvoker {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	p.UserAgent = "magpie-discovery/1.0"
	return &RSSInvoker{feeds: feeds, parser: p}
}

// Discover implements Invoker. A failing feed is skipped; the call fails only
// when every feed fails.
func (r *RSSInvoker) Discover(ctx context.Context, loc model.Location) (*Result, error) {
	res := &Result{}
	var errs []error
	for _, tmpl := range r.feeds {
		feedURL := expandFeedURL(tmpl, loc)
		feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("feed %s: %w", feedURL, err))
			continue
		}
		for _, item := range feed.Items {
			if c, ok := itemCandidate(item, feed.Title, feedURL, loc); ok {
				res.Scholarships = append(res.Scholarships, c)
			}
		}
	}
	if len(errs) == len(r.feeds) && len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", apperr.ErrUpstreamUnavailable, errors.Join(errs...))
	}
	if len(errs) > 0 {
		res.Message = fmt.Sprintf("%d of %d feeds failed", len(errs), len(r.feeds))
	}
	return res, nil
}

func expandFeedURL(tmpl string, loc model.Location) string {
	return strings.NewReplacer(
		"{city}", url.QueryEscape(loc.City),
		"{state}", url.QueryEscape(loc.State),
	).Replace(tmpl)
}

func itemCandidate(item *gofeed.Item, feedTitle, feedURL string, loc model.Location) (model.Candidate, bool) {
	name := strings.TrimSpace(item.Title)
	if name == "" || item.Link == "" {
		return model.Candidate{}, false
	}
	desc := item.Description
	if desc == "" {
		desc = item.Content
	}
	desc = strings.TrimSpace(tagPattern.ReplaceAllString(desc, " "))
	desc = strings.Join(strings.Fields(desc), " ")

	org := feedTitle
	if item.Author != nil && item.Author.Name != "" {
		org = item.Author.Name
	}

	c := model.Candidate{
		Name:           name,
		Organization:   strings.TrimSpace(org),
		Amount:         parseAmount(name + " " + desc),
		ApplicationURL: item.Link,
		Description:    desc,
		SourceURL:      feedURL,
		InitialStatus:  string(moderation.StatusNeedsReview),
	}
	if loc.City != "" {
		city := loc.City
		c.City = &city
	}
	if loc.State != "" {
		state := loc.State
		c.State = &state
	}
	return c, true
}

// parseAmount returns the largest dollar figure in s, or 0.
func parseAmount(s string) int {
	best := 0
	for _, m := range amountPattern.FindAllStringSubmatch(s, -1) {
		v, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if err == nil && v > best {
			best = v
		}
	}
	return best
}
