package crawl

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/uxlens/uxlens/internal/audit"
)

// hrefPattern matches absolute and root-relative hyperlink references.
var hrefPattern = regexp.MustCompile(`href=["']((?:https?://[^"']+|/[^"']*))["']`)

// priorityKeywords rank links toward pages that matter for a usability audit.
var priorityKeywords = []string{"pricing", "about", "features", "contact", "login", "signup"}

// Capturer renders one crawl target; satisfied by capture.Acquirer.
type Capturer interface {
	CaptureCrawl(ctx context.Context, url string) (audit.CapturedImage, error)
}

// Discoverer selects and captures the seed plus a bounded set of internal pages.
type Discoverer struct {
	fetcher  MarkupFetcher
	capturer Capturer
	maxExtra int
	logger   *zap.Logger
}

// NewDiscoverer constructs a Discoverer. maxExtra bounds the number of pages
// captured in addition to the seed.
func NewDiscoverer(fetcher MarkupFetcher, capturer Capturer, maxExtra int, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{fetcher: fetcher, capturer: capturer, maxExtra: maxExtra, logger: logger}
}

// Discover fetches the seed's markup once and returns the ordered target list,
// seed first. A seed fetch failure fails the whole crawl mode.
func (d *Discoverer) Discover(ctx context.Context, seed string) ([]string, error) {
	markup, err := d.fetcher.Fetch(ctx, seed)
	if err != nil {
		return nil, audit.NewError(audit.CodeFetchFailed,
			"Failed to access site URL", http.StatusBadRequest, err)
	}

	links := ExtractLinks(string(markup), seed)
	ranked := Rank(links)
	if len(ranked) > d.maxExtra {
		ranked = ranked[:d.maxExtra]
	}
	targets := append([]string{seed}, ranked...)

	d.logger.Debug("crawl targets selected",
		zap.String("seed", seed),
		zap.Int("discovered", len(links)),
		zap.Strings("targets", targets),
	)
	return targets, nil
}

// Crawl captures every discovered target concurrently. Failed captures are
// dropped silently; only a fully failed batch fails the crawl. Image order
// matches target order (seed first).
func (d *Discoverer) Crawl(ctx context.Context, seed string) ([]audit.CapturedImage, error) {
	targets, err := d.Discover(ctx, seed)
	if err != nil {
		return nil, err
	}

	results := make([]*audit.CapturedImage, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			img, err := d.capturer.CaptureCrawl(ctx, target)
			if err != nil {
				d.logger.Warn("crawl capture dropped", zap.String("url", target), zap.Error(err))
				return
			}
			results[i] = &img
		}(i, target)
	}
	wg.Wait()

	images := make([]audit.CapturedImage, 0, len(targets))
	for _, r := range results {
		if r != nil {
			images = append(images, *r)
		}
	}
	if len(images) == 0 {
		return nil, audit.NewError(audit.CodeCrawlFailed,
			"Failed to crawl site", http.StatusInternalServerError, nil)
	}
	return images, nil
}

// ExtractLinks scans markup for hyperlink references, resolves them against
// the seed, and keeps deduplicated same-hostname links. The seed itself and
// anything carrying a fragment marker are excluded. Discovery order is
// preserved.
func ExtractLinks(markup, seed string) []string {
	seedURL, err := url.Parse(seed)
	if err != nil {
		return nil
	}
	host := seedURL.Hostname()

	seen := make(map[string]struct{})
	var links []string
	for _, match := range hrefPattern.FindAllStringSubmatch(markup, -1) {
		ref, err := url.Parse(match[1])
		if err != nil {
			continue
		}
		abs := seedURL.ResolveReference(ref).String()
		if strings.Contains(abs, "#") {
			continue
		}
		resolved, err := url.Parse(abs)
		if err != nil || resolved.Hostname() != host || abs == seed {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	}
	return links
}

// Rank sorts links containing a priority keyword ahead of the rest. The sort
// is stable, so ties keep discovery order.
func Rank(links []string) []string {
	ranked := append([]string(nil), links...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return keywordScore(ranked[i]) > keywordScore(ranked[j])
	})
	return ranked
}

func keywordScore(link string) int {
	lower := strings.ToLower(link)
	for _, w := range priorityKeywords {
		if strings.Contains(lower, w) {
			return 1
		}
	}
	return 0
}
