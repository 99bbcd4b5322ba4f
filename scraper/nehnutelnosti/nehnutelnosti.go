package nehnutelnosti

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"optihome/config"
	"optihome/models"
	"optihome/utils"
)

const baseURL = "https://www.nehnutelnosti.sk/"

// ProgressReporter receives scrape progress; the status tracker satisfies
// it. A nil reporter disables progress reporting.
type ProgressReporter interface {
	Page(kind string, page int)
	ItemsAdded(n int)
	Log(level, format string, args ...any)
}

// Scraper drives headless-browser scraping of nehnutelnosti.sk result
// pages and detail pages.
type Scraper struct {
	cfg      *config.Config
	logger   *utils.Logger
	pool     *utils.WorkerPool
	visited  *utils.StringSet
	retry    *utils.RetryConfig
	progress ProgressReporter

	mu         sync.Mutex
	properties []*models.RawProperty
}

// New creates a ready-to-use Scraper. progress may be nil.
func New(cfg *config.Config, logger *utils.Logger, progress ProgressReporter) *Scraper {
	return &Scraper{
		cfg:      cfg,
		logger:   logger,
		pool:     utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		visited:  utils.NewStringSet(),
		progress: progress,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
}

// Scrape collects raw listings of the given kind ("flat" or "house") from
// the first `pages` result pages, visiting each detail page for the year
// built. Partial results are returned together with the first page error.
func (s *Scraper) Scrape(ctx context.Context, kind string, pages int) ([]*models.RawProperty, error) {
	s.logger.Info("[nehnutelnosti] Starting scrape — kind: %s, pages: %d", kind, pages)
	s.report("info", "scrape started: kind=%s pages=%d", kind, pages)

	s.mu.Lock()
	s.properties = nil
	s.mu.Unlock()

	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Info("[nehnutelnosti] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	allocCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSilent()

	var firstErr error
	for page := 1; page <= pages; page++ {
		if ctx.Err() != nil {
			firstErr = ctx.Err()
			break
		}

		pageURL := listURL(kind, page)
		s.logger.Info("[nehnutelnosti] Scraping page %d — URL: %s", page, pageURL)
		s.reportPage(kind, page)

		pageProps, err := s.scrapePage(allocCtx, kind, pageURL, page)
		if err != nil {
			s.logger.Error("[nehnutelnosti] Page %d failed: %v", page, err)
			s.report("error", "page %d failed: %v", page, err)
			if firstErr == nil {
				firstErr = err
			}
			break
		}

		if len(pageProps) == 0 {
			s.logger.Warn("[nehnutelnosti] Page %d returned 0 listings — stopping", page)
			s.report("warn", "page %d returned 0 listings", page)
			break
		}

		s.enrichYearBuilt(allocCtx, pageProps)

		s.mu.Lock()
		s.properties = append(s.properties, pageProps...)
		total := len(s.properties)
		s.mu.Unlock()

		s.reportItems(len(pageProps))
		s.logger.Info("[nehnutelnosti] Page %d done — collected %d listings so far", page, total)

		time.Sleep(time.Duration(s.cfg.RateLimitMs) * time.Millisecond)
	}

	s.mu.Lock()
	result := s.properties
	s.mu.Unlock()

	s.logger.Info("[nehnutelnosti] Scrape complete — total raw listings: %d", len(result))
	s.report("info", "scrape finished: %d raw listings", len(result))
	return result, firstErr
}

// listURL builds the result-page URL. Page 1 redirects when the page
// parameter is present, so it is omitted.
func listURL(kind string, page int) string {
	path := "vysledky/byty"
	if kind == "house" {
		path = "vysledky/domy"
	}
	if page == 1 {
		return baseURL + path
	}
	return fmt.Sprintf("%s%s?page=%d", baseURL, path, page)
}

// scrapePage loads one result page and extracts listing cards.
func (s *Scraper) scrapePage(allocCtx context.Context, kind, pageURL string, pageNum int) ([]*models.RawProperty, error) {
	var rawProps []*models.RawProperty

	err := s.retry.Do(allocCtx, fmt.Sprintf("scrape-page-%d", pageNum), func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 90*time.Second)
		defer cancelTimeout()

		type cardData struct {
			Title        string `json:"title"`
			Location     string `json:"location"`
			Price        string `json:"price"`
			Area         string `json:"area"`
			PricePerArea string `json:"pricePerArea"`
			Rooms        string `json:"rooms"`
			Description  string `json:"description"`
			Seller       string `json:"seller"`
			URL          string `json:"url"`
		}

		var cards []cardData

		err := chromedp.Run(ctx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(5*time.Second),

			// Scroll so lazy-loaded cards render
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2)`, nil),
			chromedp.Sleep(2*time.Second),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(2*time.Second),

			chromedp.Evaluate(`
				(function() {
					var results = [];
					var text = function(el) { return el ? el.textContent.trim() : ''; };

					// Result cards are MUI grid containers; the obfuscated
					// class suffix changes between deployments, so fall back
					// to any container with an /inzerat/ link.
					var cards = document.querySelectorAll('div.MuiGrid2-root.MuiGrid2-container.MuiGrid2-direction-xs-row.mui-1qrjc3g');
					if (cards.length === 0) {
						cards = document.querySelectorAll('div[class*="MuiGrid2-container"]');
					}

					var seen = {};
					for (var i = 0; i < cards.length; i++) {
						var card = cards[i];
						var link = card.querySelector('a[href]');
						if (!link) continue;

						var href = link.getAttribute('href') || '';
						if (href.indexOf('/') === 0) {
							href = 'https://www.nehnutelnosti.sk' + href;
						}
						if (!href || seen[href]) continue;
						if (!/\/\d{4,}/.test(href)) continue;
						seen[href] = true;

						var title = text(card.querySelector('h2.MuiTypography-h4')) ||
						            text(card.querySelector('h2')) ||
						            text(card.querySelector('h3'));

						results.push({
							title:        title,
							location:     text(card.querySelector('p.MuiTypography-body2.MuiTypography-noWrap.mui-1jfsjra')),
							price:        text(card.querySelector('p.MuiTypography-h5.mui-ce5ndv')) ||
							              text(card.querySelector('p[class*="MuiTypography-h5"]')),
							area:         text(card.querySelector('p.MuiTypography-body2.mui-5c21y4')),
							pricePerArea: text(card.querySelector('p.MuiTypography-label1.mui-u7akpj')),
							rooms:        text(card.querySelector('p.MuiTypography-body2.MuiTypography-noWrap.mui-1u9yyor')),
							description:  text(card.querySelector('p.MuiTypography-body2.mui-ce8onx')),
							seller:       text(card.querySelector('p.MuiTypography-label1.MuiTypography-noWrap.mui-srzmk6')),
							url:          href
						});
					}
					return results;
				})()
			`, &cards),
		)
		if err != nil {
			return fmt.Errorf("chromedp page scrape: %w", err)
		}

		s.logger.Debug("[nehnutelnosti] Page %d — found %d cards", pageNum, len(cards))

		rawProps = rawProps[:0]
		for _, c := range cards {
			if c.URL == "" {
				continue
			}
			if !s.visited.Add(c.URL) {
				s.logger.Debug("[nehnutelnosti] Skipping duplicate: %s", c.URL)
				continue
			}

			rawProps = append(rawProps, &models.RawProperty{
				Kind:            kind,
				Title:           c.Title,
				Location:        c.Location,
				RawPrice:        c.Price,
				RawArea:         c.Area,
				RawPricePerArea: c.PricePerArea,
				RawRooms:        c.Rooms,
				Description:     c.Description,
				Seller:          c.Seller,
				URL:             c.URL,
				ScrapedAt:       time.Now(),
			})
		}
		return nil
	})

	return rawProps, err
}

// enrichYearBuilt visits each detail page through the rate-limited pool
// and fills RawYear from the attribute table. Failures leave the field
// empty; the cleaner treats that as "unknown".
func (s *Scraper) enrichYearBuilt(allocCtx context.Context, props []*models.RawProperty) {
	for _, prop := range props {
		p := prop
		if p.URL == "" {
			continue
		}

		s.pool.Submit(func() {
			year, err := s.scrapeDetailYear(allocCtx, p.URL)
			if err != nil {
				s.logger.Debug("[nehnutelnosti] Detail page %s: %v", p.URL, err)
				return
			}
			p.RawYear = year
		})
	}
	s.pool.Wait()
}

// scrapeDetailYear extracts the "rok výstavby / kolaudácie" row text from
// a detail page.
func (s *Scraper) scrapeDetailYear(allocCtx context.Context, url string) (string, error) {
	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, 60*time.Second)
	defer cancelTimeout()

	var yearText string
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.Sleep(3*time.Second),
		chromedp.Evaluate(`
			(function() {
				var rows = document.querySelectorAll('.property-attributes li, .facts li, li, tr');
				for (var i = 0; i < rows.length; i++) {
					var t = (rows[i].textContent || '').trim();
					if (t.toLowerCase().indexOf('rok') !== -1 && /\d{4}/.test(t)) {
						return t;
					}
				}
				return '';
			})()
		`, &yearText),
	)
	if err != nil {
		return "", fmt.Errorf("chromedp detail scrape: %w", err)
	}
	return yearText, nil
}

func (s *Scraper) report(level, format string, args ...any) {
	if s.progress != nil {
		s.progress.Log(level, format, args...)
	}
}

func (s *Scraper) reportPage(kind string, page int) {
	if s.progress != nil {
		s.progress.Page(kind, page)
	}
}

func (s *Scraper) reportItems(n int) {
	if s.progress != nil {
		s.progress.ItemsAdded(n)
	}
}

// findChromeBinary locates a usable Chrome/Chromium binary, preferring the
// configured path.
func findChromeBinary(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}

	candidates := []string{
		"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome",
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	wellKnown := []string{
		"/usr/bin/google-chrome",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, path := range wellKnown {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
