package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trackbot/internal/core/logger"
	"trackbot/internal/core/proxy"
	"trackbot/internal/features/tracking/domain"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// OnTracAdapter tracks shipments by scraping the public OnTrac tracking page.
// OnTrac has no free API, so the adapter loads the page in a headless browser
// and maps the visible text through ordered phrase rules.
type OnTracAdapter struct {
	pageURL string
	proxy   proxy.Settings
	logger  *zap.Logger
}

// scrapeTimeout bounds the whole browser session for one lookup.
const scrapeTimeout = 60 * time.Second

// onTracNotFoundPhrases force a not_found result regardless of any other
// phrase on the page.
var onTracNotFoundPhrases = []string{
	"not found",
	"no information",
	"no details found",
	"unable to locate",
}

var onTracPhraseRules = []phraseRule{
	{"delivered", domain.StatusDelivered},
	{"out for delivery", domain.StatusOutForDelivery},
	{"exception", domain.StatusException},
	{"returned to sender", domain.StatusException},
	{"undeliverable", domain.StatusException},
	{"label created", domain.StatusLabelCreated},
	{"shipment information received", domain.StatusLabelCreated},
	{"in transit", domain.StatusInTransit},
	{"picked up", domain.StatusInTransit},
	{"arrived at facility", domain.StatusInTransit},
}

// NewOnTracAdapter creates an OnTrac adapter. pageURL carries a %s slot for
// the tracking number.
func NewOnTracAdapter(pageURL string, proxySettings proxy.Settings) *OnTracAdapter {
	return &OnTracAdapter{
		pageURL: pageURL,
		proxy:   proxySettings,
		logger:  logger.Get(),
	}
}

// Track loads the public tracking page and maps its text to a status.
func (a *OnTracAdapter) Track(trackingNumber string) domain.Result {
	text, err := a.fetchPageText(trackingNumber)
	if err != nil {
		a.logger.Error("OnTrac tracking error", zap.String("tracking_number", trackingNumber), zap.Error(err))
		return domain.Failure(domain.StatusUnknown, err.Error())
	}
	return mapOnTracPage(text)
}

// fetchPageText drives a headless browser to the tracking page and returns
// the rendered body text. rod's Must helpers panic on failure; the recover
// keeps the adapter contract of never raising past its boundary.
func (a *OnTracAdapter) fetchPageText(trackingNumber string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scrape failed: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
	defer cancel()

	pageURL := fmt.Sprintf(a.pageURL, trackingNumber)
	if !strings.Contains(a.pageURL, "%s") {
		pageURL = a.pageURL + trackingNumber
	}

	a.logger.Debug("Launching browser",
		zap.Bool("proxy_enabled", a.proxy.HasProxy()),
		zap.String("url", pageURL),
	)

	l := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)

	if a.proxy.HasProxy() {
		l = l.Proxy(a.proxy.HostPort())
	}

	u, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().Context(ctx).ControlURL(u)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	if a.proxy.HasProxy() && a.proxy.Username != "" && a.proxy.Password != "" {
		go browser.MustHandleAuth(a.proxy.Username, a.proxy.Password)()
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return "", fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("page load failed: %w", err)
	}
	// Give client-side rendering a moment to paint the status.
	page.MustWaitStable()

	body, err := page.Element("body")
	if err != nil {
		return "", fmt.Errorf("page has no body: %w", err)
	}
	text, err = body.Text()
	if err != nil {
		return "", fmt.Errorf("failed to read page text: %w", err)
	}
	return text, nil
}

// mapOnTracPage maps visible page text to a normalized result. An explicit
// not-found phrase wins over every status phrase.
func mapOnTracPage(text string) domain.Result {
	lower := strings.ToLower(text)

	for _, phrase := range onTracNotFoundPhrases {
		if strings.Contains(lower, phrase) {
			return domain.Failure(domain.StatusNotFound, "tracking page reports no information")
		}
	}

	key := matchPhrase(onTracPhraseRules, text, domain.StatusInTransit)

	var raw string
	for _, rule := range onTracPhraseRules {
		if rule.key == key && strings.Contains(lower, rule.phrase) {
			raw = rule.phrase
			break
		}
	}

	return domain.NewResult(key, "", "", raw)
}
