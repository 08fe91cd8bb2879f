// Loom implementation of [Browser] driven through the Chrome DevTools Protocol.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/omarmustafa130/LoomAutomation/internal/models"
	"github.com/omarmustafa130/LoomAutomation/internal/shared"
)

const (
	loomOrigin   = "https://www.loom.com"
	loomLoginURL = "https://www.loom.com/looms/videos"
)

// CookieDomain scopes session cookies imported from outside the browser.
const CookieDomain = ".loom.com"

// Page selectors. XPath expressions are resolved with [chromedp.BySearch].
const (
	selAddVideo       = `//button[contains(normalize-space(.), "Add video")]`
	selUploadOption   = `//li[@role="option"][contains(normalize-space(.), "Upload a video")]`
	selFileInput      = `input[type="file"]`
	selUploadButton   = `button.uppy-StatusBar-actionBtn--upload`
	selUploadComplete = `.uppy-Dashboard-Item.is-complete`
	selPreviewLink    = `.uppy-Dashboard-Item.is-complete .uppy-Dashboard-Item-previewLink`
	selShareButton    = `button[data-testid="share-modal-button"]`
	selEmbedTab       = `//*[@role="dialog"]//button[contains(normalize-space(.), "Embed")]`
	selCopyEmbed      = `//button[contains(normalize-space(.), "Copy embed code")]`
)

const (
	jsHideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`
	jsStatusText    = `(() => { const el = document.querySelector('.uppy-StatusBar-statusPrimary'); return el ? el.textContent : ''; })()`
	jsReadClipboard = `navigator.clipboard.readText()`
	jsScrollBottom  = `window.scrollTo(0, document.body.scrollHeight)`
	jsListedVideos  = `(() => {
		const seen = new Set();
		const out = [];
		for (const a of document.querySelectorAll('a[href*="/share/"]')) {
			const url = new URL(a.getAttribute('href'), location.origin).href.split('?')[0];
			if (seen.has(url)) continue;
			seen.add(url);
			const title = (a.getAttribute('aria-label') || a.getAttribute('title') || a.textContent || '').trim();
			out.push({url: url, title: title});
		}
		return out;
	})()`
	jsCountListed = `new Set(Array.from(document.querySelectorAll('a[href*="/share/"]'), a => a.href.split('?')[0])).size`
)

var (
	navigationTimeout = 60 * time.Second
	elementTimeout    = 30 * time.Second
	transferTimeout   = 60 * time.Second
	statusTimeout     = 10 * time.Second
)

// LoomBrowserOpts configures a [LoomBrowser].
type LoomBrowserOpts struct {
	SessionFile  string
	WorkspaceURL string
	Headless     bool
	UserAgent    string
	Logger       *log.Logger
}

// LoomBrowser opens chromedp sessions authenticated with the saved cookies.
type LoomBrowser struct {
	opts   LoomBrowserOpts
	logger *log.Logger
}

// NewLoomBrowser creates a [LoomBrowser].
func NewLoomBrowser(opts LoomBrowserOpts) *LoomBrowser {
	if opts.WorkspaceURL == "" {
		opts.WorkspaceURL = loomLoginURL
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &LoomBrowser{opts: opts, logger: shared.WithLogger(opts.Logger, "component", "browser")}
}

// NewSession launches a browser, restores cookies and grants clipboard access.
func (b *LoomBrowser) NewSession(ctx context.Context) (Session, error) {
	cookies, err := shared.LoadSession(b.opts.SessionFile)
	if err != nil {
		return nil, err
	}

	tab, cancel := b.launch(context.WithoutCancel(ctx), b.opts.Headless)
	s := &loomSession{tab: tab, cancel: cancel, workspaceURL: b.opts.WorkspaceURL, logger: b.logger}

	err = s.run(ctx, navigationTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(jsHideWebdriver).Do(ctx)
			return err
		}),
		network.SetCookies(toCookieParams(cookies)),
		browser.GrantPermissions([]browser.PermissionType{
			browser.PermissionTypeClipboardReadWrite,
			browser.PermissionTypeClipboardSanitizedWrite,
		}).WithOrigin(loomOrigin),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	return s, nil
}

// Login opens a visible browser on the video library, waits for confirm to return,
// then saves the browser's cookies to the session file. It returns the number of cookies saved.
func (b *LoomBrowser) Login(ctx context.Context, confirm func(ctx context.Context) error) (int, error) {
	tab, cancel := b.launch(ctx, false)
	defer cancel()

	if err := chromedp.Run(tab, chromedp.Navigate(loomLoginURL)); err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrNavigation, err)
	}

	if err := confirm(ctx); err != nil {
		return 0, err
	}

	var cookies []*network.Cookie
	err := chromedp.Run(tab, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return 0, fmt.Errorf("failed to read cookies: %w", err)
	}

	saved := fromNetworkCookies(cookies)
	if err := shared.SaveSession(b.opts.SessionFile, saved); err != nil {
		return 0, err
	}

	b.logger.Info("session saved", "cookies", len(saved), "file", b.opts.SessionFile)
	return len(saved), nil
}

func (b *LoomBrowser) launch(ctx context.Context, headless bool) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
	)
	if b.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tab, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(b.logger.Debugf))

	return tab, func() {
		tabCancel()
		allocCancel()
	}
}

type loomSession struct {
	tab          context.Context
	cancel       context.CancelFunc
	workspaceURL string
	logger       *log.Logger
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *loomSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(s.tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(tctx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", shared.ErrElementTimeout, timeout)
	}
	return err
}

func (s *loomSession) OpenWorkspace(ctx context.Context) error {
	err := s.run(ctx, navigationTimeout,
		chromedp.Navigate(s.workspaceURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil && !errors.Is(err, shared.ErrElementTimeout) && ctx.Err() == nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrNavigation, s.workspaceURL, err)
	}
	return err
}

func (s *loomSession) OpenUploadDialog(ctx context.Context) error {
	return s.run(ctx, elementTimeout, chromedp.Click(selAddVideo, chromedp.BySearch, chromedp.NodeVisible))
}

func (s *loomSession) SelectLocalUpload(ctx context.Context) error {
	return s.run(ctx, elementTimeout, chromedp.Click(selUploadOption, chromedp.BySearch, chromedp.NodeVisible))
}

func (s *loomSession) ChooseFile(ctx context.Context, path string) error {
	return s.run(ctx, elementTimeout, chromedp.SetUploadFiles(selFileInput, []string{path}, chromedp.ByQuery))
}

func (s *loomSession) StartTransfer(ctx context.Context) error {
	return s.run(ctx, transferTimeout, chromedp.Click(selUploadButton, chromedp.ByQuery, chromedp.NodeVisible))
}

func (s *loomSession) TransferStatus(ctx context.Context) (TransferStatus, error) {
	var text string
	if err := s.run(ctx, statusTimeout, chromedp.Evaluate(jsStatusText, &text)); err != nil {
		return TransferStatus{}, err
	}
	return ParseTransferStatus(text), nil
}

func (s *loomSession) AwaitProcessing(ctx context.Context, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitVisible(selUploadComplete, chromedp.ByQuery))
}

func (s *loomSession) ReferenceURL(ctx context.Context) (string, error) {
	var (
		href string
		ok   bool
	)
	err := s.run(ctx, elementTimeout, chromedp.AttributeValue(selPreviewLink, "href", &href, &ok, chromedp.ByQuery))
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(href) == "" {
		return "", shared.ErrReferenceMissing
	}
	return strings.TrimSpace(href), nil
}

func (s *loomSession) EmbedSnippet(ctx context.Context, url string) (string, error) {
	err := s.run(ctx, navigationTimeout,
		chromedp.Navigate(url),
		chromedp.Click(selShareButton, chromedp.ByQuery, chromedp.NodeVisible),
		chromedp.Click(selEmbedTab, chromedp.BySearch, chromedp.NodeVisible),
		chromedp.Click(selCopyEmbed, chromedp.BySearch, chromedp.NodeVisible),
	)
	if err != nil {
		return "", err
	}

	var snippet string
	err = s.run(ctx, statusTimeout, chromedp.Evaluate(jsReadClipboard, &snippet, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	if err != nil {
		return "", err
	}

	if snippet = strings.TrimSpace(snippet); snippet == "" {
		return "", shared.ErrEmbedMissing
	}
	return snippet, nil
}

func (s *loomSession) ScrollListing(ctx context.Context) error {
	return s.run(ctx, statusTimeout, chromedp.Evaluate(jsScrollBottom, nil))
}

func (s *loomSession) CountListed(ctx context.Context) (int, error) {
	var n int
	err := s.run(ctx, statusTimeout, chromedp.Evaluate(jsCountListed, &n))
	return n, err
}

func (s *loomSession) ListedVideos(ctx context.Context) ([]models.ListedVideo, error) {
	var videos []models.ListedVideo
	if err := s.run(ctx, elementTimeout, chromedp.Evaluate(jsListedVideos, &videos)); err != nil {
		return nil, err
	}
	return videos, nil
}

func (s *loomSession) Close() error {
	s.cancel()
	return nil
}

// toCookieParams converts saved cookies for [network.SetCookies].
func toCookieParams(cookies []shared.Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if p.Domain == "" {
			p.Domain = CookieDomain
		}
		if p.Path == "" {
			p.Path = "/"
		}
		if c.Expires > 0 {
			sec := int64(c.Expires)
			nsec := int64((c.Expires - float64(sec)) * float64(time.Second))
			exp := cdp.TimeSinceEpoch(time.Unix(sec, nsec))
			p.Expires = &exp
		}
		switch strings.ToLower(c.SameSite) {
		case "strict":
			p.SameSite = network.CookieSameSiteStrict
		case "lax":
			p.SameSite = network.CookieSameSiteLax
		case "none":
			p.SameSite = network.CookieSameSiteNone
		}
		params = append(params, p)
	}
	return params
}

// fromNetworkCookies converts browser cookies into the session file format.
func fromNetworkCookies(cookies []*network.Cookie) []shared.Cookie {
	out := make([]shared.Cookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil {
			continue
		}
		expires := c.Expires
		if c.Session {
			expires = -1
		}
		out = append(out, shared.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		})
	}
	return out
}
