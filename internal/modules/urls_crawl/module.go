package urls_crawl

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/birdwatcher/internal/httpclient"
	"github.com/kingrea/birdwatcher/internal/output"
	"github.com/kingrea/birdwatcher/internal/plugin"
	"github.com/kingrea/birdwatcher/internal/store"
)

const (
	modulePath     = "urls/crawl"
	defaultThreads = 10
)

var metadata = plugin.ModuleMetadata{
	Name:        "URL Crawler",
	Description: "Enrich gathered URLs with HTTP status codes, content types and page titles",
	Author:      "Birdwatcher maintainers",
	Info: `The URL Crawler module visits shared URLs and records:

  * HTTP status code (200, 404, 500, etc.)
  * Content type (text/html, application/pdf, etc.)
  * Page title (HTML documents only)

CAUTION: depending on the users in the workspace it might not be safe to
blindly request shared URLs. Consider setting PROXY_ADDR and PROXY_PORT.`,
	Options: []plugin.OptionSpec{
		{Key: "USER_AGENT", Description: "Specific HTTP User-Agent to use (randomized if not set)"},
		{Key: "TIMEOUT", Default: int(httpclient.DefaultTimeout / time.Second), Description: "Request timeout in seconds"},
		{Key: "RETRIES", Default: httpclient.DefaultRetries, Description: "Amount of retries on failed requests"},
		{Key: "RETRY_FAILED", Default: false, Description: "Retry previously failed crawls", Boolean: true},
		{Key: "PROXY_ADDR", Description: "HTTP proxy address to use for requests"},
		{Key: "PROXY_PORT", Description: "HTTP proxy port to use for requests"},
		{Key: "PROXY_USER", Description: "HTTP proxy user to use for requests"},
		{Key: "PROXY_PASS", Description: "HTTP proxy password to use for requests"},
		{Key: "THREADS", Default: defaultThreads, Description: "The number of concurrent threads"},
	},
}

// CrawlModule fetches every pending URL in the workspace.
type CrawlModule struct {
	crawled atomic.Int64
	failed  atomic.Int64
}

// Register installs the module factory into the provided registry.
func Register(reg *plugin.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegisterModule(modulePath, metadata, func() plugin.Module {
		return New()
	})
}

// New constructs the module.
func New() *CrawlModule {
	return &CrawlModule{}
}

type settings struct {
	timeout     time.Duration
	retries     int
	threads     int
	retryFailed bool
	userAgent   string
	proxy       string
}

// Run crawls the workspace's uncrawled URLs through the worker pool.
func (m *CrawlModule) Run(ctx *plugin.ModuleContext) (plugin.Result, error) {
	ws := ctx.Workspace()
	if ws == nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.Failf("No workspace selected")
	}
	cfg, err := readSettings(ctx.Options)
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, err
	}
	filter := store.UncrawledURLs
	if cfg.retryFailed {
		filter = store.UncrawledOrFailedURLs
	}
	urls, err := ctx.Store.URLs(ctx.Ctx(), ws.ID, filter)
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, err
	}
	if len(urls) == 0 {
		return plugin.Result{Status: plugin.StatusFailed, Message: "There are currently no URLs in this workspace"}, nil
	}

	opts := ctx.HTTPOptions()
	opts.Timeout = cfg.timeout
	opts.Retries = cfg.retries
	opts.UserAgent = cfg.userAgent
	opts.Proxy = cfg.proxy
	client, err := httpclient.New(opts)
	if err != nil {
		return plugin.Result{Status: plugin.StatusFailed}, plugin.Failf("%v", err)
	}

	p := ctx.Pool(cfg.threads)
	for _, u := range urls {
		if err := p.Submit(func() { m.crawl(ctx, client, u, 2*cfg.timeout) }); err != nil {
			p.Shutdown()
			return plugin.Result{Status: plugin.StatusFailed}, fmt.Errorf("urls/crawl: submit %s: %w", u.URL, err)
		}
	}
	p.Shutdown()

	ctx.Log().Info("urls crawled",
		zap.Int64("crawled", m.crawled.Load()),
		zap.Int64("failed", m.failed.Load()),
	)
	return plugin.Completed("Crawled %d of %d URLs", m.crawled.Load(), len(urls)), nil
}

func (m *CrawlModule) crawl(ctx *plugin.ModuleContext, client *httpclient.Client, u store.URL, limit time.Duration) {
	out := ctx.Out
	reqCtx, cancel := context.WithTimeout(ctx.Ctx(), limit)
	defer cancel()

	result, err := fetch(reqCtx, client, u.URL)
	if err != nil {
		m.failed.Add(1)
		if saveErr := ctx.Store.UpdateURLCrawl(ctx.Ctx(), u.ID, store.CrawlResult{}); saveErr != nil {
			ctx.Log().Warn("mark failed crawl", zap.String("url", u.URL), zap.Error(saveErr))
		}
		ctx.Log().Debug("crawl failed", zap.String("url", u.URL), zap.Error(err))
		out.Error("Crawling failed for " + out.Bold(u.URL) + " (" + output.ErrorKind(err) + ")")
		return
	}
	if err := ctx.Store.UpdateURLCrawl(ctx.Ctx(), u.ID, result); err != nil {
		m.failed.Add(1)
		out.Error(output.Describe(err))
		return
	}
	m.crawled.Add(1)
	out.Info(fmt.Sprintf("Crawled %s (%d - %s)", out.Bold(u.URL), result.HTTPStatus, result.ContentType))
}

// fetch issues a HEAD request and, for HTML documents, a GET for the title.
func fetch(ctx context.Context, client *httpclient.Client, rawURL string) (store.CrawlResult, error) {
	head, err := client.Head(ctx, rawURL)
	if err != nil {
		return store.CrawlResult{}, err
	}
	result := store.CrawlResult{
		FinalURL:    head.FinalURL,
		HTTPStatus:  head.Status,
		ContentType: head.ContentType(),
	}
	if !head.IsHTML() {
		return result, nil
	}
	page, err := client.Get(ctx, head.FinalURL, nil)
	if err != nil {
		return store.CrawlResult{}, err
	}
	result.Title = httpclient.PageTitle(page.Body)
	return result, nil
}

func readSettings(opts *plugin.Options) (settings, error) {
	var (
		cfg  settings
		errs []error
	)
	num := func(key string) int {
		n, err := opts.Int(key)
		if err != nil {
			errs = append(errs, err)
		}
		return n
	}
	text := func(key string) string {
		s, _ := opts.String(key)
		return strings.TrimSpace(s)
	}
	timeout := num("TIMEOUT")
	cfg.retries = num("RETRIES")
	cfg.threads = num("THREADS")
	retryFailed, err := opts.Bool("RETRY_FAILED")
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return settings{}, plugin.Failf("%v", errs[0])
	}
	if timeout <= 0 {
		timeout = int(httpclient.DefaultTimeout / time.Second)
	}
	if cfg.threads <= 0 {
		cfg.threads = defaultThreads
	}
	cfg.timeout = time.Duration(timeout) * time.Second
	cfg.retryFailed = retryFailed
	cfg.userAgent = text("USER_AGENT")

	proxy, err := proxyURL(text("PROXY_ADDR"), text("PROXY_PORT"), text("PROXY_USER"), text("PROXY_PASS"))
	if err != nil {
		return settings{}, err
	}
	cfg.proxy = proxy
	return cfg, nil
}

// proxyURL assembles the proxy setting. An empty addr disables the proxy.
func proxyURL(addr, port, user, pass string) (string, error) {
	if addr == "" {
		return "", nil
	}
	scheme := "http"
	if before, after, ok := strings.Cut(addr, "://"); ok {
		scheme, addr = before, after
	}
	host := addr
	if port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return "", plugin.Failf("Invalid proxy port: %s", port)
		}
		host = net.JoinHostPort(addr, port)
	}
	u := url.URL{Scheme: scheme, Host: host}
	if user != "" {
		u.User = url.UserPassword(user, pass)
	}
	return u.String(), nil
}
