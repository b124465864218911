// Package linkedin adapts the job platform's web pages: search, posting pages,
// login and the Easy Apply form.
package linkedin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/browser"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/jobs"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/utils"
)

const (
	baseURL = "https://www.linkedin.com"
	// Results shown per search page.
	perPage = 25

	defaultMaxPages    = 40
	defaultMaxPostings = 100
	defaultSettle      = 2 * time.Second
)

// Options configure the platform adapter.
type Options struct {
	BaseURL  string
	Headless bool
	// FollowCompanies keeps the "follow company" box ticked on submit.
	FollowCompanies bool
	// Settle is the pause after navigation and clicks.
	Settle time.Duration
}

type Client struct {
	browser browser.Browser
	opts    Options
	logger  *zap.Logger
	wait    func(context.Context, time.Duration) error
	// Challenge is called on a login checkpoint page in visible mode and must
	// return once the user has completed it.
	Challenge func(ctx context.Context, url string) error
}

func New(b browser.Browser, opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = baseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	switch {
	case opts.Settle == 0:
		opts.Settle = defaultSettle
	case opts.Settle < 0:
		opts.Settle = 0
	}
	return &Client{browser: b, opts: opts, logger: logger, wait: utils.WaitFor}
}

// JobURL returns the posting page of a job id.
func (c *Client) JobURL(id string) string {
	return fmt.Sprintf("%s/jobs/view/%s/", c.opts.BaseURL, id)
}

// Posting opens a posting page and parses it.
func (c *Client) Posting(ctx context.Context, id string) (*jobs.Posting, error) {
	url := c.JobURL(id)
	if err := c.navigate(ctx, url); err != nil {
		return nil, err
	}
	html, err := c.browser.HTML(ctx)
	if err != nil {
		return nil, err
	}
	posting, err := ParsePosting(id, url, html)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("posting fetched",
		zap.String("posting_id", id),
		zap.String("title", posting.Title),
		zap.String("company", posting.Company),
		zap.Bool("easy_apply", posting.EasyApply),
	)
	return posting, nil
}

func (c *Client) navigate(ctx context.Context, url string) error {
	if err := c.browser.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return c.settle(ctx)
}

func (c *Client) settle(ctx context.Context) error {
	if c.opts.Settle == 0 {
		return ctx.Err()
	}
	return c.wait(ctx, c.opts.Settle)
}
