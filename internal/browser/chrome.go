package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultActionTimeout   = 10 * time.Second
	defaultPageLoadTimeout = 30 * time.Second
	defaultActionsPerMin   = 30
)

// Options configure the Chrome session.
type Options struct {
	Headless         bool
	UserDataDir      string
	UserAgent        string
	WindowWidth      int
	WindowHeight     int
	ActionTimeout    time.Duration
	PageLoadTimeout  time.Duration
	ActionsPerMinute int
}

// Chrome implements Browser on top of a chromedp controlled Chrome instance.
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	limiter     *rate.Limiter
	opts        Options
	logger      *zap.Logger
}

var _ Browser = (*Chrome)(nil)

// NewChrome launches Chrome. The session lives until Close is called or ctx is done,
// so callers pass a context that is not tied to user cancellation.
func NewChrome(ctx context.Context, opts Options, logger *zap.Logger) (*Chrome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaultActionTimeout
	}
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = defaultPageLoadTimeout
	}
	if opts.ActionsPerMinute <= 0 {
		opts.ActionsPerMinute = defaultActionsPerMin
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// The first Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	logger.Info("browser started",
		zap.Bool("headless", opts.Headless),
		zap.Int("actions_per_minute", opts.ActionsPerMinute),
	)

	perAction := time.Minute / time.Duration(opts.ActionsPerMinute)
	return &Chrome{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		limiter:     rate.NewLimiter(rate.Every(perAction), 3),
		opts:        opts,
		logger:      logger,
	}, nil
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	c.logger.Debug("navigate", zap.String("url", url))
	return c.run(ctx, c.opts.PageLoadTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (c *Chrome) Find(ctx context.Context, selector string) (*Element, error) {
	elements, err := c.FindAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}
	return elements[0], nil
}

func (c *Chrome) FindAll(ctx context.Context, selector string) ([]*Element, error) {
	var nodes []*cdp.Node
	err := c.run(ctx, c.opts.ActionTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, err
	}

	elements := make([]*Element, 0, len(nodes))
	for _, node := range nodes {
		elements = append(elements, NewElement(selector, strings.ToLower(node.NodeName), attributes(node.Attributes), node.NodeID))
	}
	return elements, nil
}

func (c *Chrome) Click(ctx context.Context, el *Element) error {
	ids, err := nodeIDs(el)
	if err != nil {
		return err
	}
	return c.run(ctx, c.opts.ActionTimeout, chromedp.Click(ids, chromedp.ByNodeID))
}

func (c *Chrome) Type(ctx context.Context, el *Element, text string) error {
	ids, err := nodeIDs(el)
	if err != nil {
		return err
	}
	return c.run(ctx, c.opts.ActionTimeout,
		chromedp.Clear(ids, chromedp.ByNodeID),
		chromedp.SendKeys(ids, text, chromedp.ByNodeID),
	)
}

func (c *Chrome) ReadText(ctx context.Context, el *Element) (string, error) {
	ids, err := nodeIDs(el)
	if err != nil {
		return "", err
	}
	var text string
	if err := c.run(ctx, c.opts.ActionTimeout, chromedp.Text(ids, &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := c.run(ctx, c.opts.ActionTimeout, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, c.opts.ActionTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (c *Chrome) SetFiles(ctx context.Context, el *Element, paths ...string) error {
	ids, err := nodeIDs(el)
	if err != nil {
		return err
	}
	return c.run(ctx, c.opts.ActionTimeout, chromedp.SetUploadFiles(ids, paths, chromedp.ByNodeID))
}

func (c *Chrome) SelectOption(ctx context.Context, el *Element, value string) error {
	ids, err := nodeIDs(el)
	if err != nil {
		return err
	}
	return c.run(ctx, c.opts.ActionTimeout, chromedp.SetValue(ids, value, chromedp.ByNodeID))
}

func (c *Chrome) Checked(ctx context.Context, el *Element) (bool, error) {
	ids, err := nodeIDs(el)
	if err != nil {
		return false, err
	}
	var checked bool
	if err := c.run(ctx, c.opts.ActionTimeout, chromedp.JavascriptAttribute(ids, "checked", &checked, chromedp.ByNodeID)); err != nil {
		return false, err
	}
	return checked, nil
}

// Close shuts the browser down.
func (c *Chrome) Close() error {
	c.cancel()
	c.allocCancel()
	return nil
}

func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if c.ctx.Err() != nil {
		return ErrStaleSession
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	return classify(ctx, c.ctx, runCtx, err)
}

// classify maps chromedp failures onto the package sentinels.
func classify(caller, session, run context.Context, err error) error {
	if err == nil {
		return nil
	}
	if session.Err() != nil {
		return fmt.Errorf("%w: %v", ErrStaleSession, err)
	}
	if caller.Err() != nil {
		return caller.Err()
	}

	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(run.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case strings.Contains(msg, "could not find node"), strings.Contains(msg, "no node with given id"),
		strings.Contains(msg, "node is detached"):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case strings.Contains(msg, "target closed"), strings.Contains(msg, "no target with given id"),
		strings.Contains(msg, "websocket"), strings.Contains(msg, "invalid context"):
		return fmt.Errorf("%w: %v", ErrStaleSession, err)
	default:
		return err
	}
}

func nodeIDs(el *Element) ([]cdp.NodeID, error) {
	id, ok := el.Ref().(cdp.NodeID)
	if !ok {
		return nil, fmt.Errorf("%w: element handle is not usable", ErrNotFound)
	}
	return []cdp.NodeID{id}, nil
}

func attributes(flat []string) map[string]string {
	attrs := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		attrs[flat[i]] = flat[i+1]
	}
	return attrs
}
