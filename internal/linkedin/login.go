package linkedin

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrLoginFailed reports that the platform did not accept the credentials.
	ErrLoginFailed = errors.New("login failed")
	// ErrChallenge reports a security checkpoint that needs a human.
	ErrChallenge = errors.New("login checkpoint requires manual completion")
)

// Login reuses a stored session when possible and signs in otherwise.
func (c *Client) Login(ctx context.Context, email, password string) error {
	if err := c.navigate(ctx, c.opts.BaseURL+"/feed/"); err != nil {
		return err
	}
	current, err := c.browser.CurrentURL(ctx)
	if err != nil {
		return err
	}
	if loggedIn(current) {
		c.logger.Info("reusing stored session")
		return nil
	}

	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", ErrLoginFailed)
	}

	if err := c.navigate(ctx, c.opts.BaseURL+"/login"); err != nil {
		return err
	}
	for _, input := range [][2]string{{"#username", email}, {"#password", password}} {
		el, err := c.browser.Find(ctx, input[0])
		if err != nil {
			return fmt.Errorf("login form: %w", err)
		}
		if err := c.browser.Type(ctx, el, input[1]); err != nil {
			return fmt.Errorf("login form: %w", err)
		}
	}
	submit, err := c.browser.Find(ctx, "button[type='submit']")
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if err := c.browser.Click(ctx, submit); err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if err := c.settle(ctx); err != nil {
		return err
	}

	if current, err = c.browser.CurrentURL(ctx); err != nil {
		return err
	}
	if challenged(current) {
		if c.opts.Headless || c.Challenge == nil {
			return fmt.Errorf("%w: %s", ErrChallenge, current)
		}
		c.logger.Warn("login checkpoint detected, waiting for manual completion", zap.String("url", current))
		if err := c.Challenge(ctx, current); err != nil {
			return err
		}
		if current, err = c.browser.CurrentURL(ctx); err != nil {
			return err
		}
	}

	if !loggedIn(current) {
		return fmt.Errorf("%w: landed on %s", ErrLoginFailed, current)
	}
	c.logger.Info("logged in")
	return nil
}

func loggedIn(raw string) bool {
	path := urlPath(raw)
	return !challenged(raw) && (strings.HasPrefix(path, "/feed") || strings.HasPrefix(path, "/in/") || strings.HasPrefix(path, "/jobs"))
}

func challenged(raw string) bool {
	path := urlPath(raw)
	return strings.HasPrefix(path, "/checkpoint") || strings.Contains(path, "/challenge")
}

func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}
