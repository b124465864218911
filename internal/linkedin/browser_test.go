package linkedin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap/zaptest"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/browser"
)

// fakeBrowser serves canned pages and answers selectors with goquery.
type fakeBrowser struct {
	route    func(url string) (string, error)
	redirect func(url string) string
	onClick  func(selector string)

	url  string
	html string

	navigated []string
	clicks    []string
	typed     map[string]string
	selected  map[string]string
	files     map[string][]string
	// checked holds toggled checkbox state by element id.
	checked map[string]bool
}

func newFakeBrowser(route func(url string) (string, error)) *fakeBrowser {
	return &fakeBrowser{
		route:    route,
		typed:    make(map[string]string),
		selected: make(map[string]string),
		files:    make(map[string][]string),
		checked:  make(map[string]bool),
	}
}

func (f *fakeBrowser) show(url, html string) {
	f.url, f.html = url, html
}

func (f *fakeBrowser) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	if f.redirect != nil {
		if to := f.redirect(url); to != "" {
			url = to
		}
	}
	if f.route == nil {
		f.url = url
		return nil
	}
	html, err := f.route(url)
	if err != nil {
		return err
	}
	f.show(url, html)
	return nil
}

func (f *fakeBrowser) selection(selector string) (*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(f.html))
	if err != nil {
		return nil, err
	}
	return doc.Find(selector), nil
}

func element(selector string, s *goquery.Selection) *browser.Element {
	attrs := make(map[string]string)
	for _, a := range s.Nodes[0].Attr {
		attrs[a.Key] = a.Val
	}
	return browser.NewElement(selector, goquery.NodeName(s), attrs, nil)
}

func (f *fakeBrowser) Find(_ context.Context, selector string) (*browser.Element, error) {
	s, err := f.selection(selector)
	if err != nil {
		return nil, err
	}
	if s.Length() == 0 {
		return nil, browser.ErrNotFound
	}
	return element(selector, s.First()), nil
}

func (f *fakeBrowser) FindAll(_ context.Context, selector string) ([]*browser.Element, error) {
	s, err := f.selection(selector)
	if err != nil {
		return nil, err
	}
	var els []*browser.Element
	s.Each(func(_ int, one *goquery.Selection) {
		els = append(els, element(selector, one))
	})
	return els, nil
}

func (f *fakeBrowser) Click(_ context.Context, el *browser.Element) error {
	f.clicks = append(f.clicks, el.Selector)
	switch {
	case el.Attr("type") == "checkbox" && el.Attr("id") != "":
		f.toggle(el.Attr("id"))
	case el.Tag == "label" && el.Attr("for") != "":
		f.toggle(el.Attr("for"))
	}
	if f.onClick != nil {
		f.onClick(el.Selector)
	}
	return nil
}

func (f *fakeBrowser) Type(_ context.Context, el *browser.Element, text string) error {
	f.typed[el.Selector] = text
	return nil
}

func (f *fakeBrowser) ReadText(_ context.Context, el *browser.Element) (string, error) {
	s, err := f.selection(el.Selector)
	if err != nil {
		return "", err
	}
	return collapse(s.First().Text()), nil
}

func (f *fakeBrowser) CurrentURL(context.Context) (string, error) {
	return f.url, nil
}

func (f *fakeBrowser) HTML(context.Context) (string, error) {
	return f.html, nil
}

func (f *fakeBrowser) SetFiles(_ context.Context, el *browser.Element, paths ...string) error {
	f.files[el.Selector] = paths
	return nil
}

func (f *fakeBrowser) SelectOption(_ context.Context, el *browser.Element, value string) error {
	f.selected[el.Selector] = value
	return nil
}

// Checked mimics the live checked property: markup only sets the initial state.
func (f *fakeBrowser) Checked(_ context.Context, el *browser.Element) (bool, error) {
	return f.isChecked(el.Attr("id")), nil
}

func (f *fakeBrowser) isChecked(id string) bool {
	if v, ok := f.checked[id]; ok {
		return v
	}
	s, err := f.selection(`[id="` + id + `"]`)
	if err != nil || s.Length() == 0 {
		return false
	}
	_, ok := s.First().Attr("checked")
	return ok
}

func (f *fakeBrowser) toggle(id string) {
	f.checked[id] = !f.isChecked(id)
}

func (f *fakeBrowser) Close() error {
	return nil
}

func newTestClient(t *testing.T, b browser.Browser, opts Options) *Client {
	t.Helper()
	if opts.BaseURL == "" {
		opts.BaseURL = "https://li.test"
	}
	c := New(b, opts, zaptest.NewLogger(t))
	c.wait = func(context.Context, time.Duration) error { return nil }
	return c
}
