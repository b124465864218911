package linkedin

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/browser"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/jobs"
)

// Stream yields postings lazily, one search page at a time.
type Stream struct {
	client  *Client
	urls    []string
	skip    func(id string) bool
	queue   []string
	seen    map[string]struct{}
	url     int
	page    int
	yielded int

	maxPages    int
	maxPostings int
}

// Search returns a stream over the postings matching params. Ids for which skip
// returns true are never fetched.
func (c *Client) Search(params *SearchParams, skip func(id string) bool) *Stream {
	s := &Stream{
		client:      c,
		urls:        SearchURLs(c.opts.BaseURL, params),
		skip:        skip,
		seen:        make(map[string]struct{}),
		maxPages:    defaultMaxPages,
		maxPostings: defaultMaxPostings,
	}
	if params != nil {
		if params.MaxPages > 0 {
			s.maxPages = params.MaxPages
		}
		if params.MaxPostings > 0 {
			s.maxPostings = params.MaxPostings
		}
	}
	return s
}

// Next returns the next posting or io.EOF when the searches are exhausted.
// Only a lost browser session or cancellation is returned as an error; pages
// that fail to load or parse are logged and skipped.
func (s *Stream) Next(ctx context.Context) (*jobs.Posting, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.yielded >= s.maxPostings {
			return nil, io.EOF
		}

		for len(s.queue) > 0 {
			id := s.queue[0]
			s.queue = s.queue[1:]

			posting, err := s.client.Posting(ctx, id)
			if err != nil {
				if fatal(ctx, err) {
					return nil, err
				}
				s.client.logger.Warn("skip posting", zap.String("posting_id", id), zap.Error(err))
				continue
			}
			s.yielded++
			return posting, nil
		}

		if s.url >= len(s.urls) {
			return nil, io.EOF
		}
		if err := s.fetchPage(ctx); err != nil {
			return nil, err
		}
	}
}

// Collect drains the stream.
func (s *Stream) Collect(ctx context.Context) (*jobs.Postings, error) {
	postings := &jobs.Postings{}
	for {
		posting, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			return postings, nil
		}
		if err != nil {
			return postings, err
		}
		postings.Items = append(postings.Items, posting)
	}
}

func (s *Stream) fetchPage(ctx context.Context) error {
	url := PageURL(s.urls[s.url], s.page, perPage)
	log := s.client.logger.With(zap.String("url", url), zap.Int("page", s.page))

	ids, err := s.searchPage(ctx, url)
	if err != nil {
		if fatal(ctx, err) {
			return err
		}
		log.Warn("search page failed", zap.Error(err))
		ids = nil
	}

	fresh := 0
	for _, id := range ids {
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		fresh++
		if s.skip != nil && s.skip(id) {
			continue
		}
		s.queue = append(s.queue, id)
	}
	log.Debug("search page read", zap.Int("ids", len(ids)), zap.Int("new", fresh), zap.Int("queued", len(s.queue)))

	if fresh == 0 || s.page+1 >= s.maxPages {
		s.url++
		s.page = 0
		return nil
	}
	s.page++
	return nil
}

func (s *Stream) searchPage(ctx context.Context, url string) ([]string, error) {
	if err := s.client.navigate(ctx, url); err != nil {
		return nil, err
	}
	html, err := s.client.browser.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return ParseSearchResults(html)
}

func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, browser.ErrStaleSession) || ctx.Err() != nil
}
