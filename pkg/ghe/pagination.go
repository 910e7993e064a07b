package ghe

import (
	"context"
	"net/url"
	"strconv"

	"github.com/fivetwenty-io/ghe-client/internal/constants"
)

// PageRequest bounds a paged listing. Zero fields are unset: a zero
// PageRequest (or nil) fetches every page at the server's default size.
type PageRequest struct {
	// PageSize is the advisory number of items per page (per_page).
	PageSize int `json:"page_size,omitempty"  yaml:"page_size,omitempty"`
	// PageCount caps how many pages are fetched, starting at StartPage.
	PageCount int `json:"page_count,omitempty" yaml:"page_count,omitempty"`
	// StartPage is the 1-based page the listing starts from.
	StartPage int `json:"start_page,omitempty" yaml:"start_page,omitempty"`
}

// Validate rejects negative values.
func (r *PageRequest) Validate() error {
	if r == nil {
		return nil
	}

	switch {
	case r.PageSize < 0:
		return NewArgumentError("pageSize", "must be a positive integer")
	case r.PageCount < 0:
		return NewArgumentError("pageCount", "must be a positive integer")
	case r.StartPage < 0:
		return NewArgumentError("startPage", "must be a positive integer")
	}

	return nil
}

// EffectiveStartPage returns StartPage, or 1 when unset.
func (r *PageRequest) EffectiveStartPage() int {
	if r == nil || r.StartPage == 0 {
		return constants.FirstPage
	}

	return r.StartPage
}

// EffectivePageSize returns PageSize, or the protocol default when unset.
func (r *PageRequest) EffectivePageSize() int {
	if r == nil || r.PageSize == 0 {
		return constants.DefaultPageSize
	}

	return r.PageSize
}

// Values returns the query parameters selecting the first page.
func (r *PageRequest) Values() url.Values {
	values := url.Values{}
	if r == nil {
		return values
	}

	if r.PageSize > 0 {
		values.Set("per_page", strconv.Itoa(r.PageSize))
	}

	if r.StartPage > 0 {
		values.Set("page", strconv.Itoa(r.StartPage))
	}

	return values
}

// Page is one server-returned batch plus the link to the next one.
type Page[T any] struct {
	Items        []T
	NextPageLink string
}

// PageFunc fetches a single page. An empty link asks for the first page;
// otherwise link is the NextPageLink of the previous page.
type PageFunc[T any] func(ctx context.Context, link string) (*Page[T], error)

// pager walks pages strictly in order. The next link is only known once the
// previous page arrived, so there is no prefetching.
type pager[T any] struct {
	fetch   PageFunc[T]
	limit   int
	fetched int
	next    string
	done    bool
	seen    map[string]struct{}
}

func newPager[T any](fetch PageFunc[T], req *PageRequest) *pager[T] {
	limit := 0
	if req != nil {
		limit = req.PageCount
	}

	return &pager[T]{
		fetch: fetch,
		limit: limit,
		seen:  make(map[string]struct{}),
	}
}

// nextPage returns ErrNoMoreItems once the listing is exhausted.
func (p *pager[T]) nextPage(ctx context.Context) (*Page[T], error) {
	if p.done {
		return nil, ErrNoMoreItems
	}

	err := ctx.Err()
	if err != nil {
		p.done = true

		return nil, NewTransportError(err)
	}

	link := p.next

	page, err := p.fetch(ctx, link)
	if err != nil {
		p.done = true

		return nil, err
	}

	if page == nil {
		page = &Page[T]{}
	}

	p.fetched++
	p.seen[link] = struct{}{}
	p.next = page.NextPageLink

	_, repeated := p.seen[p.next]

	if p.next == "" || repeated || (p.limit > 0 && p.fetched >= p.limit) {
		p.done = true
	}

	return page, nil
}

// FetchAll concatenates the pages selected by req in page order. Any page
// failure aborts the call and nothing fetched so far is returned.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T], req *PageRequest) ([]T, error) {
	err := req.Validate()
	if err != nil {
		return nil, err
	}

	if fetch == nil {
		return nil, NewArgumentError("fetch", "page function is required")
	}

	p := newPager(fetch, req)
	results := make([]T, 0)

	for !p.done {
		page, err := p.nextPage(ctx)
		if err != nil {
			return nil, err
		}

		results = append(results, page.Items...)
	}

	return results, nil
}

// PageIterator yields items one at a time, fetching pages on demand.
type PageIterator[T any] struct {
	ctx    context.Context //nolint:containedctx // iterator is bound to one listing
	pager  *pager[T]
	buffer []T
	err    error
	failed bool
}

// NewPageIterator creates an iterator over the pages selected by req.
func NewPageIterator[T any](ctx context.Context, fetch PageFunc[T], req *PageRequest) *PageIterator[T] {
	it := &PageIterator[T]{
		ctx:   ctx,
		pager: newPager(fetch, req),
	}

	it.err = req.Validate()
	if fetch == nil && it.err == nil {
		it.err = NewArgumentError("fetch", "page function is required")
	}

	return it
}

// HasNext reports whether Next will return an item or an error.
func (it *PageIterator[T]) HasNext() bool {
	if it.failed {
		return false
	}

	for len(it.buffer) == 0 && !it.pager.done && it.err == nil {
		page, err := it.pager.nextPage(it.ctx)
		if err != nil {
			it.err = err

			break
		}

		it.buffer = page.Items
	}

	return len(it.buffer) > 0 || it.err != nil
}

// Next returns the next item.
func (it *PageIterator[T]) Next() (T, error) {
	var zero T

	if !it.HasNext() {
		return zero, ErrNoMoreItems
	}

	if it.err != nil {
		it.failed = true

		return zero, it.err
	}

	item := it.buffer[0]
	it.buffer = it.buffer[1:]

	return item, nil
}

// All drains the iterator.
func (it *PageIterator[T]) All() ([]T, error) {
	results := make([]T, 0)

	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return nil, err
		}

		results = append(results, item)
	}

	return results, nil
}

// ForEach calls fn for every item, stopping at the first error.
func (it *PageIterator[T]) ForEach(fn func(T) error) error {
	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}

// PageResult is one page delivered by StreamPages.
type PageResult[T any] struct {
	Items []T
	Page  int
	Err   error
}

// StreamPages delivers pages on a channel as they are fetched. The channel is
// closed after the last page or after the first error.
func StreamPages[T any](ctx context.Context, fetch PageFunc[T], req *PageRequest) <-chan PageResult[T] {
	results := make(chan PageResult[T], 1)

	go func() {
		defer close(results)

		err := req.Validate()
		if err == nil && fetch == nil {
			err = NewArgumentError("fetch", "page function is required")
		}

		if err != nil {
			results <- PageResult[T]{Err: err}

			return
		}

		p := newPager(fetch, req)
		number := req.EffectiveStartPage()

		for !p.done {
			page, err := p.nextPage(ctx)
			if err != nil {
				select {
				case results <- PageResult[T]{Page: number, Err: err}:
				case <-ctx.Done():
				}

				return
			}

			select {
			case results <- PageResult[T]{Items: page.Items, Page: number}:
			case <-ctx.Done():
				return
			}

			number++
		}
	}()

	return results
}
