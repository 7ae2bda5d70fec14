package sdk

import (
	"context"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"

	"github.com/yaroslav/azfluent/models"
)

// Pager walks a nextLink-chained list and wraps every element with the same
// function used for single-item fetches. It is forward-only and not restartable.
type Pager[T, R any] struct {
	pager *runtime.Pager[models.Page[T]]
	wrap  func(T) R
}

// NewPager returns a pager whose first page is a GET of path. Each following page is
// a GET of the previous page's nextLink (or odata.nextLink), until a page has none.
func NewPager[T, R any](c *Client, path string, wrap func(T) R) *Pager[T, R] {
	return NewActionPager(c, http.MethodGet, path, nil, wrap)
}

// NewActionPager is NewPager for list operations exposed as actions, such as
// POST .../listOutputFiles. Every page, including those fetched by nextLink, is
// requested with method and body.
func NewActionPager[T, R any](c *Client, method, path string, body any, wrap func(T) R) *Pager[T, R] {
	return &Pager[T, R]{
		pager: runtime.NewPager(runtime.PagingHandler[models.Page[T]]{
			More: func(page models.Page[T]) bool {
				return page.Next() != ""
			},
			Fetcher: func(ctx context.Context, page *models.Page[T]) (models.Page[T], error) {
				next := path
				if page != nil {
					next = page.Next()
				}

				var result models.Page[T]
				if err := c.DoJSON(ctx, method, next, body, &result); err != nil {
					return models.Page[T]{}, err
				}
				return result, nil
			},
		}),
		wrap: wrap,
	}
}

// More reports whether another page can be fetched.
func (p *Pager[T, R]) More() bool {
	return p.pager.More()
}

// NextPage fetches the next page and wraps its elements.
func (p *Pager[T, R]) NextPage(ctx context.Context) ([]R, error) {
	page, err := p.pager.NextPage(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]R, 0, len(page.Value))
	for _, v := range page.Value {
		items = append(items, p.wrap(v))
	}
	return items, nil
}

// All drains the remaining pages into a single slice, in service order.
func (p *Pager[T, R]) All(ctx context.Context) ([]R, error) {
	var all []R
	for p.More() {
		items, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}

// Collect drains pager into a slice.
func Collect[T, R any](ctx context.Context, pager *Pager[T, R]) ([]R, error) {
	return pager.All(ctx)
}
