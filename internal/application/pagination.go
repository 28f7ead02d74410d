package application

import (
	"fmt"

	"github.com/atvirokodosprendimai/fundref/internal/domain"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

// normalizePage applies defaults for zero values and rejects out-of-range
// requests. page and page size are 1-based; page size is capped at 100.
func normalizePage(page, pageSize int) (domain.PageRequest, error) {
	if page == 0 {
		page = defaultPage
	}
	if pageSize == 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		return domain.PageRequest{}, fmt.Errorf("%w: page must be >= 1, got %d", domain.ErrInvalidArgument, page)
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return domain.PageRequest{}, fmt.Errorf("%w: page_size must be between 1 and %d, got %d", domain.ErrInvalidArgument, maxPageSize, pageSize)
	}
	return domain.PageRequest{Page: page, PageSize: pageSize}, nil
}
