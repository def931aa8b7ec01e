package response

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
)

// MaxLimit caps the page size of every list endpoint
const MaxLimit = 100

// PageParams is a validated page request
type PageParams struct {
	Page  int
	Limit int
}

// ParsePage reads page/limit query parameters. Missing values fall back to
// page 1 and defaultLimit; malformed or out-of-range values are rejected.
func ParsePage(c *fiber.Ctx, defaultLimit int) (PageParams, error) {
	params := PageParams{Page: 1, Limit: defaultLimit}
	var fields []apperr.FieldError

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			fields = append(fields, apperr.FieldError{Field: "page", Message: "page must be an integer >= 1", Code: "min"})
		} else {
			params.Page = page
		}
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > MaxLimit {
			fields = append(fields, apperr.FieldError{Field: "limit", Message: "limit must be an integer between 1 and 100", Code: "range"})
		} else {
			params.Limit = limit
		}
	}

	if len(fields) > 0 {
		return params, apperr.Validation("Invalid pagination parameters", fields...)
	}
	return params, nil
}

// CalculatePagination calculates pagination metadata
func CalculatePagination(page, limit int, total int64) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	totalPages := int(total) / limit
	if int(total)%limit > 0 {
		totalPages++
	}

	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Paginate slices items for the requested page
func Paginate[T any](items []T, params PageParams) ([]T, Pagination) {
	meta := CalculatePagination(params.Page, params.Limit, int64(len(items)))
	// checked before multiplying so huge page numbers cannot overflow
	if meta.Page > meta.TotalPages {
		return []T{}, meta
	}
	start := (meta.Page - 1) * meta.Limit
	end := start + meta.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], meta
}
