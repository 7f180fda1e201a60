package sepadoc

const (
	pageHeaderHeight = 22
	pageRowHeight    = 20
)

// Pagination describes how the working set splits into pages for a viewport.
type Pagination struct {
	ViewportHeight int
	ItemsPerPage   int
	PageCount      int
	Total          int
}

func paginate(viewportHeight, total int) Pagination {
	perPage := (viewportHeight - pageHeaderHeight) / pageRowHeight
	if perPage < 1 {
		perPage = 1
	}

	return Pagination{
		ViewportHeight: viewportHeight,
		ItemsPerPage:   perPage,
		PageCount:      (total + perPage - 1) / perPage,
		Total:          total,
	}
}

// bounds returns the slice bounds of page (zero based), clamped to the working set.
func (p Pagination) bounds(page int) (int, int) {
	if page < 0 || page >= p.PageCount {
		return 0, 0
	}

	start := page * p.ItemsPerPage
	end := start + p.ItemsPerPage
	if end > p.Total {
		end = p.Total
	}

	return start, end
}
