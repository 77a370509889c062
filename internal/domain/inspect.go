package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// InspectPage reports every way in which page's counts contradict each other
// or its list. An empty result means the page is coherent.
//
// A full set of zero items may be reported as either zero or one page.
func InspectPage[T any](page Page[T]) Set[string] {
	var issues []string
	if page.TotalItemCount < 0 {
		issues = append(issues, "totalItemCount: must be non-negative")
	}
	if page.TotalPageCount < 0 {
		issues = append(issues, "totalPageCount: must be non-negative")
	}
	if page.TotalItemCount < len(page.List) {
		issues = append(issues, fmt.Sprintf("totalItemCount: must be at least the number of items in list (%d)", len(page.List)))
	}
	switch {
	case page.TotalItemCount > 0 && page.TotalPageCount < 1:
		issues = append(issues, "totalPageCount: must be at least 1 when totalItemCount is positive")
	case page.TotalItemCount == 0 && page.TotalPageCount > 1:
		issues = append(issues, "totalPageCount: must be 0 or 1 when totalItemCount is 0")
	case page.TotalItemCount > 0 && page.TotalPageCount > page.TotalItemCount:
		issues = append(issues, "totalPageCount: cannot exceed totalItemCount")
	}
	return NewSet(issues...)
}

type InspectionReport struct {
	ID             uuid.UUID   `json:"id"`
	Source         URL         `json:"source,omitzero"`
	InspectedBy    uuid.UUID   `json:"inspected_by,omitzero"`
	ItemCount      int         `json:"item_count"`
	TotalItemCount int         `json:"total_item_count"`
	TotalPageCount int         `json:"total_page_count"`
	Valid          bool        `json:"valid"`
	Issues         Set[string] `json:"issues"`
}

func NewInspectionReport[T any](page Page[T]) InspectionReport {
	issues := InspectPage(page)
	return InspectionReport{
		ID:             uuid.New(),
		ItemCount:      len(page.List),
		TotalItemCount: page.TotalItemCount,
		TotalPageCount: page.TotalPageCount,
		Valid:          len(issues) == 0,
		Issues:         issues,
	}
}
