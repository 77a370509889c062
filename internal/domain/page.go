package domain

import "encoding/json"

// Page is one page of a larger ordered result set.
//
// The counts describe the full result set and are not checked against List
// or against each other. See InspectPage for consumer-side checks.
type Page[T any] struct {
	List           []T `json:"list"`
	TotalItemCount int `json:"totalItemCount"`
	TotalPageCount int `json:"totalPageCount"`
}

func NewPage[T any](list []T, totalItemCount, totalPageCount int) Page[T] {
	return Page[T]{
		List:           list,
		TotalItemCount: totalItemCount,
		TotalPageCount: totalPageCount,
	}
}

// MarshalJSON always emits list as an array, including when List is nil.
func (page Page[T]) MarshalJSON() ([]byte, error) {
	list := page.List
	if list == nil {
		list = []T{}
	}
	return json.Marshal(struct {
		List           []T `json:"list"`
		TotalItemCount int `json:"totalItemCount"`
		TotalPageCount int `json:"totalPageCount"`
	}{
		List:           list,
		TotalItemCount: page.TotalItemCount,
		TotalPageCount: page.TotalPageCount,
	})
}
