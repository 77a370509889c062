package domain

import (
	"encoding/json"
	"sort"

	"golang.org/x/exp/constraints"
)

type Set[T constraints.Ordered] []T

func NewSet[T constraints.Ordered](items ...T) Set[T] {
	seen := make(map[T]bool, len(items))
	elements := make([]T, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		elements = append(elements, item)
	}
	sort.Slice(elements, func(i, j int) bool {
		return elements[i] < elements[j]
	})
	return elements
}

func (set Set[T]) MarshalJSON() ([]byte, error) {
	if set == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]T(set))
}

func (set *Set[T]) UnmarshalJSON(data []byte) (err error) {
	var elements []T
	err = json.Unmarshal(data, &elements)
	if err != nil {
		return
	}
	*set = NewSet(elements...)
	return
}
