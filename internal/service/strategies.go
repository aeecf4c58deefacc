package service

import (
	"cmp"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/phrazzld/taskstore/internal/domain"
	"github.com/phrazzld/taskstore/internal/store"
)

// Filter strategy names accepted by GetTasks and GetTasksSorted.
const (
	FilterAll       = "all"
	FilterCompleted = "completed"
	FilterPending   = "pending"
)

// Sort strategy names accepted by GetTasksSorted.
const (
	SortByTitle     = "title"
	SortByCreatedAt = "createdAt"
	SortByOrder     = "order"
)

// titleCollator compares titles with locale-aware, case-insensitive rules.
var titleCollator = collate.New(language.Und, collate.Loose)

// filterStrategies is the fixed table of named task filters.
var filterStrategies = map[string]store.TaskPredicate{
	FilterAll:       func(domain.Task) bool { return true },
	FilterCompleted: func(task domain.Task) bool { return task.Completed },
	FilterPending:   func(task domain.Task) bool { return !task.Completed },
}

// sortStrategies is the fixed table of named task comparators.
var sortStrategies = map[string]func(a, b domain.Task) int{
	SortByTitle:     func(a, b domain.Task) int { return titleCollator.CompareString(a.Title, b.Title) },
	SortByCreatedAt: func(a, b domain.Task) int { return cmp.Compare(a.CreatedAt, b.CreatedAt) },
	SortByOrder:     func(a, b domain.Task) int { return cmp.Compare(a.Order, b.Order) },
}

// lookupFilter resolves a filter name to its predicate. An empty name means
// FilterAll; an unknown name fails with the list of valid options.
func lookupFilter(name string) (store.TaskPredicate, error) {
	if name == "" {
		name = FilterAll
	}
	predicate, ok := filterStrategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown filter %q, valid filters are: %s",
			store.ErrInvalidArgument, name, strategyNames(filterStrategies))
	}
	return predicate, nil
}

// lookupSort resolves a sort name to its comparator. An unknown name fails
// with the list of valid options.
func lookupSort(name string) (func(a, b domain.Task) int, error) {
	comparator, ok := sortStrategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sort %q, valid sorts are: %s",
			store.ErrInvalidArgument, name, strategyNames(sortStrategies))
	}
	return comparator, nil
}

// strategyNames returns the table's keys sorted and comma-joined for error messages.
func strategyNames[V any](table map[string]V) string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
