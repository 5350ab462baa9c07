package search

import (
	"cragline/backend/internal/domain/activity"
	"cragline/backend/internal/domain/user"
)

type Filter string

const (
	FilterAll    Filter = "all"
	FilterUsers  Filter = "users"
	FilterBeta   Filter = "beta"
	FilterEvents Filter = "events"
)

func ParseFilter(s string) (Filter, bool) {
	switch f := Filter(s); f {
	case FilterAll, FilterUsers, FilterBeta, FilterEvents:
		return f, true
	case "":
		return FilterAll, true
	}
	return "", false
}

type ResultKind string

const (
	ResultUser  ResultKind = "user"
	ResultBeta  ResultKind = "beta"
	ResultEvent ResultKind = "event"
)

// Result is one hit. User is set for ResultUser, Item otherwise.
type Result struct {
	Kind ResultKind     `json:"type"`
	User *user.User     `json:"user,omitempty"`
	Item *activity.Item `json:"item,omitempty"`
}

// MinQueryLength is counted in characters after trimming.
const MinQueryLength = 2
