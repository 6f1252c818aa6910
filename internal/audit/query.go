package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Query narrows the event log on the read side. Category is evaluated first,
// Search second; Search matches case-insensitively as a substring against the
// resolved actor name, the actor category, the action code and the details.
type Query struct {
	Category Category
	Search   string
	Page     int
	PageSize int
}

// Entry is an event joined with its resolved actor for display.
type Entry struct {
	Event
	Actor ActorInfo `json:"actor"`
}

// Page is one page of query results, newest first.
type Page struct {
	Entries  []Entry `json:"entries"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// Run executes the query. Pagination is 1-indexed; a page beyond the result
// count yields an empty slice, not an error.
func (l *Log) Run(ctx context.Context, q Query) (Page, error) {
	if q.Category == "" {
		q.Category = CategoryAll
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = l.pageSize
	}

	events, err := l.store.ListEvents(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	entries := make([]Entry, 0, len(events))
	for _, e := range events {
		entries = append(entries, Entry{Event: e, Actor: l.resolveActor(ctx, e.ActorID)})
	}

	if q.Category != CategoryAll {
		filtered := entries[:0]
		for _, en := range entries {
			if en.Actor.Category == q.Category {
				filtered = append(filtered, en)
			}
		}
		entries = filtered
	}

	if search := strings.TrimSpace(q.Search); search != "" {
		needle := strings.ToLower(search)
		filtered := entries[:0]
		for _, en := range entries {
			if matchesSearch(en, needle) {
				filtered = append(filtered, en)
			}
		}
		entries = filtered
	}

	// Newest first; equal timestamps fall back to insertion order.
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].OccurredAt.Equal(entries[j].OccurredAt) {
			return entries[i].OccurredAt.After(entries[j].OccurredAt)
		}
		return entries[i].Seq > entries[j].Seq
	})

	total := len(entries)
	start := (q.Page - 1) * q.PageSize
	if start >= total {
		return Page{Entries: []Entry{}, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	return Page{Entries: entries[start:end], Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

func matchesSearch(en Entry, needle string) bool {
	for _, field := range []string{
		en.Actor.Name,
		string(en.Actor.Category),
		en.Action,
		en.Details,
	} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
