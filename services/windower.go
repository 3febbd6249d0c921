package services

import (
	"fmt"
	"sort"
	"strings"

	"retail-pipeline/models"
)

// WindowBy selects how canonical transactions are split into runs.
type WindowBy string

const (
	WindowAll   WindowBy = "all"
	WindowMonth WindowBy = "month"
	WindowDay   WindowBy = "day"
)

// ParseWindowBy validates a window granularity name.
func ParseWindowBy(s string) (WindowBy, error) {
	switch w := WindowBy(strings.ToLower(strings.TrimSpace(s))); w {
	case WindowAll, WindowMonth, WindowDay:
		return w, nil
	case "":
		return WindowAll, nil
	default:
		return "", fmt.Errorf("windower: unknown window %q", s)
	}
}

// Partition splits txns into disjoint windows sorted by key. Input order is
// preserved inside each window so tie-breaks stay stable.
func Partition(txns []*models.Transaction, by WindowBy) []models.Window {
	if by == WindowAll || by == "" || len(txns) == 0 {
		return []models.Window{{Key: string(WindowAll), Transactions: txns}}
	}

	groups := make(map[string][]*models.Transaction)
	for _, t := range txns {
		key := windowKey(t, by)
		groups[key] = append(groups[key], t)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	windows := make([]models.Window, 0, len(keys))
	for _, k := range keys {
		windows = append(windows, models.Window{Key: k, Transactions: groups[k]})
	}
	return windows
}

func windowKey(t *models.Transaction, by WindowBy) string {
	if by == WindowDay {
		return t.InvoiceDate.Format("2006-01-02")
	}
	return fmt.Sprintf("%04d-%02d", t.Year, t.Month)
}
