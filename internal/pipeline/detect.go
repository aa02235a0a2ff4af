package pipeline

import (
	"path/filepath"
	"strings"

	"procure/internal"
)

type DetectResult struct {
	IsTracker bool
	Score     float64
	Reason    string
}

var detectKeywords = []string{"order tracker", "purchase order", "po status", "procurement", "laminaar", "grn", "shipment"}

// DetectTrackerEmail scores whether a message is likely to carry a tracker export.
func DetectTrackerEmail(subject, text string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) {
			score += 0.1
		}
	}
	for _, name := range attachmentNames {
		if IsTrackerAttachment(name) {
			score += 0.5
			break
		}
	}
	if score > 1 {
		score = 1
	}

	isTracker := score >= 0.5
	reason := "rules_negative"
	if isTracker {
		reason = "rules_positive"
	}
	return DetectResult{IsTracker: isTracker, Score: score, Reason: reason}
}

func IsTrackerAttachment(name string) bool {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".xlsx", ".xlsm", ".xls", ".csv", ".htm", ".html":
		return true
	}
	return false
}

// HasTrackerHeader reports whether header carries the order and part columns.
func HasTrackerHeader(header []string, profile internal.ColumnProfile) bool {
	idx := headerIndex(header)
	_, order := idx.lookup(profile.Header(internal.ColOrderNo))
	_, part := idx.lookup(profile.Header(internal.ColPartNo))
	return order && part
}
