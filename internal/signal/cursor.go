package signal

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultCursorStaleAge is used when a cursor source is built without a stale age.
const DefaultCursorStaleAge = 2 * time.Hour

type cursorWire struct {
	ID            string    `json:"id"`
	SourceType    string    `json:"source_type"`
	Status        string    `json:"status"`
	LastFetchedAt timestamp `json:"last_fetched_at"`
	Error         string    `json:"error"`
}

type cursorIssueWire struct {
	Type       string `json:"type"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	CursorID   string `json:"cursor_id"`
	SourceType string `json:"source_type"`
}

type cursorStatusWire struct {
	Cursors []cursorWire      `json:"cursors"`
	Issues  []cursorIssueWire `json:"issues"`
}

// NewCursorSource creates the cursor continuity source. Cursors not fetched
// within staleAge are classified stale.
func NewCursorSource(cfg HTTPSourceConfig, staleAge time.Duration) *HTTPSource[CursorStatus] {
	cfg.ID = SourceCursors
	if staleAge <= 0 {
		staleAge = DefaultCursorStaleAge
	}
	return NewHTTPSource(cfg, func(data json.RawMessage, now time.Time) (CursorStatus, error) {
		return normalizeCursors(data, now, staleAge)
	})
}

func normalizeCursors(data json.RawMessage, now time.Time, staleAge time.Duration) (CursorStatus, error) {
	var wire cursorStatusWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return CursorStatus{}, fmt.Errorf("decoding cursor status: %w", err)
	}

	status := CursorStatus{
		Cursors: make([]Cursor, 0, len(wire.Cursors)),
		Issues:  make([]CursorIssue, 0, len(wire.Issues)),
	}

	for _, c := range wire.Cursors {
		cursor := Cursor{
			ID:            c.ID,
			SourceType:    normalizeWord(c.SourceType),
			Status:        normalizeWord(c.Status),
			LastFetchedAt: c.LastFetchedAt.ptr(),
			Error:         c.Error,
		}
		cursor.State = classifyCursor(cursor, now, staleAge)

		switch cursor.State {
		case CursorError:
			status.Errored++
		case CursorStale:
			status.Stale++
		default:
			status.Active++
		}
		status.Cursors = append(status.Cursors, cursor)
	}

	for _, i := range wire.Issues {
		issueType := normalizeWord(i.Type)
		if issueType == "" {
			continue
		}
		status.Issues = append(status.Issues, CursorIssue{
			Type:       issueType,
			Severity:   normalizeWord(i.Severity),
			Message:    i.Message,
			CursorID:   i.CursorID,
			SourceType: normalizeWord(i.SourceType),
		})
	}

	return status, nil
}

// classifyCursor separates an explicit upstream error from staleness. A
// cursor that was never fetched is stale.
func classifyCursor(c Cursor, now time.Time, staleAge time.Duration) string {
	if c.Status == CursorError {
		return CursorError
	}
	if c.LastFetchedAt == nil || now.Sub(*c.LastFetchedAt) > staleAge {
		return CursorStale
	}
	return CursorActive
}
