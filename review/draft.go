// Package review holds the editable draft of a conversion and the service
// that drives it from a URL to a submitted catalog entry.
package review

import (
	"errors"
	"fmt"
	"time"

	"github.com/c360studio/swagger2dcat/catalog"
	"github.com/c360studio/swagger2dcat/source/landing"
	"github.com/c360studio/swagger2dcat/source/parser"
)

// State is the lifecycle position of a draft.
type State string

const (
	// StateDraft is editable.
	StateDraft State = "draft"

	// StateExported means a download was produced. Any edit returns the
	// draft to StateDraft.
	StateExported State = "exported"

	// StateSubmitted is terminal.
	StateSubmitted State = "submitted"
)

// Event kinds recorded in a draft's history.
const (
	EventCreated      = "created"
	EventEdited       = "edited"
	EventGenerated    = "generated"
	EventTranslated   = "translated"
	EventExported     = "exported"
	EventSubmitted    = "submitted"
	EventSubmitFailed = "submit_failed"
)

// ErrTerminal is returned for any change to a submitted draft.
var ErrTerminal = errors.New("draft already submitted")

// Event is one entry of a draft's history.
type Event struct {
	Kind   string    `json:"kind"`
	From   State     `json:"from"`
	To     State     `json:"to"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Draft is a record under review together with what it was built from.
type Draft struct {
	ID        string           `json:"id"`
	State     State            `json:"state"`
	Record    *catalog.Record  `json:"record"`
	Metadata  *parser.Metadata `json:"metadata"`
	SourceURL string           `json:"source_url"`
	Landing   *landing.Page    `json:"landing,omitempty"`
	DatasetID string           `json:"dataset_id,omitempty"`
	LastError string           `json:"last_error,omitempty"`
	Notices   []string         `json:"notices,omitempty"`
	History   []Event          `json:"history"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Editable reports whether the draft still accepts changes.
func (d *Draft) Editable() bool {
	return d.State != StateSubmitted
}

// transition moves the draft to `to` and appends the event. Submitted
// drafts reject every transition.
func (d *Draft) transition(kind string, to State, detail string, at time.Time) error {
	if !d.Editable() {
		return fmt.Errorf("%s: %w", kind, ErrTerminal)
	}
	d.History = append(d.History, Event{Kind: kind, From: d.State, To: to, Detail: detail, At: at})
	d.State = to
	d.UpdatedAt = at
	return nil
}

// touch records a change of the record. An exported draft returns to
// StateDraft.
func (d *Draft) touch(kind, detail string, at time.Time) error {
	return d.transition(kind, StateDraft, detail, at)
}

// Notice appends a non-fatal message shown with the draft.
func (d *Draft) Notice(msg string) {
	d.Notices = append(d.Notices, msg)
}

// ClearNotices drops shown notices.
func (d *Draft) ClearNotices() {
	d.Notices = nil
}
