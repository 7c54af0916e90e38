package models

import (
	"encoding/json"
	"strconv"
)

// Verb is the normalised action extracted from a change note.
type Verb string

const (
	VerbAdded   Verb = "added"
	VerbUpdated Verb = "updated"
	VerbChanged Verb = "changed"
	VerbDeleted Verb = "deleted"
)

// RawChangeRecord is one row of the upstream change log report. Monetary columns are
// kept undecoded because nothing downstream reads them.
type RawChangeRecord struct {
	OrderID    int64           `json:"orderId"`
	OrgName    string          `json:"orgName,omitempty"`
	ClientName string          `json:"clientName,omitempty"`
	JobType    string          `json:"jobType,omitempty"`
	Note       string          `json:"note,omitempty"`
	ChangeBy   string          `json:"changeBy,omitempty"`
	EventDate  string          `json:"eventDate,omitempty"`
	BeginDate1 string          `json:"beginDate1,omitempty"`
	ReturnDate string          `json:"beginDate3_5,omitempty"`
	JobTotal   json.RawMessage `json:"jobTotal,omitempty"`
	BalanceDue json.RawMessage `json:"balanceDue,omitempty"`
}

// ShowName resolves the grouping key: organisation, then client, then the job number.
func (r RawChangeRecord) ShowName() string {
	if r.OrgName != "" {
		return r.OrgName
	}
	if r.ClientName != "" {
		return r.ClientName
	}
	return "Job " + strconv.FormatInt(r.OrderID, 10)
}

// ClassifiedChange is a visible change row ready for display. Dates are passed through
// exactly as the upstream formatted them.
type ClassifiedChange struct {
	Show       string `json:"show"`
	OrderID    int64  `json:"orderId"`
	Item       string `json:"item"`
	Verb       *Verb  `json:"verb"`
	ChangeBy   string `json:"changeBy"`
	EventDate  string `json:"eventDate"`
	Note       string `json:"note"`
	PrepDate   string `json:"prepDate"`
	ReturnDate string `json:"returnDate"`
}

// SortKey orders rows inside a show; missing event dates sort first.
func (c ClassifiedChange) SortKey() string {
	return c.EventDate
}

// VerbString returns the verb or an empty string when none was detected.
func (c ClassifiedChange) VerbString() string {
	if c.Verb == nil {
		return ""
	}
	return string(*c.Verb)
}
