package procurement

import (
	"errors"
	"time"
)

// Stage is the position of a request within the fulfilment pipeline.
type Stage string

const (
	StageNewRequest Stage = "New Request"
	StageResourcing Stage = "Resourcing"
	StageCOCE       Stage = "CO/CE"
	StageCustoms    Stage = "Customs"
	StageLogistics  Stage = "Logistics"
	StageDelivered  Stage = "Delivered"
)

// Stages lists the pipeline in order.
func Stages() []Stage {
	return []Stage{StageNewRequest, StageResourcing, StageCOCE, StageCustoms, StageLogistics, StageDelivered}
}

// Valid reports whether s is one of the pipeline stages.
func (s Stage) Valid() bool {
	for _, st := range Stages() {
		if st == s {
			return true
		}
	}
	return false
}

// Status is the coarse lifecycle state, orthogonal to Stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusCompleted Status = "completed"
)

// Terminal reports whether no further workflow transitions apply.
func (s Status) Terminal() bool {
	return s == StatusDeclined || s == StatusCompleted
}

// Request is one procurement workflow instance.
type Request struct {
	ID              string    `json:"id"`
	RFQNumber       string    `json:"rfqNumber,omitempty"`
	PONumber        string    `json:"poNumber,omitempty"`
	Entity          string    `json:"entity"`
	Description     string    `json:"description"`
	Vendor          string    `json:"vendor,omitempty"`
	PlaceOfDelivery string    `json:"placeOfDelivery,omitempty"`
	PlaceOfArrival  string    `json:"placeOfArrival,omitempty"`
	PODate          string    `json:"poDate,omitempty"`
	ExpDeliveryDate string    `json:"expDeliveryDate,omitempty"`
	DateDelivered   string    `json:"dateDelivered,omitempty"`
	MGPETA          string    `json:"mgpEta,omitempty"`
	DateDue         string    `json:"dateDue,omitempty"`
	QtyRequested    float64   `json:"qtyRequested"`
	QtyDelivered    float64   `json:"qtyDelivered"`
	QtyPending      float64   `json:"qtyPending"`
	TotalPrice      float64   `json:"totalPrice"`
	OverDelivered   bool      `json:"overDelivered,omitempty"`
	Stage           Stage     `json:"stage"`
	Status          Status    `json:"status"`
	ClientID        string    `json:"clientId"`
	BuyerID         string    `json:"buyerId,omitempty"`
	IsPublic        bool      `json:"isPublic"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Items           []Item    `json:"items"`
	Files           []File    `json:"files"`
	Version         int64     `json:"version"`
}

// Reference returns the business identifier shown to users.
func (r Request) Reference() string {
	switch {
	case r.RFQNumber != "":
		return r.RFQNumber
	case r.PONumber != "":
		return r.PONumber
	default:
		return r.ID
	}
}

// Item is one line within a request.
type Item struct {
	ID            string   `json:"id"`
	ItemNumber    string   `json:"itemNumber"`
	Description   string   `json:"description"`
	QtyRequested  float64  `json:"qtyRequested"`
	QtyDelivered  float64  `json:"qtyDelivered"`
	QtyPending    float64  `json:"qtyPending"`
	UnitPrice     *float64 `json:"unitPrice,omitempty"`
	TotalPrice    *float64 `json:"totalPrice,omitempty"`
	Line          int      `json:"line"`
	OverDelivered bool     `json:"overDelivered,omitempty"`
}

// File is attachment metadata owned by a request.
type File struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	UploadedAt time.Time `json:"uploadedAt"`
	IsPublic   bool      `json:"isPublic"`
}

var (
	// ErrNotFound indicates a missing request or item.
	ErrNotFound = errors.New("procurement: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("procurement: invalid input")
	// ErrInvalidState occurs when action violates status workflow.
	ErrInvalidState = errors.New("procurement: invalid state transition")
	// ErrLastItem rejects removal of the only remaining item.
	ErrLastItem = errors.New("procurement: request must keep at least one item")
	// ErrForbidden indicates the actor may not perform the action.
	ErrForbidden = errors.New("procurement: forbidden")
	// ErrVersionConflict indicates the caller's snapshot is stale.
	ErrVersionConflict = errors.New("procurement: version conflict")
	// ErrSuperseded reports that the backend already holds a newer version of
	// the request than the snapshot being saved.
	ErrSuperseded = errors.New("procurement: snapshot superseded")
	// ErrTableMissing signals the backend schema is absent.
	ErrTableMissing = errors.New("procurement: backend table missing")
)

func cloneRequest(r Request) Request {
	out := r
	if r.Items != nil {
		out.Items = make([]Item, len(r.Items))
		for i, it := range r.Items {
			out.Items[i] = cloneItem(it)
		}
	}
	if r.Files != nil {
		out.Files = append([]File(nil), r.Files...)
	}
	return out
}

func cloneItem(it Item) Item {
	out := it
	if it.UnitPrice != nil {
		v := *it.UnitPrice
		out.UnitPrice = &v
	}
	if it.TotalPrice != nil {
		v := *it.TotalPrice
		out.TotalPrice = &v
	}
	return out
}
