package procurement

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Numeric carries a backend numeric column as text. It accepts both JSON
// strings and JSON numbers so rows from either transport decode the same way.
type Numeric string

// UnmarshalJSON implements json.Unmarshaler.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*n = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(s)
		return nil
	}
	*n = Numeric(data)
	return nil
}

// Float coerces the value to a non-negative float. Anything unparseable is 0.
func (n Numeric) Float() float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// Present reports whether the column holds a usable number.
func (n Numeric) Present() bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
	return err == nil
}

// RequestRow mirrors one row of the requests table.
type RequestRow struct {
	ID              string    `json:"id"`
	RFQNumber       string    `json:"rfq_number"`
	PONumber        string    `json:"po_number"`
	Entity          string    `json:"entity"`
	Description     string    `json:"description"`
	Vendor          string    `json:"vendor"`
	PlaceOfDelivery string    `json:"place_of_delivery"`
	PlaceOfArrival  string    `json:"place_of_arrival"`
	PODate          string    `json:"po_date"`
	ExpDeliveryDate string    `json:"exp_delivery_date"`
	DateDelivered   string    `json:"date_delivered"`
	MGPETA          string    `json:"mgp_eta"`
	DateDue         string    `json:"date_due"`
	QtyRequested    Numeric   `json:"qty_requested"`
	QtyDelivered    Numeric   `json:"qty_delivered"`
	QtyPending      Numeric   `json:"qty_pending"`
	Stage           string    `json:"stage"`
	Status          string    `json:"status"`
	ClientID        string    `json:"client_id"`
	BuyerID         string    `json:"buyer_id"`
	IsPublic        bool      `json:"is_public"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ItemRow mirrors one row of the request_items table.
type ItemRow struct {
	ID           string  `json:"id"`
	RequestID    string  `json:"request_id"`
	ItemNumber   string  `json:"item_number"`
	Description  string  `json:"description"`
	QtyRequested Numeric `json:"qty_requested"`
	QtyDelivered Numeric `json:"qty_delivered"`
	UnitPrice    Numeric `json:"unit_price"`
	Line         int     `json:"line"`
}

// FileRow mirrors one row of the request_files table.
type FileRow struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	IsPublic   bool      `json:"is_public"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ToRequest maps a backend row and its item rows onto the canonical model.
// Quantities are always recomputed from the items; the row's own quantity
// columns are not trusted.
func ToRequest(row RequestRow, items []ItemRow) Request {
	req := Request{
		ID:              row.ID,
		RFQNumber:       row.RFQNumber,
		PONumber:        row.PONumber,
		Entity:          row.Entity,
		Description:     row.Description,
		Vendor:          row.Vendor,
		PlaceOfDelivery: row.PlaceOfDelivery,
		PlaceOfArrival:  row.PlaceOfArrival,
		PODate:          row.PODate,
		ExpDeliveryDate: row.ExpDeliveryDate,
		DateDelivered:   row.DateDelivered,
		MGPETA:          row.MGPETA,
		DateDue:         row.DateDue,
		Stage:           Stage(row.Stage),
		Status:          Status(row.Status),
		ClientID:        row.ClientID,
		BuyerID:         row.BuyerID,
		IsPublic:        row.IsPublic,
		Version:         row.Version,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		Items:           make([]Item, 0, len(items)),
		Files:           []File{},
	}
	if !req.Stage.Valid() {
		req.Stage = StageNewRequest
	}
	if req.Status == "" {
		req.Status = StatusPending
	}
	sorted := append([]ItemRow(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Line < sorted[j].Line })
	for _, ir := range sorted {
		req.Items = append(req.Items, toItem(ir))
	}
	renumberLines(req.Items)
	recompute(&req)
	return req
}

// WithFiles attaches file rows to a transformed request.
func WithFiles(req Request, files []FileRow) Request {
	for _, f := range files {
		req.Files = append(req.Files, File{
			ID:         f.ID,
			Name:       f.Name,
			URL:        f.URL,
			Size:       f.Size,
			Type:       f.Type,
			UploadedAt: f.UploadedAt,
			IsPublic:   f.IsPublic,
		})
	}
	return req
}

func toItem(row ItemRow) Item {
	it := Item{
		ID:           row.ID,
		ItemNumber:   row.ItemNumber,
		Description:  row.Description,
		QtyRequested: row.QtyRequested.Float(),
		QtyDelivered: row.QtyDelivered.Float(),
		Line:         row.Line,
	}
	if row.UnitPrice.Present() {
		p := row.UnitPrice.Float()
		it.UnitPrice = &p
	}
	return it
}

// ToRows maps a request back onto backend row shapes.
func ToRows(req Request) (RequestRow, []ItemRow, []FileRow) {
	row := RequestRow{
		ID:              req.ID,
		RFQNumber:       req.RFQNumber,
		PONumber:        req.PONumber,
		Entity:          req.Entity,
		Description:     req.Description,
		Vendor:          req.Vendor,
		PlaceOfDelivery: req.PlaceOfDelivery,
		PlaceOfArrival:  req.PlaceOfArrival,
		PODate:          req.PODate,
		ExpDeliveryDate: req.ExpDeliveryDate,
		DateDelivered:   req.DateDelivered,
		MGPETA:          req.MGPETA,
		DateDue:         req.DateDue,
		QtyRequested:    formatNumeric(req.QtyRequested),
		QtyDelivered:    formatNumeric(req.QtyDelivered),
		QtyPending:      formatNumeric(req.QtyPending),
		Stage:           string(req.Stage),
		Status:          string(req.Status),
		ClientID:        req.ClientID,
		BuyerID:         req.BuyerID,
		IsPublic:        req.IsPublic,
		Version:         req.Version,
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
	}
	items := make([]ItemRow, 0, len(req.Items))
	for _, it := range req.Items {
		ir := ItemRow{
			ID:           it.ID,
			RequestID:    req.ID,
			ItemNumber:   it.ItemNumber,
			Description:  it.Description,
			QtyRequested: formatNumeric(it.QtyRequested),
			QtyDelivered: formatNumeric(it.QtyDelivered),
			Line:         it.Line,
		}
		if it.UnitPrice != nil {
			ir.UnitPrice = formatNumeric(*it.UnitPrice)
		}
		items = append(items, ir)
	}
	files := make([]FileRow, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, FileRow{
			ID:         f.ID,
			RequestID:  req.ID,
			Name:       f.Name,
			URL:        f.URL,
			Size:       f.Size,
			Type:       f.Type,
			IsPublic:   f.IsPublic,
			UploadedAt: f.UploadedAt,
		})
	}
	return row, items, files
}

// quantityScale matches the scale of the numeric columns.
const quantityScale = 4

func roundQuantity(v float64) float64 {
	return decimal.NewFromFloat(v).Round(quantityScale).InexactFloat64()
}

func formatNumeric(v float64) Numeric {
	return Numeric(strconv.FormatFloat(v, 'f', -1, 64))
}

// recompute derives item and request level quantities and prices.
func recompute(req *Request) {
	var requested, delivered float64
	total := decimal.Zero
	req.OverDelivered = false
	for i := range req.Items {
		it := &req.Items[i]
		it.QtyPending = it.QtyRequested - it.QtyDelivered
		it.OverDelivered = it.QtyDelivered > it.QtyRequested
		it.TotalPrice = nil
		if it.UnitPrice != nil {
			line := decimal.NewFromFloat(*it.UnitPrice).Mul(decimal.NewFromFloat(it.QtyRequested)).Round(2)
			v := line.InexactFloat64()
			it.TotalPrice = &v
			total = total.Add(line)
		}
		if it.OverDelivered {
			req.OverDelivered = true
		}
		requested += it.QtyRequested
		delivered += it.QtyDelivered
	}
	req.QtyRequested = requested
	req.QtyDelivered = delivered
	req.QtyPending = requested - delivered
	req.TotalPrice = total.InexactFloat64()
}

func renumberLines(items []Item) {
	for i := range items {
		items[i].Line = i + 1
	}
}

func maxLine(items []Item) int {
	highest := 0
	for _, it := range items {
		if it.Line > highest {
			highest = it.Line
		}
	}
	return highest
}
