package model

import (
	"time"
)

// Status is the review state of a bill. It is assigned by the store, never by the client.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRefused:
		return true
	}
	return false
}

// ExpenseType is the category of an expense.
type ExpenseType string

const (
	ExpenseTransports   ExpenseType = "Transports"
	ExpenseRestaurants  ExpenseType = "Restaurants et bars"
	ExpenseHotel        ExpenseType = "Hôtel et logement"
	ExpenseOnline       ExpenseType = "Services en ligne"
	ExpenseIT           ExpenseType = "IT et électronique"
	ExpenseEquipment    ExpenseType = "Equipement et matériel"
	ExpenseOfficeSupply ExpenseType = "Fournitures de bureau"
)

// ExpenseTypes lists every category in the order the form offers them.
var ExpenseTypes = []ExpenseType{
	ExpenseTransports,
	ExpenseRestaurants,
	ExpenseHotel,
	ExpenseOnline,
	ExpenseIT,
	ExpenseEquipment,
	ExpenseOfficeSupply,
}

// Valid reports whether t is one of ExpenseTypes.
func (t ExpenseType) Valid() bool {
	for _, v := range ExpenseTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Bill is one expense-report record submitted by an employee.
// Date is kept as the raw ISO string (YYYY-MM-DD) so that it compares chronologically
// as text and a malformed value still reaches the list view.
type Bill struct {
	ID         string      `json:"id"`
	Email      string      `json:"email"`
	Type       ExpenseType `json:"type"`
	Name       string      `json:"name"`
	Date       string      `json:"date"`
	Amount     Number      `json:"amount"`
	VAT        Number      `json:"vat"`
	Pct        Number      `json:"pct"`
	Commentary string      `json:"commentary,omitempty"`
	FileURL    string      `json:"fileUrl"`
	FileName   string      `json:"fileName"`
	Status     Status      `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// HasFile reports whether a receipt has been uploaded for the bill.
func (b Bill) HasFile() bool {
	return b.FileURL != "" && b.FileName != ""
}

// UploadedFile is what the store returns after a receipt upload.
type UploadedFile struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	Key      string `json:"key"`
}

// DisplayBill is a bill prepared for the list view.
type DisplayBill struct {
	Bill
	FormattedDate   string `json:"formattedDate"`
	StatusLabel     string `json:"statusLabel"`
	FormattedAmount string `json:"formattedAmount"`
}
