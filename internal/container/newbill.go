package container

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"billed/internal/model"
	"billed/internal/route"
	"billed/internal/session"
	"billed/internal/store"
)

// UnsupportedFileMessage is shown when a receipt is not an image we accept.
const UnsupportedFileMessage = "Seuls les fichiers jpg, jpeg ou png sont acceptés."

var ErrUnsupportedFile = errors.New("unsupported receipt file type")

var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
}

// AllowedFile reports whether name ends in .jpg, .jpeg or .png, in any case.
// Only the name is checked; the declared MIME type and content are not.
func AllowedFile(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return allowedExtensions[strings.ToLower(ext)]
}

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(message string)
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(message string)

func (f AlertFunc) Alert(message string) { f(message) }

// Form is the submitted New Bill form, as raw field values.
type Form struct {
	Type       string
	Name       string
	Date       string
	Amount     string
	VAT        string
	Pct        string
	Commentary string
}

// NewBillConfig wires a NewBill container. Draft restores a receipt uploaded
// by an earlier request.
type NewBillConfig struct {
	Store    store.Store
	Session  model.Session
	Navigate route.Navigator
	Alerter  Alerter
	Logger   *slog.Logger
	Draft    session.Draft
}

// NewBill drives the New Bill page.
type NewBill struct {
	store    store.Store
	session  model.Session
	navigate route.Navigator
	alerter  Alerter
	logger   *slog.Logger

	file           *store.FileSelection
	fileInputValue string
	fileURL        string
	fileName       string
	billID         string

	updateBill func(ctx context.Context, bill *model.Bill) error
}

// NewNewBill creates a NewBill container.
func NewNewBill(cfg NewBillConfig) *NewBill {
	c := &NewBill{
		store:    cfg.Store,
		session:  cfg.Session,
		navigate: cfg.Navigate,
		alerter:  cfg.Alerter,
		logger:   cfg.Logger,
		fileURL:  cfg.Draft.FileURL,
		fileName: cfg.Draft.FileName,
		billID:   cfg.Draft.BillID,
	}
	if c.navigate == nil {
		c.navigate = func(string) {}
	}
	if c.alerter == nil {
		c.alerter = AlertFunc(func(string) {})
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.updateBill = c.UpdateBill
	return c
}

// HandleChangeFile validates and uploads the selected receipt. A rejected
// file raises one alert and clears the input; nothing is logged. Upload
// failures are logged and returned without alerting.
func (c *NewBill) HandleChangeFile(ctx context.Context, file store.FileSelection) (*model.UploadedFile, error) {
	if !AllowedFile(file.Name) {
		c.alerter.Alert(UnsupportedFileMessage)
		c.file = nil
		c.fileInputValue = ""
		return nil, ErrUnsupportedFile
	}
	c.file = &file
	c.fileInputValue = file.Name

	if c.store == nil {
		return nil, ErrNoStore
	}
	uploaded, err := c.store.Upload(ctx, c.session.Email, file)
	if err != nil {
		c.logger.Error("upload_receipt_failed", "file_name", file.Name, "error", err)
		return nil, err
	}
	c.fileURL = uploaded.FileURL
	c.fileName = uploaded.FileName
	c.billID = uploaded.Key
	return uploaded, nil
}

// HandleSubmit turns the form into a pending bill for the session user and
// saves it. On success it navigates to the bill list; on failure it logs,
// stays on the page and returns the error.
func (c *NewBill) HandleSubmit(ctx context.Context, form Form) error {
	bill := c.BillFromForm(form)
	if err := c.updateBill(ctx, bill); err != nil {
		c.logger.Error("update_bill_failed", "bill_id", bill.ID, "error", err)
		return err
	}
	c.navigate(route.Bills)
	return nil
}

// BillFromForm maps the form onto a bill. Numbers that do not parse are
// passed on as NaN; checking them is not this page's job.
func (c *NewBill) BillFromForm(form Form) *model.Bill {
	return &model.Bill{
		ID:         c.billID,
		Email:      c.session.Email,
		Type:       model.ExpenseType(form.Type),
		Name:       form.Name,
		Date:       form.Date,
		Amount:     model.ParseNumber(form.Amount),
		VAT:        model.ParseNumber(form.VAT),
		Pct:        model.ParseNumber(form.Pct),
		Commentary: form.Commentary,
		FileURL:    c.fileURL,
		FileName:   c.fileName,
		Status:     model.StatusPending,
	}
}

// UpdateBill saves bill through the store: the draft created by the receipt
// upload is updated, and a bill without a draft is created.
func (c *NewBill) UpdateBill(ctx context.Context, bill *model.Bill) error {
	if c.store == nil {
		return ErrNoStore
	}
	if bill.ID == "" {
		_, err := c.store.Create(ctx, bill)
		return err
	}
	_, err := c.store.Update(ctx, bill)
	return err
}

// File returns the retained receipt selection, nil when the input is empty.
func (c *NewBill) File() *store.FileSelection {
	return c.file
}

// FileInputValue is the value of the receipt input, "" once cleared.
func (c *NewBill) FileInputValue() string {
	return c.fileInputValue
}

// Draft returns what must survive until the form is submitted.
func (c *NewBill) Draft() session.Draft {
	return session.Draft{BillID: c.billID, FileURL: c.fileURL, FileName: c.fileName}
}
