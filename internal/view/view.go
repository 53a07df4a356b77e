// Package view renders the HTML pages of the application from embedded templates.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"billed/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Modal is the receipt preview state of a bill list.
type Modal struct {
	Open    bool
	FileURL string
}

// BillsPage is the data of the bill list. Loading and Error take precedence
// over the table, in that order.
type BillsPage struct {
	Title       string
	Heading     string
	Loading     bool
	Error       string
	Bills       []model.DisplayBill
	CanCreate   bool
	Modal       Modal
	ClosePath   string
	PreviewPath string
}

// NewBillPage is the data of the New Bill form.
type NewBillPage struct {
	Title          string
	ExpenseTypes   []model.ExpenseType
	Alert          string
	FileName       string
	FileInputValue string
}

// LoginPage is the data of the login form.
type LoginPage struct {
	Title string
	Error string
}

type errorPage struct {
	Title   string
	Message string
}

// Renderer executes the page templates.
type Renderer struct {
	t *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	t, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{t: t}, nil
}

// Bills renders the bill list, or the loading or error page in its place.
func (r *Renderer) Bills(w io.Writer, p BillsPage) error {
	if p.Loading {
		return r.Loading(w)
	}
	if p.Error != "" {
		return r.Error(w, p.Error)
	}
	if p.Title == "" {
		p.Title = "Mes notes de frais"
	}
	if p.Heading == "" {
		p.Heading = "Mes notes de frais"
	}
	if p.ClosePath == "" {
		p.ClosePath = "/employee/bills"
	}
	if p.PreviewPath == "" {
		p.PreviewPath = p.ClosePath + "/preview"
	}
	return r.t.ExecuteTemplate(w, "bills", p)
}

// NewBill renders the New Bill form.
func (r *Renderer) NewBill(w io.Writer, p NewBillPage) error {
	if p.Title == "" {
		p.Title = "Nouvelle note de frais"
	}
	if p.ExpenseTypes == nil {
		p.ExpenseTypes = model.ExpenseTypes
	}
	return r.t.ExecuteTemplate(w, "newbill", p)
}

// Error renders message as is.
func (r *Renderer) Error(w io.Writer, message string) error {
	return r.t.ExecuteTemplate(w, "error", errorPage{Title: "Erreur", Message: message})
}

// Loading renders the loading page.
func (r *Renderer) Loading(w io.Writer) error {
	return r.t.ExecuteTemplate(w, "loading", struct{ Title string }{})
}

// Login renders the login form.
func (r *Renderer) Login(w io.Writer, p LoginPage) error {
	if p.Title == "" {
		p.Title = "Connexion"
	}
	return r.t.ExecuteTemplate(w, "login", p)
}
