package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"billed/internal/container"
	"billed/internal/http/middleware"
	"billed/internal/metrics"
	"billed/internal/model"
	"billed/internal/route"
	"billed/internal/service"
	"billed/internal/session"
	"billed/internal/store"
	"billed/internal/view"
)

// FileTooLargeMessage is shown when a receipt exceeds the upload limit.
const FileTooLargeMessage = "Le fichier dépasse la taille autorisée."

// ViewsConfig wires the HTML page handlers.
type ViewsConfig struct {
	Bills          service.BillService
	Sessions       session.Opener
	Renderer       *view.Renderer
	Metrics        *metrics.Bills
	Logger         *slog.Logger
	UploadMaxBytes int64
}

// Views serves the HTML pages. Every request builds its own container.
type Views struct {
	bills     service.BillService
	sessions  session.Opener
	render    *view.Renderer
	metrics   *metrics.Bills
	logger    *slog.Logger
	uploadMax int64
}

// NewViews creates the page handlers.
func NewViews(cfg ViewsConfig) *Views {
	v := &Views{
		bills:     cfg.Bills,
		sessions:  cfg.Sessions,
		render:    cfg.Renderer,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		uploadMax: cfg.UploadMaxBytes,
	}
	if v.logger == nil {
		v.logger = slog.Default()
	}
	return v
}

// list describes one rendering of the bill table.
type list struct {
	heading   string
	canCreate bool
	path      string
}

var (
	employeeList = list{heading: "Mes notes de frais", canCreate: true, path: route.Bills}
	adminList    = list{heading: "Tableau de bord", canCreate: false, path: route.Dashboard}
)

// LoadSession returns the user stored in the request's session.
func (v *Views) LoadSession(c *fiber.Ctx) (model.Session, error) {
	if v.sessions == nil {
		return model.Session{}, session.ErrNoSession
	}
	kv, err := v.sessions(c)
	if err != nil {
		return model.Session{}, err
	}
	return session.NewAccessor(kv).Current()
}

func (v *Views) html(c *fiber.Ctx, status int, render func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	c.Status(status).Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

// LoginPage shows the login form, or sends a logged in user home.
func (v *Views) LoginPage(c *fiber.Ctx) error {
	if s, err := v.LoadSession(c); err == nil {
		return c.Redirect(route.Home(s.IsEmployee()), fiber.StatusSeeOther)
	}
	return v.html(c, fiber.StatusOK, func(w io.Writer) error {
		return v.render.Login(w, view.LoginPage{})
	})
}

// Login stores the user in the session.
func (v *Views) Login(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.FormValue("email"))
	role := model.Role(c.FormValue("type", string(model.RoleEmployee)))
	switch {
	case strings.EqualFold(string(role), string(model.RoleEmployee)):
		role = model.RoleEmployee
	case strings.EqualFold(string(role), string(model.RoleAdmin)):
		role = model.RoleAdmin
	default:
		return v.html(c, fiber.StatusBadRequest, func(w io.Writer) error {
			return v.render.Login(w, view.LoginPage{Error: "Profil inconnu"})
		})
	}
	if email == "" {
		return v.html(c, fiber.StatusBadRequest, func(w io.Writer) error {
			return v.render.Login(w, view.LoginPage{Error: "Adresse e-mail requise"})
		})
	}

	kv, err := v.sessions(c)
	if err != nil {
		return err
	}
	acc := session.NewAccessor(kv)
	acc.Clear()
	s := model.Session{Type: role, Email: email}
	if err := acc.Save(s); err != nil {
		return err
	}
	if err := kv.Save(); err != nil {
		return err
	}
	v.logger.Info("login", "email", email, "role", string(role))
	return c.Redirect(route.Home(s.IsEmployee()), fiber.StatusSeeOther)
}

// Logout clears the session.
func (v *Views) Logout(c *fiber.Ctx) error {
	kv, err := v.sessions(c)
	if err != nil {
		return err
	}
	session.NewAccessor(kv).Clear()
	if err := kv.Save(); err != nil {
		return err
	}
	return c.Redirect(route.Login, fiber.StatusSeeOther)
}

// BillsPage lists the employee's bills.
func (v *Views) BillsPage(c *fiber.Ctx) error {
	return v.renderList(c, employeeList, "", false)
}

// BillsPreview lists the employee's bills with the receipt at ?url= open.
func (v *Views) BillsPreview(c *fiber.Ctx) error {
	return v.renderList(c, employeeList, c.Query("url"), true)
}

// Dashboard lists every bill for an admin.
func (v *Views) Dashboard(c *fiber.Ctx) error {
	return v.renderList(c, adminList, "", false)
}

// DashboardPreview is Dashboard with the receipt at ?url= open.
func (v *Views) DashboardPreview(c *fiber.Ctx) error {
	return v.renderList(c, adminList, c.Query("url"), true)
}

// Loading shows the loading page.
func (v *Views) Loading(c *fiber.Ctx) error {
	return v.html(c, fiber.StatusOK, func(w io.Writer) error {
		return v.render.Bills(w, view.BillsPage{Loading: true})
	})
}

func (v *Views) renderList(c *fiber.Ctx, l list, fileURL string, preview bool) error {
	s, ok := middleware.SessionFromCtx(c)
	if !ok {
		return c.Redirect(route.Login, fiber.StatusSeeOther)
	}

	bills := container.NewBills(container.BillsConfig{
		Store:  store.ForSession(v.bills, s),
		Logger: v.logger,
	})
	rows, err := bills.Load(c.UserContext())
	if err != nil {
		v.metrics.ListError()
		return v.html(c, fiber.StatusInternalServerError, func(w io.Writer) error {
			return v.render.Bills(w, view.BillsPage{Error: err.Error()})
		})
	}

	page := view.BillsPage{
		Heading:   l.heading,
		Bills:     rows,
		CanCreate: l.canCreate,
		ClosePath: l.path,
	}
	if preview {
		m := bills.HandleClickIconEye(fileURL)
		page.Modal = view.Modal{Open: m.Open, FileURL: m.FileURL}
	}
	return v.html(c, fiber.StatusOK, func(w io.Writer) error {
		return v.render.Bills(w, page)
	})
}

// NewBillClick follows the New Bill button.
func (v *Views) NewBillClick(c *fiber.Ctx) error {
	rec := &route.Recorder{}
	container.NewBills(container.BillsConfig{Navigate: rec.Navigate, Logger: v.logger}).HandleClickNewBill()
	return c.Redirect(rec.Path, fiber.StatusSeeOther)
}

// NewBillPage shows the New Bill form with the receipt uploaded so far.
func (v *Views) NewBillPage(c *fiber.Ctx) error {
	kv, err := v.sessions(c)
	if err != nil {
		return err
	}
	d := session.NewAccessor(kv).Draft()
	return v.html(c, fiber.StatusOK, func(w io.Writer) error {
		return v.render.NewBill(w, view.NewBillPage{FileName: d.FileName, FileInputValue: d.FileName})
	})
}

// NewBillFile receives the receipt selected in the form.
func (v *Views) NewBillFile(c *fiber.Ctx) error {
	s, ok := middleware.SessionFromCtx(c)
	if !ok {
		return c.Redirect(route.Login, fiber.StatusSeeOther)
	}
	kv, err := v.sessions(c)
	if err != nil {
		return err
	}
	acc := session.NewAccessor(kv)

	var alert string
	nb := container.NewNewBill(container.NewBillConfig{
		Store:   store.ForSession(v.bills, s),
		Session: s,
		Alerter: container.AlertFunc(func(m string) { alert = m }),
		Logger:  v.logger,
		Draft:   acc.Draft(),
	})

	var sel store.FileSelection
	if fh, err := c.FormFile("file"); err == nil {
		if v.uploadMax > 0 && fh.Size > v.uploadMax {
			v.metrics.Upload(metrics.OutcomeRejected)
			return v.html(c, fiber.StatusRequestEntityTooLarge, func(w io.Writer) error {
				return v.render.NewBill(w, view.NewBillPage{Alert: FileTooLargeMessage, FileName: nb.Draft().FileName})
			})
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}
		sel = store.FileSelection{Name: fh.Filename, ContentType: ct, Size: fh.Size, Content: f}
	}

	if _, err := nb.HandleChangeFile(c.UserContext(), sel); err != nil {
		status := fiber.StatusInternalServerError
		outcome := metrics.OutcomeFailed
		if errors.Is(err, container.ErrUnsupportedFile) {
			status = fiber.StatusUnprocessableEntity
			outcome = metrics.OutcomeRejected
		}
		v.metrics.Upload(outcome)
		return v.html(c, status, func(w io.Writer) error {
			return v.render.NewBill(w, view.NewBillPage{
				Alert:          alert,
				FileName:       nb.Draft().FileName,
				FileInputValue: nb.FileInputValue(),
			})
		})
	}

	v.metrics.Upload(metrics.OutcomeOK)
	acc.SaveDraft(nb.Draft())
	if err := kv.Save(); err != nil {
		return err
	}
	return c.Redirect(route.NewBill, fiber.StatusSeeOther)
}

// NewBillSubmit sends the New Bill form.
func (v *Views) NewBillSubmit(c *fiber.Ctx) error {
	s, ok := middleware.SessionFromCtx(c)
	if !ok {
		return c.Redirect(route.Login, fiber.StatusSeeOther)
	}
	kv, err := v.sessions(c)
	if err != nil {
		return err
	}
	acc := session.NewAccessor(kv)

	rec := &route.Recorder{}
	nb := container.NewNewBill(container.NewBillConfig{
		Store:    store.ForSession(v.bills, s),
		Session:  s,
		Navigate: rec.Navigate,
		Logger:   v.logger,
		Draft:    acc.Draft(),
	})

	form := container.Form{
		Type:       c.FormValue("expense-type"),
		Name:       c.FormValue("expense-name"),
		Date:       c.FormValue("datepicker"),
		Amount:     c.FormValue("amount"),
		VAT:        c.FormValue("vat"),
		Pct:        c.FormValue("pct"),
		Commentary: c.FormValue("commentary"),
	}
	if err := nb.HandleSubmit(c.UserContext(), form); err != nil {
		v.metrics.Submit(metrics.OutcomeFailed)
		return v.html(c, fiber.StatusInternalServerError, func(w io.Writer) error {
			return v.render.NewBill(w, view.NewBillPage{FileName: nb.Draft().FileName, FileInputValue: nb.Draft().FileName})
		})
	}

	v.metrics.Submit(metrics.OutcomeOK)
	acc.ClearDraft()
	if err := kv.Save(); err != nil {
		return err
	}
	return c.Redirect(rec.Path, fiber.StatusSeeOther)
}
