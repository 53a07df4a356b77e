package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"billed/internal/container"
	"billed/internal/logging"
	"billed/internal/metrics"
	"billed/internal/model"
	"billed/internal/route"
	"billed/internal/service"
	serviceMocks "billed/internal/service/mocks"
	"billed/internal/session"
	"billed/internal/view"
)

type pagesFixture struct {
	app  *fiber.App
	svc  *serviceMocks.MockBillService
	mem  *session.MemoryStorage
	logs *bytes.Buffer
	reg  *prometheus.Registry
}

func newPages(t *testing.T) *pagesFixture {
	t.Helper()
	r, err := view.New()
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	m, err := metrics.NewBills(reg)
	require.NoError(t, err)

	f := &pagesFixture{
		app:  fiber.New(fiber.Config{ErrorHandler: ErrorHandler()}),
		svc:  new(serviceMocks.MockBillService),
		mem:  session.NewMemoryStorage(),
		logs: &bytes.Buffer{},
		reg:  reg,
	}
	RegisterRoutes(f.app, Dependencies{
		Bills:          f.svc,
		Sessions:       func(*fiber.Ctx) (session.Storage, error) { return f.mem, nil },
		Renderer:       r,
		Metrics:        m,
		Logger:         logging.New(f.logs, time.UTC),
		UploadMaxBytes: 1 << 20,
	})
	return f
}

func (f *pagesFixture) login(t *testing.T, s model.Session) {
	t.Helper()
	require.NoError(t, session.NewAccessor(f.mem).Save(s))
}

func (f *pagesFixture) do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLogin(t *testing.T) {
	t.Run("employee", func(t *testing.T) {
		f := newPages(t)

		resp, _ := f.do(t, postForm("/login", url.Values{"email": {"a@a"}, "type": {"Employee"}}))

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, route.Bills, resp.Header.Get("Location"))
		s, err := session.NewAccessor(f.mem).Current()
		require.NoError(t, err)
		assert.Equal(t, employee, s)
	})

	t.Run("admin", func(t *testing.T) {
		f := newPages(t)

		resp, _ := f.do(t, postForm("/login", url.Values{"email": {"admin@billed"}, "type": {"admin"}}))

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, route.Dashboard, resp.Header.Get("Location"))
	})

	t.Run("missing email", func(t *testing.T) {
		f := newPages(t)

		resp, body := f.do(t, postForm("/login", url.Values{"type": {"Employee"}}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, `data-testid="login-error"`)
	})

	t.Run("unknown role", func(t *testing.T) {
		f := newPages(t)

		resp, _ := f.do(t, postForm("/login", url.Values{"email": {"a@a"}, "type": {"Boss"}}))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("login page sends a logged in user home", func(t *testing.T) {
		f := newPages(t)
		f.login(t, employee)

		resp, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, route.Bills, resp.Header.Get("Location"))
	})

	t.Run("logout", func(t *testing.T) {
		f := newPages(t)
		f.login(t, employee)
		session.NewAccessor(f.mem).SaveDraft(session.Draft{BillID: "bill-1"})

		resp, _ := f.do(t, httptest.NewRequest(http.MethodPost, "/logout", nil))

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		_, err := session.NewAccessor(f.mem).Current()
		assert.ErrorIs(t, err, session.ErrNoSession)
		assert.Equal(t, session.Draft{}, session.NewAccessor(f.mem).Draft())
	})
}

func TestBillsPage(t *testing.T) {
	t.Run("latest first", func(t *testing.T) {
		f := newPages(t)
		f.login(t, employee)
		f.svc.On("List", mock.Anything, "a@a", 0, 0).Return(&service.BillListResult{Items: []model.Bill{
			{ID: "old", Date: "2004-04-04", Status: model.StatusPending},
			{ID: "new", Date: "2024-01-01", Status: model.StatusAccepted},
		}, Total: 2}, nil)

		resp, body := f.do(t, httptest.NewRequest(http.MethodGet, route.Bills, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Less(t, strings.Index(body, "1 Jan. 24"), strings.Index(body, "4 Avr. 04"))
		assert.Contains(t, body, `data-testid="btn-new-bill"`)
		assert.Equal(t, 2, strings.Count(body, `data-testid="icon-eye"`))
	})

	t.Run("store rejection shows the raw message", func(t *testing.T) {
		for _, msg := range []string{"Erreur 404", "Erreur 500"} {
			f := newPages(t)
			f.login(t, employee)
			f.svc.On("List", mock.Anything, "a@a", 0, 0).Return(nil, errors.New(msg))

			resp, body := f.do(t, httptest.NewRequest(http.MethodGet, route.Bills, nil))

			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Contains(t, body, msg)
			assert.NotContains(t, body, `data-testid="tbody"`)
		}
	})

	t.Run("admins are sent to login", func(t *testing.T) {
		f := newPages(t)
		f.login(t, admin)

		resp, _ := f.do(t, httptest.NewRequest(http.MethodGet, route.Bills, nil))

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, route.Login, resp.Header.Get("Location"))
	})

	t.Run("preview", func(t *testing.T) {
		f := newPages(t)
		f.login(t, employee)
		f.svc.On("List", mock.Anything, "a@a", 0, 0).Return(&service.BillListResult{}, nil)

		target := route.Bills + "/preview?url=" + url.QueryEscape("http://localhost/files/receipts/k.jpg")
		resp, body := f.do(t, httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `data-testid="modaleFile"`)
		assert.Contains(t, body, `src="http://localhost/files/receipts/k.jpg"`)
	})

	t.Run("loading", func(t *testing.T) {
		f := newPages(t)
		f.login(t, employee)

		_, body := f.do(t, httptest.NewRequest(http.MethodGet, route.Bills+"/loading", nil))

		assert.Contains(t, body, "Loading...")
	})

	t.Run("new bill button", func(t *testing.T) {
		f := newPages(t)
		f.login(t, employee)

		resp, _ := f.do(t, httptest.NewRequest(http.MethodPost, route.Bills+"/new", nil))

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, route.NewBill, resp.Header.Get("Location"))
	})
}

func TestDashboard(t *testing.T) {
	f := newPages(t)
	f.login(t, admin)
	f.svc.On("List", mock.Anything, "", 0, 0).Return(&service.BillListResult{Items: []model.Bill{
		{ID: "1", Email: "a@a", Date: "2020-02-02"},
		{ID: "2", Email: "b@b", Date: "2021-01-01"},
	}, Total: 2}, nil)

	resp, body := f.do(t, httptest.NewRequest(http.MethodGet, route.Dashboard, nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Tableau de bord")
	assert.NotContains(t, body, `data-testid="btn-new-bill"`)
	assert.Less(t, strings.Index(body, "1 Jan. 21"), strings.Index(body, "2 Fév. 20"))
	f.svc.AssertExpectations(t)
}

func TestNewBillFile(t *testing.T) {
	t.Run("unsupported file", func(t *testing.T) {
		f := newPages(t)
		f.login(t, employee)
		body, ct := multipartFile(t, "sample.txt", "text/plain", "hello")
		req := httptest.NewRequest(http.MethodPost, route.NewBill+"/file", body)
		req.Header.Set("Content-Type", ct)

		resp, html := f.do(t, req)

		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, 1, strings.Count(html, `data-testid="alert"`))
		assert.Contains(t, html, container.UnsupportedFileMessage)
		assert.Contains(t, html, `data-testid="file" value=""`)
		assert.Empty(t, f.logs.String())
		f.svc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

		expected := `
# HELP billed_receipt_uploads_total Receipt selections by outcome.
# TYPE billed_receipt_uploads_total counter
billed_receipt_uploads_total{outcome="rejected"} 1
`
		assert.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "billed_receipt_uploads_total"))
	})

	t.Run("accepted file becomes the draft", func(t *testing.T) {
		f := newPages(t)
		f.login(t, employee)
		f.svc.On("Upload", mock.Anything, mock.Anything, "a@a", "sample.jpg", "image/jpg", int64(10)).
			Return(&model.UploadedFile{FileURL: "http://localhost/files/receipts/k.jpg", FileName: "sample.jpg", Key: "bill-1"}, nil).Once()
		body, ct := multipartFile(t, "sample.jpg", "image/jpg", "jpeg bytes")
		req := httptest.NewRequest(http.MethodPost, route.NewBill+"/file", body)
		req.Header.Set("Content-Type", ct)

		resp, _ := f.do(t, req)

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, route.NewBill, resp.Header.Get("Location"))
		assert.Equal(t, session.Draft{
			BillID:   "bill-1",
			FileURL:  "http://localhost/files/receipts/k.jpg",
			FileName: "sample.jpg",
		}, session.NewAccessor(f.mem).Draft())
		f.svc.AssertExpectations(t)

		_, page := f.do(t, httptest.NewRequest(http.MethodGet, route.NewBill, nil))
		assert.Contains(t, page, `data-testid="file-name">sample.jpg<`)
		assert.NotContains(t, page, `data-testid="alert"`)
	})

	t.Run("upload failure is logged, not alerted", func(t *testing.T) {
		f := newPages(t)
		f.login(t, employee)
		f.svc.On("Upload", mock.Anything, mock.Anything, "a@a", "sample.png", "image/png", int64(5)).
			Return(nil, errors.New("Erreur 500")).Once()
		body, ct := multipartFile(t, "sample.png", "image/png", "hello")
		req := httptest.NewRequest(http.MethodPost, route.NewBill+"/file", body)
		req.Header.Set("Content-Type", ct)

		resp, html := f.do(t, req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.NotContains(t, html, `data-testid="alert"`)
		assert.Contains(t, f.logs.String(), "upload_receipt_failed")
	})
}

func TestNewBillSubmit(t *testing.T) {
	form := url.Values{
		"expense-type": {string(model.ExpenseTransports)},
		"expense-name": {"Vol Paris Londres"},
		"datepicker":   {"2004-04-04"},
		"amount":       {"348"},
		"vat":          {"70"},
		"pct":          {"20"},
		"commentary":   {"séminaire billed"},
	}

	t.Run("success", func(t *testing.T) {
		f := newPages(t)
		f.login(t, employee)
		session.NewAccessor(f.mem).SaveDraft(session.Draft{BillID: "bill-1", FileURL: "http://localhost/files/receipts/k.jpg", FileName: "sample.jpg"})
		f.svc.On("Get", mock.Anything, "bill-1").Return(&model.Bill{ID: "bill-1", Email: "a@a"}, nil).Once()
		f.svc.On("Update", mock.Anything, mock.MatchedBy(func(b *model.Bill) bool {
			return b.ID == "bill-1" &&
				b.Email == "a@a" &&
				b.Status == model.StatusPending &&
				b.Amount == 348 &&
				b.FileName == "sample.jpg"
		})).Return(&model.Bill{ID: "bill-1"}, nil).Once()

		resp, _ := f.do(t, postForm(route.NewBill, form))

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, route.Bills, resp.Header.Get("Location"))
		assert.Equal(t, session.Draft{}, session.NewAccessor(f.mem).Draft())
		f.svc.AssertExpectations(t)
		f.svc.AssertNumberOfCalls(t, "Update", 1)
	})

	t.Run("rejected update stays on the page", func(t *testing.T) {
		f := newPages(t)
		f.login(t, employee)
		session.NewAccessor(f.mem).SaveDraft(session.Draft{BillID: "bill-1", FileName: "sample.jpg"})
		f.svc.On("Get", mock.Anything, "bill-1").Return(&model.Bill{ID: "bill-1", Email: "a@a"}, nil).Once()
		f.svc.On("Update", mock.Anything, mock.Anything).Return(nil, errors.New("Erreur 500")).Once()

		resp, html := f.do(t, postForm(route.NewBill, form))

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Empty(t, resp.Header.Get("Location"))
		assert.Contains(t, html, `data-testid="form-new-bill"`)
		assert.NotContains(t, html, `data-testid="alert"`)
		assert.Contains(t, f.logs.String(), "update_bill_failed")
		assert.Equal(t, "bill-1", session.NewAccessor(f.mem).Draft().BillID)
	})

	t.Run("without receipt creates the bill", func(t *testing.T) {
		f := newPages(t)
		f.login(t, employee)
		f.svc.On("Create", mock.Anything, mock.MatchedBy(func(b *model.Bill) bool {
			return b.Email == "a@a" && b.Name == "Vol Paris Londres"
		})).Return(&model.Bill{ID: "new"}, nil).Once()

		resp, _ := f.do(t, postForm(route.NewBill, form))

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		f.svc.AssertExpectations(t)
	})
}
