package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"billed/internal/container"
	"billed/internal/http/middleware"
	"billed/internal/model"
	"billed/internal/service"
	"billed/internal/store"
)

// userFromCtx returns the session user, writing a 401 when there is none.
func userFromCtx(c *fiber.Ctx) (model.Session, bool) {
	s, ok := middleware.SessionFromCtx(c)
	if !ok {
		_ = Unauthorized(c)
	}
	return s, ok
}

// canSee reports whether s may read bill.
func canSee(s model.Session, bill *model.Bill) bool {
	return !s.IsEmployee() || bill.Email == s.Email
}

// ListBills godoc
// @Summary List bills
// @Description Employees only get their own bills; admins may filter by email.
// @Tags bills
// @Produce json
// @Param limit query int false "page size, 0 for all" default(0)
// @Param offset query int false "rows to skip" default(0)
// @Param email query string false "submitter filter (admins only)"
// @Success 200 {object} service.BillListResult
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Router /api/bills [get]
func ListBills(svc service.BillService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, ok := userFromCtx(c)
		if !ok {
			return nil
		}

		limit, err := strconv.Atoi(c.Query("limit", "0"))
		if err != nil || limit < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil || offset < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		email := c.Query("email")
		if s.IsEmployee() {
			email = s.Email
		}

		res, err := svc.List(c.UserContext(), email, limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetBill godoc
// @Summary Get a bill
// @Tags bills
// @Produce json
// @Param id path string true "bill id (uuid)"
// @Success 200 {object} model.Bill
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/bills/{id} [get]
func GetBill(svc service.BillService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, ok := userFromCtx(c)
		if !ok {
			return nil
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		bill, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		if !canSee(s, bill) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "bill not found")
		}
		return c.JSON(bill)
	}
}

// CreateBill godoc
// @Summary Create a bill
// @Description The bill is always stored as pending.
// @Tags bills
// @Accept json
// @Produce json
// @Param bill body model.Bill true "bill"
// @Success 201 {object} model.Bill
// @Failure 400 {object} errorPayload
// @Router /api/bills [post]
func CreateBill(svc service.BillService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, ok := userFromCtx(c)
		if !ok {
			return nil
		}
		var in model.Bill
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		bill, err := store.ForSession(svc, s).Create(c.UserContext(), &in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(bill)
	}
}

// UpdateBill godoc
// @Summary Update a bill
// @Description Fields missing from the body keep their stored value.
// @Description Employees may only amend their own bills, which go back to pending.
// @Tags bills
// @Accept json
// @Produce json
// @Param id path string true "bill id (uuid)"
// @Param bill body model.Bill true "fields to change"
// @Success 200 {object} model.Bill
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/bills/{id} [patch]
func UpdateBill(svc service.BillService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, ok := userFromCtx(c)
		if !ok {
			return nil
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		existing, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		if !canSee(s, existing) {
			return writeServiceError(c, service.ErrNotFound)
		}

		// the body is decoded over the stored bill, so a partial patch keeps the rest
		in := *existing
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		in.ID = id

		bill, err := store.ForSession(svc, s).Update(c.UserContext(), &in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(bill)
	}
}

// UploadReceipt godoc
// @Summary Upload a receipt
// @Description Stores a jpg, jpeg or png receipt and creates the pending draft bill pointing at it.
// @Tags bills
// @Accept mpfd
// @Produce json
// @Param file formData file true "receipt"
// @Success 201 {object} model.UploadedFile
// @Failure 400 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Failure 415 {object} errorPayload
// @Router /api/bills/upload [post]
func UploadReceipt(svc service.BillService, maxBytes int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, ok := userFromCtx(c)
		if !ok {
			return nil
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		if maxBytes > 0 && fh.Size > maxBytes {
			return writeError(c, fiber.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file is too large")
		}
		if !container.AllowedFile(fh.Filename) {
			return writeError(c, fiber.StatusUnsupportedMediaType, "UNSUPPORTED_FILE", container.UnsupportedFileMessage)
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

		uploaded, err := store.ForSession(svc, s).Upload(c.UserContext(), c.FormValue("email", s.Email), store.FileSelection{
			Name:        fh.Filename,
			ContentType: ct,
			Size:        fh.Size,
			Content:     f,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(uploaded)
	}
}

// BillFileLink godoc
// @Summary Direct receipt link
// @Description Returns a time-limited link to the bill's receipt in object storage.
// @Tags bills
// @Produce json
// @Param id path string true "bill id (uuid)"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errorPayload
// @Router /api/bills/{id}/file [get]
func BillFileLink(svc service.BillService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, ok := userFromCtx(c)
		if !ok {
			return nil
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		bill, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		if !canSee(s, bill) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "bill not found")
		}

		link, err := svc.FileLink(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"url": link})
	}
}

// ServeFile streams a stored receipt.
func ServeFile(svc service.BillService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, info, err := svc.OpenFile(c.UserContext(), c.Params("*"))
		if err != nil {
			return writeServiceError(c, err)
		}

		ct := info.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderCacheControl, "private, max-age=300")
		// fasthttp closes rc once the body is written
		return c.SendStream(rc, int(info.Size))
	}
}
