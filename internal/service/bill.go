package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"billed/internal/model"
	"billed/internal/repository"
	"billed/internal/storage"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrEmailRequired = errors.New("email is required")
	ErrNotFound      = errors.New("bill not found")
	ErrReaderNil     = errors.New("reader is nil")
	ErrInvalidStatus = errors.New("invalid bill status")
	ErrNoFile        = errors.New("bill has no receipt")
)

// FilesPath is the URL prefix receipts are served under.
const FilesPath = "/files/"

// BillListResult is the service-level DTO for a bill listing.
type BillListResult struct {
	Items []model.Bill `json:"data"`
	Total int          `json:"total"`
}

// BillService defines the store use cases for bills.
type BillService interface {
	// List returns bills of one submitter, or every bill when email is empty.
	// A zero limit returns the full collection.
	List(ctx context.Context, email string, limit, offset int) (*BillListResult, error)

	// Get returns a single bill by its ID.
	Get(ctx context.Context, id string) (*model.Bill, error)

	// Create stores a new bill. The status is always pending.
	Create(ctx context.Context, bill *model.Bill) (*model.Bill, error)

	// Update replaces the mutable fields of an existing bill. Email and creation time are
	// kept from the stored record. Partial changes are merged onto Get's result by the caller.
	Update(ctx context.Context, bill *model.Bill) (*model.Bill, error)

	// Upload stores a receipt, creates the pending draft bill pointing at it, and rolls
	// the object back if the draft cannot be saved. Key is the draft bill ID.
	Upload(ctx context.Context, r io.Reader, email, originalFilename, contentType string, size int64) (*model.UploadedFile, error)

	// OpenFile streams a stored receipt.
	OpenFile(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error)

	// FileLink returns a time-limited direct link to a bill's receipt.
	FileLink(ctx context.Context, id string) (string, error)
}

// Options tunes a BillService.
type Options struct {
	// BaseURL prefixes receipt URLs, e.g. "https://billed.example.com".
	BaseURL string
	// PresignExpiry is the lifetime of links returned by FileLink.
	PresignExpiry time.Duration
}

type billService struct {
	store storage.Storage
	repo  repository.BillRepository
	opts  Options
	now   func() time.Time
}

// NewBillService constructs a new BillService.
func NewBillService(store storage.Storage, repo repository.BillRepository, opts Options) BillService {
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = 15 * time.Minute
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &billService{
		store: store,
		repo:  repo,
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *billService) List(ctx context.Context, email string, limit, offset int) (*BillListResult, error) {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.ListQuery{Email: email, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &BillListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *billService) Get(ctx context.Context, id string) (*model.Bill, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	bill, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return bill, nil
}

func (s *billService) Create(ctx context.Context, bill *model.Bill) (*model.Bill, error) {
	if bill.Email == "" {
		return nil, ErrEmailRequired
	}
	now := s.now()
	b := *bill
	b.ID = uuid.New().String()
	b.Status = model.StatusPending
	b.CreatedAt = now
	b.UpdatedAt = now

	stored, err := s.repo.Create(ctx, &b)
	if err != nil {
		return nil, fmt.Errorf("create bill: %w", err)
	}
	return stored, nil
}

func (s *billService) Update(ctx context.Context, bill *model.Bill) (*model.Bill, error) {
	if bill.ID == "" {
		return nil, ErrIDRequired
	}
	existing, err := s.Get(ctx, bill.ID)
	if err != nil {
		return nil, err
	}

	b := *bill
	b.Email = existing.Email
	b.CreatedAt = existing.CreatedAt
	if b.Status == "" {
		b.Status = existing.Status
	}
	if !b.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	b.UpdatedAt = s.now()

	stored, err := s.repo.Update(ctx, &b)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update bill: %w", err)
	}
	return stored, nil
}

func (s *billService) Upload(ctx context.Context, r io.Reader, email, originalFilename, contentType string, size int64) (*model.UploadedFile, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	// Stored name is UUID + original extension; the original name only travels as metadata.
	ext := strings.ToLower(filepath.Ext(originalFilename))
	key := path.Join("receipts", uuid.New().String()+ext)

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
			"submitter":         email,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	fileURL := s.fileURL(objInfo.Key)
	draft, err := s.Create(ctx, &model.Bill{
		Email:    email,
		FileURL:  fileURL,
		FileName: originalFilename,
		Amount:   model.NaN(),
		VAT:      model.NaN(),
		Pct:      model.NaN(),
	})
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, objInfo.Key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	return &model.UploadedFile{
		FileURL:  fileURL,
		FileName: originalFilename,
		Key:      draft.ID,
	}, nil
}

func (s *billService) OpenFile(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" || !strings.HasPrefix(key, "receipts/") || strings.Contains(key, "..") {
		return nil, storage.ObjectInfo{}, ErrNotFound
	}
	return s.store.Get(ctx, key)
}

func (s *billService) FileLink(ctx context.Context, id string) (string, error) {
	bill, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	key := KeyFromURL(bill.FileURL)
	if key == "" {
		return "", ErrNoFile
	}
	link, err := s.store.PresignGet(ctx, key, s.opts.PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign receipt: %w", err)
	}
	return link, nil
}

func (s *billService) fileURL(key string) string {
	return s.opts.BaseURL + FilesPath + key
}

// KeyFromURL extracts the storage key from a receipt URL built by this service.
// It returns "" for URLs that do not point at FilesPath.
func KeyFromURL(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}
	i := strings.Index(u.Path, FilesPath)
	if i < 0 {
		return ""
	}
	return u.Path[i+len(FilesPath):]
}
