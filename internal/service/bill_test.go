package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"billed/internal/model"
	"billed/internal/repository"
	repoMocks "billed/internal/repository/mocks"
	"billed/internal/storage"
	storeMocks "billed/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testOpts = Options{BaseURL: "https://billed.test/", PresignExpiry: time.Minute}

func TestBillService_Upload(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name             string
		email            string
		originalFilename string
		contentType      string
		size             int64
		setupMocks       func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockBillRepository) io.Reader
		wantErr          error
		wantErrMsg       string
		check            func(t *testing.T, f *model.UploadedFile)
	}{
		{
			name:             "happy path",
			email:            "a@a",
			originalFilename: "Sample.JPG",
			contentType:      "image/jpg",
			size:             10,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockBillRepository) io.Reader {
				r := strings.NewReader("sample.jpg")
				mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, "receipts/") && strings.HasSuffix(key, ".jpg")
				}), r, storage.PutObjectOptions{
					Size:        10,
					ContentType: "image/jpg",
					Metadata:    map[string]string{"original-filename": "Sample.JPG", "submitter": "a@a"},
				}).Return(storage.ObjectInfo{
					Key:         "receipts/uuid.jpg",
					Size:        10,
					ContentType: "image/jpg",
				}, nil)

				mRepo.On("Create", ctx, mock.MatchedBy(func(b *model.Bill) bool {
					return b.Email == "a@a" &&
						b.Status == model.StatusPending &&
						b.FileURL == "https://billed.test/files/receipts/uuid.jpg" &&
						b.FileName == "Sample.JPG" &&
						b.Amount.IsNaN()
				})).Return(&model.Bill{ID: "draft-id"}, nil)

				return r
			},
			check: func(t *testing.T, f *model.UploadedFile) {
				assert.Equal(t, "draft-id", f.Key)
				assert.Equal(t, "Sample.JPG", f.FileName)
				assert.Equal(t, "https://billed.test/files/receipts/uuid.jpg", f.FileURL)
			},
		},
		{
			name:             "validation error - nil reader",
			email:            "a@a",
			originalFilename: "test.jpg",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockBillRepository) io.Reader {
				return nil
			},
			wantErr: ErrReaderNil,
		},
		{
			name:             "validation error - no submitter",
			originalFilename: "test.jpg",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockBillRepository) io.Reader {
				return strings.NewReader("x")
			},
			wantErr: ErrEmailRequired,
		},
		{
			name:             "storage error",
			email:            "a@a",
			originalFilename: "test.jpg",
			size:             5,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockBillRepository) io.Reader {
				r := strings.NewReader("hello")
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
				return r
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name:             "repository error with successful rollback",
			email:            "a@a",
			originalFilename: "test.png",
			size:             5,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockBillRepository) io.Reader {
				r := strings.NewReader("hello")
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything).
					Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(nil)
				return r
			},
			wantErrMsg: "db save failed: create bill: db fail",
		},
		{
			name:             "repository error with failed rollback",
			email:            "a@a",
			originalFilename: "test.png",
			size:             5,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockBillRepository) io.Reader {
				r := strings.NewReader("hello")
				mStore.On("Put", ctx, mock.Anything, r, mock.Anything).
					Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
						return storage.ObjectInfo{Key: key}
					}, nil)
				mRepo.On("Create", ctx, mock.Anything).
					Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, mock.Anything).Return(errors.New("delete fail"))
				return r
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockBillRepository)
			svc := NewBillService(mStore, mRepo, testOpts)

			r := tt.setupMocks(mStore, mRepo)

			f, err := svc.Upload(ctx, r, tt.email, tt.originalFilename, tt.contentType, tt.size)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else if tt.wantErrMsg != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			} else {
				require.NoError(t, err)
				tt.check(t, f)
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestBillService_List(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		email      string
		limit      int
		offset     int
		setupMocks func(mRepo *repoMocks.MockBillRepository)
		wantErr    bool
		checkRes   func(t *testing.T, res *BillListResult)
	}{
		{
			name:  "one submitter",
			email: "a@a",
			setupMocks: func(mRepo *repoMocks.MockBillRepository) {
				mRepo.On("List", ctx, repository.ListQuery{Email: "a@a"}).
					Return(&repository.PageResult[model.Bill]{
						Items: []model.Bill{{ID: "1"}, {ID: "2"}},
						Total: 2,
					}, nil)
			},
			checkRes: func(t *testing.T, res *BillListResult) {
				assert.Len(t, res.Items, 2)
				assert.Equal(t, 2, res.Total)
			},
		},
		{
			name:   "negative pagination is clamped",
			limit:  -5,
			offset: -1,
			setupMocks: func(mRepo *repoMocks.MockBillRepository) {
				mRepo.On("List", ctx, repository.ListQuery{}).
					Return(&repository.PageResult[model.Bill]{Items: []model.Bill{}, Total: 0}, nil)
			},
		},
		{
			name:  "repository error",
			limit: 10,
			setupMocks: func(mRepo *repoMocks.MockBillRepository) {
				mRepo.On("List", ctx, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockBillRepository)
			svc := NewBillService(nil, mRepo, testOpts)

			tt.setupMocks(mRepo)

			res, err := svc.List(ctx, tt.email, tt.limit, tt.offset)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				if tt.checkRes != nil {
					tt.checkRes(t, res)
				}
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestBillService_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         string
		setupMocks func(mRepo *repoMocks.MockBillRepository)
		wantErr    error
	}{
		{
			name: "found",
			id:   "b1",
			setupMocks: func(mRepo *repoMocks.MockBillRepository) {
				mRepo.On("FindByID", ctx, "b1").Return(&model.Bill{ID: "b1"}, nil)
			},
		},
		{
			name:       "empty id",
			setupMocks: func(mRepo *repoMocks.MockBillRepository) {},
			wantErr:    ErrIDRequired,
		},
		{
			name: "not found",
			id:   "missing",
			setupMocks: func(mRepo *repoMocks.MockBillRepository) {
				mRepo.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockBillRepository)
			svc := NewBillService(nil, mRepo, testOpts)
			tt.setupMocks(mRepo)

			bill, err := svc.Get(ctx, tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, bill)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.id, bill.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestBillService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("status is forced to pending", func(t *testing.T) {
		mRepo := new(repoMocks.MockBillRepository)
		svc := NewBillService(nil, mRepo, testOpts)

		mRepo.On("Create", ctx, mock.MatchedBy(func(b *model.Bill) bool {
			return b.ID != "" && b.Status == model.StatusPending && !b.CreatedAt.IsZero()
		})).Return(&model.Bill{ID: "stored", Status: model.StatusPending}, nil)

		in := &model.Bill{Email: "a@a", Status: model.StatusAccepted}
		out, err := svc.Create(ctx, in)

		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, out.Status)
		assert.Equal(t, model.StatusAccepted, in.Status, "input must not be mutated")
	})

	t.Run("missing email", func(t *testing.T) {
		svc := NewBillService(nil, new(repoMocks.MockBillRepository), testOpts)
		_, err := svc.Create(ctx, &model.Bill{})
		assert.ErrorIs(t, err, ErrEmailRequired)
	})
}

func TestBillService_Update(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	existing := &model.Bill{ID: "b1", Email: "owner@a", Status: model.StatusPending, CreatedAt: created}

	t.Run("keeps email and creation time", func(t *testing.T) {
		mRepo := new(repoMocks.MockBillRepository)
		svc := NewBillService(nil, mRepo, testOpts)

		mRepo.On("FindByID", ctx, "b1").Return(existing, nil)
		mRepo.On("Update", ctx, mock.MatchedBy(func(b *model.Bill) bool {
			return b.Email == "owner@a" && b.CreatedAt.Equal(created) &&
				b.Status == model.StatusPending && b.Name == "encore"
		})).Return(&model.Bill{ID: "b1", Name: "encore"}, nil)

		out, err := svc.Update(ctx, &model.Bill{ID: "b1", Email: "intruder@a", Name: "encore"})

		require.NoError(t, err)
		assert.Equal(t, "encore", out.Name)
		mRepo.AssertExpectations(t)
	})

	t.Run("invalid status", func(t *testing.T) {
		mRepo := new(repoMocks.MockBillRepository)
		svc := NewBillService(nil, mRepo, testOpts)
		mRepo.On("FindByID", ctx, "b1").Return(existing, nil)

		_, err := svc.Update(ctx, &model.Bill{ID: "b1", Status: "lost"})
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("missing id", func(t *testing.T) {
		svc := NewBillService(nil, new(repoMocks.MockBillRepository), testOpts)
		_, err := svc.Update(ctx, &model.Bill{})
		assert.ErrorIs(t, err, ErrIDRequired)
	})

	t.Run("not found", func(t *testing.T) {
		mRepo := new(repoMocks.MockBillRepository)
		svc := NewBillService(nil, mRepo, testOpts)
		mRepo.On("FindByID", ctx, "gone").Return(nil, sql.ErrNoRows)

		_, err := svc.Update(ctx, &model.Bill{ID: "gone"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("repository error", func(t *testing.T) {
		mRepo := new(repoMocks.MockBillRepository)
		svc := NewBillService(nil, mRepo, testOpts)
		mRepo.On("FindByID", ctx, "b1").Return(existing, nil)
		mRepo.On("Update", ctx, mock.Anything).Return(nil, errors.New("Erreur 500"))

		_, err := svc.Update(ctx, &model.Bill{ID: "b1"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Erreur 500")
	})
}

func TestBillService_OpenFile(t *testing.T) {
	ctx := context.Background()

	t.Run("receipt key", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		svc := NewBillService(mStore, nil, testOpts)
		body := io.NopCloser(strings.NewReader("img"))
		mStore.On("Get", ctx, "receipts/a.jpg").Return(body, storage.ObjectInfo{ContentType: "image/jpeg"}, nil)

		rc, info, err := svc.OpenFile(ctx, "/receipts/a.jpg")

		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", info.ContentType)
		rc.Close()
	})

	t.Run("outside the receipts prefix", func(t *testing.T) {
		svc := NewBillService(new(storeMocks.MockStorage), nil, testOpts)

		_, _, err := svc.OpenFile(ctx, "secrets/key")
		assert.ErrorIs(t, err, ErrNotFound)

		_, _, err = svc.OpenFile(ctx, "receipts/../secrets")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestBillService_FileLink(t *testing.T) {
	ctx := context.Background()

	t.Run("presigned", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockBillRepository)
		svc := NewBillService(mStore, mRepo, testOpts)

		mRepo.On("FindByID", ctx, "b1").
			Return(&model.Bill{ID: "b1", FileURL: "https://billed.test/files/receipts/a.jpg"}, nil)
		mStore.On("PresignGet", ctx, "receipts/a.jpg", time.Minute).Return("https://s3/receipts/a.jpg?sig", nil)

		link, err := svc.FileLink(ctx, "b1")

		require.NoError(t, err)
		assert.Equal(t, "https://s3/receipts/a.jpg?sig", link)
	})

	t.Run("no receipt", func(t *testing.T) {
		mRepo := new(repoMocks.MockBillRepository)
		svc := NewBillService(new(storeMocks.MockStorage), mRepo, testOpts)
		mRepo.On("FindByID", ctx, "b2").Return(&model.Bill{ID: "b2"}, nil)

		_, err := svc.FileLink(ctx, "b2")
		assert.ErrorIs(t, err, ErrNoFile)
	})
}

func TestKeyFromURL(t *testing.T) {
	assert.Equal(t, "receipts/a.jpg", KeyFromURL("https://billed.test/files/receipts/a.jpg"))
	assert.Equal(t, "receipts/a.jpg", KeyFromURL("/files/receipts/a.jpg"))
	assert.Equal(t, "", KeyFromURL("https://elsewhere.tld/a.jpg"))
	assert.Equal(t, "", KeyFromURL(""))
}
