// Package store is the bill store capability the view containers are given.
package store

import (
	"context"
	"errors"
	"io"

	"billed/internal/model"
	"billed/internal/service"
)

var ErrForbidden = errors.New("bill belongs to another user")

// FileSelection is a file picked in the receipt input.
type FileSelection struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Store is the remote bill store as seen by one user.
type Store interface {
	List(ctx context.Context) ([]model.Bill, error)
	Create(ctx context.Context, bill *model.Bill) (*model.Bill, error)
	Update(ctx context.Context, bill *model.Bill) (*model.Bill, error)
	Upload(ctx context.Context, email string, file FileSelection) (*model.UploadedFile, error)
}

// scoped restricts a BillService to what a session may see: employees get
// their own bills, admins get every bill.
type scoped struct {
	svc     service.BillService
	session model.Session
}

// ForSession returns the Store for session s, backed by svc.
func ForSession(svc service.BillService, s model.Session) Store {
	return &scoped{svc: svc, session: s}
}

func (s *scoped) List(ctx context.Context) ([]model.Bill, error) {
	email := ""
	if s.session.IsEmployee() {
		email = s.session.Email
	}
	res, err := s.svc.List(ctx, email, 0, 0)
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

func (s *scoped) Create(ctx context.Context, bill *model.Bill) (*model.Bill, error) {
	b := *bill
	if s.session.IsEmployee() || b.Email == "" {
		b.Email = s.session.Email
	}
	return s.svc.Create(ctx, &b)
}

// Update lets employees amend their own bills only, and only as pending.
func (s *scoped) Update(ctx context.Context, bill *model.Bill) (*model.Bill, error) {
	if !s.session.IsEmployee() {
		return s.svc.Update(ctx, bill)
	}
	existing, err := s.svc.Get(ctx, bill.ID)
	if err != nil {
		return nil, err
	}
	if existing.Email != s.session.Email {
		return nil, ErrForbidden
	}
	b := *bill
	b.Status = model.StatusPending
	return s.svc.Update(ctx, &b)
}

func (s *scoped) Upload(ctx context.Context, email string, file FileSelection) (*model.UploadedFile, error) {
	if s.session.IsEmployee() {
		email = s.session.Email
	}
	return s.svc.Upload(ctx, file.Content, email, file.Name, file.ContentType, file.Size)
}
