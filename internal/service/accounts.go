// Package service contains the account lifecycle application service.
package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/and161185/ecosystem-api/internal/cache"
	"github.com/and161185/ecosystem-api/internal/errs"
	"github.com/and161185/ecosystem-api/internal/filestore"
	"github.com/and161185/ecosystem-api/internal/model"
	"github.com/and161185/ecosystem-api/internal/repository"
)

// AccountService defines the account lifecycle operations.
type AccountService interface {
	// Create registers a new account; errs.ErrDuplicateEmail if the email is taken.
	Create(ctx context.Context, in model.AccountCreate) (*model.Account, error)
	// GetAll returns every account.
	GetAll(ctx context.Context) ([]model.Account, error)
	// GetByID returns one account.
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	// GetAuthorByID returns the public author projection.
	GetAuthorByID(ctx context.Context, id int64) (*model.AuthorRead, error)
	// Patch applies an RFC 6902 document to the update-view of an account.
	Patch(ctx context.Context, id int64, patch []byte) error
	// ReplaceImage changes only the photo file name.
	ReplaceImage(ctx context.Context, id int64, in model.AccountUpdate) error
	// RotatePassword re-hashes and stores a new password.
	RotatePassword(ctx context.Context, id int64, in model.AccountUpdate) error
	// Delete removes the account row and its photo.
	Delete(ctx context.Context, id int64) error
	// Upload stores a photo and returns its generated name.
	Upload(ctx context.Context, original string, r io.Reader) (string, error)
}

// Hasher turns a plaintext credential into a storable one-way hash.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

type AccountServiceImpl struct {
	repo     repository.AccountRepository
	hasher   Hasher
	files    filestore.Store
	authors  cache.AuthorCache
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

var _ AccountService = (*AccountServiceImpl)(nil)

// NewAccountService constructs AccountService with required dependencies.
// A nil authors cache disables caching.
func NewAccountService(
	repo repository.AccountRepository,
	hasher Hasher,
	files filestore.Store,
	authors cache.AuthorCache,
	log *zap.Logger,
) *AccountServiceImpl {
	if authors == nil {
		authors = cache.Nop{}
	}
	return &AccountServiceImpl{
		repo:     repo,
		hasher:   hasher,
		files:    files,
		authors:  authors,
		log:      log,
		validate: newValidator(),
		now:      time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON names so errors line up with patch paths
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct validation and converts failures into *errs.ValidationError.
func (s *AccountServiceImpl) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[fe.Field()] = fe.Tag()
	}
	return &errs.ValidationError{Fields: fields}
}

// Create checks the email against stored accounts, derives server-side fields and inserts.
// The pre-check compares the lower-cased email against stored values as they are; rows
// stored in mixed case slip past it and are caught by the unique index on lower(email).
func (s *AccountServiceImpl) Create(ctx context.Context, in model.AccountCreate) (*model.Account, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	photo := in.PhotoFileName
	if photo == "" {
		photo = model.DefaultPhotoFileName
	}
	if err := s.checkPhoto(ctx, photo); err != nil {
		return nil, err
	}

	pwd, err := s.hasher.Hash(model.BootstrapSecret)
	if err != nil {
		return nil, fmt.Errorf("hash bootstrap secret: %w", err)
	}
	acc := &model.Account{
		AuthID:        model.DefaultAuthID,
		Email:         strings.ToLower(in.Email),
		FirstName:     strings.ToUpper(in.FirstName),
		LastName:      strings.ToUpper(in.LastName),
		MiddleName:    strings.ToUpper(in.MiddleName),
		Password:      pwd,
		PhotoFileName: photo,
		ResetToken:    base64.RawURLEncoding.EncodeToString([]byte(model.Stamp(s.now()))),
	}

	err = s.repo.InTx(ctx, func(r repository.AccountRepository) error {
		all, err := r.GetAll(ctx)
		if err != nil {
			return err
		}
		for _, a := range all {
			if a.Email == acc.Email {
				return errs.ErrDuplicateEmail
			}
		}
		return r.Create(ctx, acc)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("account created", zap.Int64("id", acc.ID))
	return acc, nil
}

// GetAll returns all accounts without paging.
func (s *AccountServiceImpl) GetAll(ctx context.Context) ([]model.Account, error) {
	return s.repo.GetAll(ctx)
}

// GetByID returns an account or errs.ErrNotFound.
func (s *AccountServiceImpl) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	return s.repo.GetByID(ctx, id)
}

// GetAuthorByID serves from the author cache when possible.
func (s *AccountServiceImpl) GetAuthorByID(ctx context.Context, id int64) (*model.AuthorRead, error) {
	if a, ok := s.authors.Get(ctx, id); ok {
		return a, nil
	}
	acc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a := acc.AuthorView()
	s.authors.Set(ctx, a)
	return &a, nil
}

// Patch projects the stored account into its update-view, applies the operations in order,
// validates the result and only then merges it back. Nothing is written on failure.
// Ops that are not idempotent (add/remove) are the caller's concern.
func (s *AccountServiceImpl) Patch(ctx context.Context, id int64, patch []byte) error {
	ops, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return errs.NewValidationError("patch", "malformed")
	}

	err = s.repo.InTx(ctx, func(r repository.AccountRepository) error {
		acc, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		cur := acc.UpdateView()
		doc, err := json.Marshal(cur)
		if err != nil {
			return err
		}
		patched, err := ops.Apply(doc)
		if err != nil {
			return errs.NewValidationError("patch", err.Error())
		}
		var next model.AccountUpdate
		if err := json.Unmarshal(patched, &next); err != nil {
			return errs.NewValidationError("patch", "type mismatch")
		}
		if err := s.check(next); err != nil {
			return err
		}

		next.Email = strings.ToLower(next.Email)
		next.FirstName = strings.ToUpper(next.FirstName)
		next.LastName = strings.ToUpper(next.LastName)
		next.MiddleName = strings.ToUpper(next.MiddleName)
		if next.PhotoFileName != cur.PhotoFileName {
			if err := s.checkPhoto(ctx, next.PhotoFileName); err != nil {
				return err
			}
		}
		// a patched password arrives as plaintext
		if next.Password != cur.Password {
			if next.Password, err = s.hasher.Hash(next.Password); err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
		}

		acc.ApplyUpdate(next)
		return r.Update(ctx, acc)
	})
	if err != nil {
		return err
	}
	s.authors.Invalidate(ctx, id)
	return nil
}

// ReplaceImage overlays photoFileName on the stored state; every other field in the
// request is ignored.
func (s *AccountServiceImpl) ReplaceImage(ctx context.Context, id int64, in model.AccountUpdate) error {
	photo := in.PhotoFileName
	if photo == "" {
		photo = model.DefaultPhotoFileName
	}
	err := s.repo.InTx(ctx, func(r repository.AccountRepository) error {
		acc, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if photo != acc.PhotoFileName {
			if err := s.checkPhoto(ctx, photo); err != nil {
				return err
			}
		}
		next := acc.UpdateView()
		next.PhotoFileName = photo
		acc.ApplyUpdate(next)
		return r.Update(ctx, acc)
	})
	if err != nil {
		return err
	}
	s.authors.Invalidate(ctx, id)
	return nil
}

// RotatePassword overlays Hash(in.Password) on the stored state; every other field in
// the request is ignored.
func (s *AccountServiceImpl) RotatePassword(ctx context.Context, id int64, in model.AccountUpdate) error {
	if in.Password == "" {
		return errs.NewValidationError("password", "required")
	}
	return s.repo.InTx(ctx, func(r repository.AccountRepository) error {
		acc, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		next := acc.UpdateView()
		next.Password = hash
		acc.ApplyUpdate(next)
		return r.Update(ctx, acc)
	})
}

// Delete removes the row and the photo blob in one unit of work. The row decides
// whether the account existed; a failed blob removal is logged and does not fail the call.
func (s *AccountServiceImpl) Delete(ctx context.Context, id int64) error {
	err := s.repo.InTx(ctx, func(r repository.AccountRepository) error {
		acc, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := r.Delete(ctx, acc); err != nil {
			return err
		}
		if acc.PhotoFileName == model.DefaultPhotoFileName {
			return nil
		}
		if err := s.files.Delete(ctx, acc.PhotoFileName); err != nil {
			s.log.Warn("photo cleanup failed",
				zap.Int64("id", id),
				zap.String("photo", acc.PhotoFileName),
				zap.Error(err),
			)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.authors.Invalidate(ctx, id)
	s.log.Info("account deleted", zap.Int64("id", id))
	return nil
}

// Upload stores r under a timestamp name carrying the original extension.
func (s *AccountServiceImpl) Upload(ctx context.Context, original string, r io.Reader) (string, error) {
	name := filestore.NewName(s.now(), original)
	if err := s.files.Save(ctx, name, r); err != nil {
		return "", fmt.Errorf("%w: save %s: %w", errs.ErrFileIO, name, err)
	}
	return name, nil
}

// checkPhoto enforces that a referenced photo is the sentinel or a stored blob.
func (s *AccountServiceImpl) checkPhoto(ctx context.Context, name string) error {
	if name == model.DefaultPhotoFileName {
		return nil
	}
	ok, err := s.files.Exists(ctx, name)
	if errors.Is(err, filestore.ErrInvalidName) {
		return errs.NewValidationError("photoFileName", "filename")
	}
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", errs.ErrFileIO, name, err)
	}
	if !ok {
		return errs.NewValidationError("photoFileName", "exists")
	}
	return nil
}
