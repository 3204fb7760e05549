package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/and161185/ecosystem-api/internal/errs"
	"github.com/and161185/ecosystem-api/internal/filestore"
	"github.com/and161185/ecosystem-api/internal/model"
	"github.com/and161185/ecosystem-api/internal/repository"
)

// fakeAccountRepo is an in-memory repository. InTx restores a snapshot when fn fails,
// and Create/Update enforce a case-insensitive unique email like the accounts table.
type fakeAccountRepo struct {
	mu     sync.Mutex
	rows   map[int64]model.Account
	nextID int64

	getAllErr error
	updateErr error
	deleteErr error
	commitErr error

	creates, updates, deletes int
}

var _ repository.AccountRepository = (*fakeAccountRepo)(nil)

func newFakeAccountRepo(seed ...model.Account) *fakeAccountRepo {
	f := &fakeAccountRepo{rows: map[int64]model.Account{}}
	for _, a := range seed {
		if a.ID > f.nextID {
			f.nextID = a.ID
		}
		f.rows[a.ID] = a
	}
	return f
}

func (f *fakeAccountRepo) GetAll(_ context.Context) ([]model.Account, error) {
	if f.getAllErr != nil {
		return nil, f.getAllErr
	}
	out := make([]model.Account, 0, len(f.rows))
	for _, a := range f.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id int64) (*model.Account, error) {
	a, ok := f.rows[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &a, nil
}

func (f *fakeAccountRepo) emailTaken(email string, except int64) bool {
	for id, a := range f.rows {
		if id != except && strings.EqualFold(a.Email, email) {
			return true
		}
	}
	return false
}

func (f *fakeAccountRepo) Create(_ context.Context, a *model.Account) error {
	if f.emailTaken(a.Email, 0) {
		return errs.ErrDuplicateEmail
	}
	f.nextID++
	a.ID = f.nextID
	f.rows[a.ID] = *a
	f.creates++
	return nil
}

func (f *fakeAccountRepo) Update(_ context.Context, a *model.Account) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.rows[a.ID]; !ok {
		return errs.ErrNotFound
	}
	if f.emailTaken(a.Email, a.ID) {
		return errs.ErrDuplicateEmail
	}
	f.rows[a.ID] = *a
	f.updates++
	return nil
}

func (f *fakeAccountRepo) Delete(_ context.Context, a *model.Account) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.rows[a.ID]; !ok {
		return errs.ErrNotFound
	}
	delete(f.rows, a.ID)
	f.deletes++
	return nil
}

func (f *fakeAccountRepo) InTx(_ context.Context, fn func(repository.AccountRepository) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := make(map[int64]model.Account, len(f.rows))
	for k, v := range f.rows {
		snap[k] = v
	}
	next := f.nextID

	err := fn(f)
	if err == nil && f.commitErr != nil {
		err = f.commitErr
	}
	if err != nil {
		f.rows, f.nextID = snap, next
		return err
	}
	return nil
}

// fakeHasher marks its output so tests can tell hashed values from plaintext.
type fakeHasher struct{ err error }

func (h fakeHasher) Hash(p string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "h(" + p + ")", nil
}

type fakeStore struct {
	blobs     map[string][]byte
	saveErr   error
	deleteErr error
	existsErr error
	deleted   []string
}

var _ filestore.Store = (*fakeStore)(nil)

func newFakeStore(names ...string) *fakeStore {
	s := &fakeStore{blobs: map[string][]byte{}}
	for _, n := range names {
		s.blobs[n] = []byte("img")
	}
	return s
}

func (s *fakeStore) Save(_ context.Context, name string, r io.Reader) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	s.blobs[name] = buf.Bytes()
	return nil
}

func (s *fakeStore) Delete(_ context.Context, name string) error {
	s.deleted = append(s.deleted, name)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.blobs, name)
	return nil
}

func (s *fakeStore) Exists(_ context.Context, name string) (bool, error) {
	if err := filestore.CheckName(name); err != nil {
		return false, err
	}
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.blobs[name]
	return ok, nil
}

type fakeCache struct {
	m           map[int64]model.AuthorRead
	gets, sets  int
	invalidated []int64
}

func newFakeCache() *fakeCache { return &fakeCache{m: map[int64]model.AuthorRead{}} }

func (c *fakeCache) Get(_ context.Context, id int64) (*model.AuthorRead, bool) {
	c.gets++
	a, ok := c.m[id]
	if !ok {
		return nil, false
	}
	return &a, true
}

func (c *fakeCache) Set(_ context.Context, a model.AuthorRead) {
	c.sets++
	c.m[a.ID] = a
}

func (c *fakeCache) Invalidate(_ context.Context, id int64) {
	c.invalidated = append(c.invalidated, id)
	delete(c.m, id)
}

var errBoom = errors.New("boom")
