package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/ecosystem-api/internal/model"
	"github.com/and161185/ecosystem-api/internal/service"
)

var testKey = []byte("secret")

func makeJWT(t *testing.T, sub string, key []byte, method jwt.SigningMethod, iat time.Time, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(iat),
		NotBefore: jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func validToken(t *testing.T) string {
	t.Helper()
	return makeJWT(t, "1", testKey, jwt.SigningMethodHS256, time.Now().UTC().Add(-time.Minute), 10*time.Minute)
}

// fakeAccounts records inputs and replays canned outputs.
type fakeAccounts struct {
	createIn  model.AccountCreate
	createOut *model.Account
	createErr error

	all    []model.Account
	allErr error

	getOut *model.Account
	getErr error

	authorOut *model.AuthorRead
	authorErr error

	patchID   int64
	patchBody []byte
	patchErr  error

	updateID  int64
	updateIn  model.AccountUpdate
	updateErr error

	deleteID  int64
	deleteErr error

	uploadOrig string
	uploadBody string
	uploadOut  string
	uploadErr  error
}

var _ service.AccountService = (*fakeAccounts)(nil)

func (f *fakeAccounts) Create(_ context.Context, in model.AccountCreate) (*model.Account, error) {
	f.createIn = in
	return f.createOut, f.createErr
}
func (f *fakeAccounts) GetAll(context.Context) ([]model.Account, error) { return f.all, f.allErr }
func (f *fakeAccounts) GetByID(context.Context, int64) (*model.Account, error) {
	return f.getOut, f.getErr
}
func (f *fakeAccounts) GetAuthorByID(context.Context, int64) (*model.AuthorRead, error) {
	return f.authorOut, f.authorErr
}
func (f *fakeAccounts) Patch(_ context.Context, id int64, patch []byte) error {
	f.patchID, f.patchBody = id, patch
	return f.patchErr
}
func (f *fakeAccounts) ReplaceImage(_ context.Context, id int64, in model.AccountUpdate) error {
	f.updateID, f.updateIn = id, in
	return f.updateErr
}
func (f *fakeAccounts) RotatePassword(_ context.Context, id int64, in model.AccountUpdate) error {
	f.updateID, f.updateIn = id, in
	return f.updateErr
}
func (f *fakeAccounts) Delete(_ context.Context, id int64) error {
	f.deleteID = id
	return f.deleteErr
}
func (f *fakeAccounts) Upload(_ context.Context, original string, r io.Reader) (string, error) {
	f.uploadOrig = original
	b, _ := io.ReadAll(r)
	f.uploadBody = string(b)
	return f.uploadOut, f.uploadErr
}

func newTestServer(t *testing.T, f *fakeAccounts) http.Handler {
	t.Helper()
	return New(f, testKey, zaptest.NewLogger(t), 0).Routes()
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
