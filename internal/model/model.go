// Package model defines domain entities and the request/response views derived from them.
package model

import (
	"fmt"
	"time"
)

const (
	// DefaultPhotoFileName is the sentinel meaning "no photo uploaded".
	DefaultPhotoFileName = "Anonymous.png"

	// DefaultAuthID is the role assigned to every account created through the API.
	DefaultAuthID = 2

	// BootstrapSecret seeds the password of administratively created accounts.
	BootstrapSecret = "123"
)

// Account is the stored user identity record.
type Account struct {
	ID            int64  // assigned by the repository on create, never changes
	AuthID        int    // role classifier, server-assigned
	Email         string // lower-cased, unique
	FirstName     string // upper-cased
	LastName      string // upper-cased
	MiddleName    string // upper-cased
	Password      string // encoded hash, never plaintext
	PhotoFileName string // blob name in the file store or DefaultPhotoFileName
	ResetToken    string
}

// AccountCreate carries the client-settable fields of a new account.
type AccountCreate struct {
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName" validate:"required"`
	MiddleName    string `json:"middleName" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	PhotoFileName string `json:"photoFileName"`
}

// AccountUpdate is the update-view: the fields a patch or safe update may touch.
type AccountUpdate struct {
	Email         string `json:"email" validate:"required,email"`
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName" validate:"required"`
	MiddleName    string `json:"middleName" validate:"required"`
	Password      string `json:"password" validate:"required"`
	PhotoFileName string `json:"photoFileName" validate:"required"`
	ResetToken    string `json:"resetToken" validate:"required"`
}

// AccountRead is returned by the read endpoints.
type AccountRead struct {
	ID            int64  `json:"id"`
	AuthID        int    `json:"authId"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	MiddleName    string `json:"middleName"`
	PhotoFileName string `json:"photoFileName"`
}

// AuthorRead is the public author projection of an account.
type AuthorRead struct {
	ID            int64  `json:"id"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	MiddleName    string `json:"middleName"`
	PhotoFileName string `json:"photoFileName"`
}

// UpdateView projects the stored account into its update-view.
func (a Account) UpdateView() AccountUpdate {
	return AccountUpdate{
		Email:         a.Email,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		MiddleName:    a.MiddleName,
		Password:      a.Password,
		PhotoFileName: a.PhotoFileName,
		ResetToken:    a.ResetToken,
	}
}

// ApplyUpdate overwrites exactly the update-view fields; ID and AuthID are kept.
func (a *Account) ApplyUpdate(u AccountUpdate) {
	a.Email = u.Email
	a.FirstName = u.FirstName
	a.LastName = u.LastName
	a.MiddleName = u.MiddleName
	a.Password = u.Password
	a.PhotoFileName = u.PhotoFileName
	a.ResetToken = u.ResetToken
}

// ReadView drops credential fields.
func (a Account) ReadView() AccountRead {
	return AccountRead{
		ID:            a.ID,
		AuthID:        a.AuthID,
		Email:         a.Email,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		MiddleName:    a.MiddleName,
		PhotoFileName: a.PhotoFileName,
	}
}

// AuthorView returns the author-facing subset.
func (a Account) AuthorView() AuthorRead {
	return AuthorRead{
		ID:            a.ID,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		MiddleName:    a.MiddleName,
		PhotoFileName: a.PhotoFileName,
	}
}

// Stamp formats t as yyyyMMddHHmmssfff (millisecond precision, no separators).
func Stamp(t time.Time) string {
	return t.Format("20060102150405") + fmt.Sprintf("%03d", t.Nanosecond()/int(time.Millisecond))
}
