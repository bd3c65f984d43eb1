// Package tokenstore persists the client session: the cached user profile and the
// access/refresh token pair. Every implementation stores the session as ONE record so
// reads and writes are atomic from the caller's perspective.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wolfeidau/reflections/internal/models"
	"golang.org/x/oauth2"
)

const recordVersion = 1

var (
	// ErrIncompleteRecord is returned by Write when the record is not fully populated.
	ErrIncompleteRecord = errors.New("incomplete session record")

	// errCorruptRecord marks stored data that must be purged and treated as anonymous.
	errCorruptRecord = errors.New("corrupt session record")
)

// Store persists a single session record.
//
// Read returns (nil, nil) when no usable session exists. Stored data that fails to
// decode, or is only partially populated, is purged and reported as anonymous.
type Store interface {
	Read(ctx context.Context) (*Record, error)
	Write(ctx context.Context, rec *Record) error
	Clear(ctx context.Context) error
}

// Binder creates a Store bound to a single HTTP exchange, used by the web server
// where the session travels with the browser.
type Binder interface {
	Bind(w http.ResponseWriter, r *http.Request) Store
}

// Record is the persisted session: profile, token pair and the account email used to
// authenticate refresh requests.
type Record struct {
	Version      int          `json:"version"`
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	Email        string       `json:"email"`
	Expiry       time.Time    `json:"expiry,omitzero"`
	SavedAt      time.Time    `json:"savedAt,omitzero"`
}

// NewRecord builds a record from a server-returned profile and token pair.
func NewRecord(user *models.User, pair models.TokenPair) *Record {
	rec := &Record{
		Version:      recordVersion,
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Expiry:       AccessTokenExpiry(pair.AccessToken),
	}
	if user != nil {
		rec.Email = user.Email
	}
	return rec
}

// Complete returns true when user, both tokens and the account email are present.
func (r *Record) Complete() bool {
	return r != nil &&
		r.User.Valid() &&
		r.AccessToken != "" &&
		r.RefreshToken != "" &&
		r.Email != ""
}

// WithTokens returns a copy of the record carrying a new token pair.
func (r *Record) WithTokens(pair models.TokenPair) *Record {
	clone := *r
	clone.AccessToken = pair.AccessToken
	clone.RefreshToken = pair.RefreshToken
	clone.Expiry = AccessTokenExpiry(pair.AccessToken)
	return &clone
}

// WithUser returns a copy of the record carrying a fresh profile.
func (r *Record) WithUser(user *models.User) *Record {
	clone := *r
	clone.User = user
	clone.Email = user.Email
	return &clone
}

// OAuth2Token exposes the record as an oauth2 bearer token.
func (r *Record) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: r.RefreshToken,
		Expiry:       r.Expiry,
	}
}

// encodeRecord validates and serialises a record.
func encodeRecord(rec *Record) ([]byte, error) {
	if !rec.Complete() {
		return nil, ErrIncompleteRecord
	}

	clone := *rec
	clone.Version = recordVersion
	clone.SavedAt = time.Now().UTC()

	data, err := json.Marshal(&clone)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session record: %w", err)
	}
	return data, nil
}

// decodeRecord parses stored data, rejecting anything that is not a complete record.
func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptRecord, err)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errCorruptRecord, rec.Version)
	}
	if !rec.Complete() {
		return nil, fmt.Errorf("%w: missing fields", errCorruptRecord)
	}
	return &rec, nil
}
