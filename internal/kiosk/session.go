// Package kiosk is the device side of a purchase: it keeps the in-flight
// charge on local disk so a restarted kiosk resumes the QR screen and keeps
// polling instead of asking for a new charge.
package kiosk

import (
	"encoding/json"
	"errors"
	"time"

	"smartcoffee/internal/models"

	bolt "github.com/boltdb/bolt"
)

const (
	bucketName = "session"
	currentKey = "current"
	attemptKey = "attempt"
)

// ErrNoSession is returned when no purchase is in flight.
var ErrNoSession = errors.New("no payment session")

// Session is the in-flight purchase persisted on the device.
type Session struct {
	PaymentID      int64              `json:"paymentId"`
	IdempotencyKey string             `json:"idempotencyKey"`
	Dosage         models.KioskDosage `json:"dosage"`
	Pix            models.PixPayload  `json:"pix"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// Attempt is a purchase whose create-payment call has not answered yet.
// Keeping its key lets a retry after a crash reuse the same charge.
type Attempt struct {
	IdempotencyKey string             `json:"idempotencyKey"`
	Dosage         models.KioskDosage `json:"dosage"`
}

// SessionStore holds at most one Session in a bolt file.
type SessionStore struct {
	db *bolt.DB
}

// OpenSessionStore opens (or creates) the bolt file at path.
func OpenSessionStore(path string) (*SessionStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SessionStore{db: db}, nil
}

func (s *SessionStore) Close() error {
	return s.db.Close()
}

// Save replaces the current session and drops any pending attempt.
func (s *SessionStore) Save(session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if err := b.Delete([]byte(attemptKey)); err != nil {
			return err
		}
		return b.Put([]byte(currentKey), data)
	})
}

// Load returns the current session or ErrNoSession. A record that no longer
// decodes is treated as absent and removed.
func (s *SessionStore) Load() (*Session, error) {
	var session Session
	err := s.get(currentKey, &session)
	if err != nil {
		return nil, err
	}
	if session.PaymentID == 0 {
		_ = s.Clear()
		return nil, ErrNoSession
	}
	return &session, nil
}

// Clear removes the session and any pending attempt. Clearing an empty store
// is not an error.
func (s *SessionStore) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if err := b.Delete([]byte(currentKey)); err != nil {
			return err
		}
		return b.Delete([]byte(attemptKey))
	})
}

// SaveAttempt records a create-payment call about to be made.
func (s *SessionStore) SaveAttempt(a *Attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(attemptKey), data)
	})
}

// LoadAttempt returns the unanswered attempt, or ErrNoSession.
func (s *SessionStore) LoadAttempt() (*Attempt, error) {
	var a Attempt
	if err := s.get(attemptKey, &a); err != nil {
		return nil, err
	}
	if a.IdempotencyKey == "" {
		return nil, ErrNoSession
	}
	return &a, nil
}

func (s *SessionStore) get(key string, out interface{}) error {
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if v == nil {
			return ErrNoSession
		}
		return json.Unmarshal(v, out)
	})
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		_ = s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
		})
		return ErrNoSession
	}
	return err
}
