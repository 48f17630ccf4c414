package session

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// MaxAge is how long a session record stays usable after login.
const MaxAge = 24 * time.Hour

// MaxClockSkew is how far in the future a record timestamp may lie and
// still count as fresh.
const MaxClockSkew = 5 * time.Minute

// Storage keys shared with the mobile app.
const (
	KeySession = "wordpress_session"
	KeyProfile = "userData"
)

const (
	sessionKeyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	sessionKeyRandLen  = 13
)

// Record is the persisted proof of a successful login.
type Record struct {
	UserID int64  `json:"user_id"`
	Token  string `json:"token"`
	// Timestamp is the creation instant in milliseconds since the epoch.
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
	// SessionKey is sent as X-WP-Session.
	SessionKey string `json:"wordpress_session"`
}

func newRecord(userID int64, token string, now time.Time) (Record, error) {
	key, err := newSessionKey(userID)
	if err != nil {
		return Record{}, err
	}
	return Record{
		UserID:     userID,
		Token:      token,
		Timestamp:  now.UnixMilli(),
		Nonce:      uuid.NewString(),
		SessionKey: key,
	}, nil
}

// newSessionKey returns wp_<id>_<13 random base36 chars>.
func newSessionKey(userID int64) (string, error) {
	buf := make([]byte, sessionKeyRandLen)
	max := big.NewInt(int64(len(sessionKeyAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating session key: %w", err)
		}
		buf[i] = sessionKeyAlphabet[n.Int64()]
	}
	return "wp_" + strconv.FormatInt(userID, 10) + "_" + string(buf), nil
}

// CreatedAt returns Timestamp as a time.Time.
func (r Record) CreatedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Fresh reports whether the record is younger than MaxAge at now.
func (r Record) Fresh(now time.Time) bool {
	return r.freshFor(now, MaxAge)
}

func (r Record) freshFor(now time.Time, maxAge time.Duration) bool {
	age := now.Sub(r.CreatedAt())
	return age >= -MaxClockSkew && age < maxAge
}

// Headers returns the request headers carried by this record.
func (r Record) Headers() Headers {
	return Headers{
		Authorization: "Bearer " + r.Token,
		Session:       r.SessionKey,
	}
}

func (r Record) validate() error {
	switch {
	case r.UserID <= 0:
		return errors.New("missing user_id")
	case r.Token == "":
		return errors.New("missing token")
	case r.Timestamp <= 0:
		return errors.New("missing timestamp")
	case r.SessionKey == "":
		return errors.New("missing session key")
	}
	return nil
}

func decodeRecord(s string) (Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return Record{}, fmt.Errorf("decoding session record: %w", err)
	}
	if err := r.validate(); err != nil {
		return Record{}, fmt.Errorf("invalid session record: %w", err)
	}
	return r, nil
}
