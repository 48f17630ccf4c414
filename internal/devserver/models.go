package devserver

import (
	"errors"
	"strings"
	"sync"

	"github.com/example/vicere/internal/cpf"
)

// User is a WordPress user with its WooCommerce customer data.
type User struct {
	ID           int64
	Login        string
	Email        string
	DisplayName  string
	PasswordHash string
	// HasCustomer is false for WordPress users without a WooCommerce
	// customer record; the user data endpoint then returns [].
	HasCustomer bool
	FirstName   string
	LastName    string
	CPF         string
	Points      float64
	Vicoins     float64
}

var (
	ErrUserExists = errors.New("user already exists")
	ErrNoUser     = errors.New("user not found")
)

// Directory is the in-memory user table.
type Directory struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*User
}

func NewDirectory() *Directory {
	return &Directory{nextID: 1, byID: map[int64]*User{}}
}

// Add hashes password and stores u. A zero ID is assigned the next free one.
func (d *Directory) Add(u User, password string) (User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = hash
	u.CPF = cpf.Strip(u.CPF)

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.byID {
		if strings.EqualFold(existing.Email, u.Email) || (u.Login != "" && existing.Login == u.Login) {
			return User{}, ErrUserExists
		}
	}
	if u.ID == 0 {
		u.ID = d.nextID
	}
	if _, ok := d.byID[u.ID]; ok {
		return User{}, ErrUserExists
	}
	if u.ID >= d.nextID {
		d.nextID = u.ID + 1
	}
	stored := u
	d.byID[u.ID] = &stored
	return u, nil
}

// ByLogin matches either the user_login or the email, like WordPress.
func (d *Directory) ByLogin(login string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.byID {
		if u.Login == login || strings.EqualFold(u.Email, login) {
			return *u, nil
		}
	}
	return User{}, ErrNoUser
}

func (d *Directory) ByID(id int64) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.byID[id]
	if !ok {
		return User{}, ErrNoUser
	}
	return *u, nil
}

// SetPoints updates the loyalty balances of a user.
func (d *Directory) SetPoints(id int64, points, vicoins float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.byID[id]
	if !ok {
		return ErrNoUser
	}
	u.Points = points
	u.Vicoins = vicoins
	return nil
}

// CPFRegistered reports whether any customer uses doc.
func (d *Directory) CPFRegistered(doc string) bool {
	doc = cpf.Strip(doc)
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.byID {
		if u.CPF != "" && u.CPF == doc {
			return true
		}
	}
	return false
}
