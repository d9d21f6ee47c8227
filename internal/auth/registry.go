// Package auth keeps the user registry and checks credentials.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nibzard/todo-go/internal/schema"
	"github.com/nibzard/todo-go/internal/todo"
	"github.com/nibzard/todo-go/internal/utils"
)

// MinPasswordLength is the shortest password Register accepts.
const MinPasswordLength = 6

var (
	ErrInvalidUsername    = errors.New("username cannot be empty")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	ErrEmailTaken         = errors.New("a user with this email already exists")
	ErrUsernameTaken      = errors.New("a user with this username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User is one registry record. Password holds the bcrypt hash.
type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin"`
}

// Public returns the user without its password hash.
func (u User) Public() User {
	u.Password = ""
	return u
}

// Registry is the users.json file. It is not safe for concurrent use.
type Registry struct {
	path  string
	users []User
	cost  int
	now   func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithCost sets the bcrypt cost for new password hashes.
func WithCost(cost int) Option {
	return func(r *Registry) { r.cost = cost }
}

// WithNow sets the time source for createdAt and lastLogin.
func WithNow(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Open loads the registry at path, creating an empty one if missing.
func Open(path string, opts ...Option) (*Registry, error) {
	r := &Registry{
		path: path,
		cost: bcrypt.DefaultCost,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		r.users = []User{}
		if err := r.save(); err != nil {
			return nil, err
		}
		return r, nil
	}
	if err != nil {
		return nil, &todo.PersistenceError{Op: "read", Path: path, Err: err}
	}
	if err := schema.Validate(schema.Users, data); err != nil {
		return nil, &todo.PersistenceError{Op: "validate", Path: path, Err: err}
	}
	if err := json.Unmarshal(data, &r.users); err != nil {
		return nil, &todo.PersistenceError{Op: "parse", Path: path, Err: err}
	}
	return r, nil
}

// Path returns the registry file path.
func (r *Registry) Path() string { return r.path }

// Register validates and stores a new user. The email is stored lowercased.
func (r *Registry) Register(username, email, password string) (User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" {
		return User{}, ErrInvalidUsername
	}
	if !emailPattern.MatchString(email) {
		return User{}, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return User{}, ErrWeakPassword
	}
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) || strings.EqualFold(u.Username, email) {
			return User{}, ErrEmailTaken
		}
		if strings.EqualFold(u.Username, username) || strings.EqualFold(u.Email, username) {
			return User{}, ErrUsernameTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:        "user_" + uuid.NewString(),
		Username:  username,
		Email:     email,
		Password:  string(hash),
		CreatedAt: r.now(),
	}

	r.users = append(r.users, user)
	if err := r.save(); err != nil {
		r.users = r.users[:len(r.users)-1]
		return User{}, err
	}
	return user.Public(), nil
}

// Authenticate checks a username or email against its password and records
// the login time. Unknown users and wrong passwords both yield
// ErrInvalidCredentials.
func (r *Registry) Authenticate(identifier, password string) (User, error) {
	i := r.find(identifier)
	if i < 0 {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(r.users[i].Password), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	previous := r.users[i].LastLogin
	now := r.now()
	r.users[i].LastLogin = &now
	if err := r.save(); err != nil {
		r.users[i].LastLogin = previous
		return User{}, err
	}
	return r.users[i].Public(), nil
}

// Lookup returns the user matching a username or email.
func (r *Registry) Lookup(identifier string) (User, bool) {
	i := r.find(identifier)
	if i < 0 {
		return User{}, false
	}
	return r.users[i].Public(), true
}

// Users returns every user without password hashes.
func (r *Registry) Users() []User {
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u.Public())
	}
	return out
}

// Delete removes the user matching a username or email.
func (r *Registry) Delete(identifier string) error {
	i := r.find(identifier)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, identifier)
	}

	previous := r.users
	r.users = append(append([]User{}, r.users[:i]...), r.users[i+1:]...)
	if err := r.save(); err != nil {
		r.users = previous
		return err
	}
	return nil
}

func (r *Registry) find(identifier string) int {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return -1
	}
	for i, u := range r.users {
		if strings.EqualFold(u.Username, identifier) || strings.EqualFold(u.Email, identifier) {
			return i
		}
	}
	return -1
}

func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.users, "", "  ")
	if err != nil {
		return &todo.PersistenceError{Op: "marshal", Path: r.path, Err: err}
	}
	data = append(data, '\n')
	if err := utils.WriteFileAtomic(r.path, data, 0o600); err != nil {
		return &todo.PersistenceError{Op: "write", Path: r.path, Err: err}
	}
	return nil
}
