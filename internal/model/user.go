package model

import "time"

// User represents an application user record as stored in the `users`
// table. Each field corresponds to a column in the database. The login
// doubles as the user's email address, matching the host platform's
// convention. Handlers define separate response types with JSON tags;
// these structs are used internally by the repository layer.
//
// Fields:
//	ID           – primary key identifier of the user.
//	Login        – unique login (email address).
//	Name         – display name returned in the login payload.
//	Email        – contact email; usually equals Login.
//	PasswordHash – bcrypt hashed password.
//	IsActive     – whether the account may authenticate.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Login        string    // users.login
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Principal is the resolved identity a request acts as once its bearer
// token has been validated. It is the only channel through which identity
// reaches resource handlers; client-supplied identity fields are never
// trusted.
type Principal struct {
	UserID uint64
	Login  string
	Name   string
	Email  string
}
