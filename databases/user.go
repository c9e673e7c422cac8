package databases

// go generate: mockery --name UserDatabase

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/traffic-portal-api/models"
)

const userName = "users"

// UserDatabase contains the methods to use with the user database
type UserDatabase interface {
	// FindByEmail returns models.ErrNotFound for an unknown address
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type userDatabase struct {
	db DatabaseHelper
}

// NewUserDatabase initializes a new instance of user database with the provided db connection
func NewUserDatabase(db DatabaseHelper) UserDatabase {
	return &userDatabase{
		db: db,
	}
}

func (u *userDatabase) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := u.db.Collection(userName).FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("find user", err)
	}
	return user, nil
}

type sqlUserDatabase struct {
	db *sql.DB
}

// NewSQLUserDatabase returns a UserDatabase over the users table
func NewSQLUserDatabase(db *sql.DB) UserDatabase {
	return &sqlUserDatabase{db: db}
}

func (u *sqlUserDatabase) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := u.db.QueryRowContext(ctx,
		"SELECT id, email, name, password_hash, role, active FROM users WHERE email = ?", normalizeEmail(email)).
		Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Role, &user.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("find user", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
