package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

const mysqlDuplicateEntry = 1062

type UserRepoSQL struct {
	db *sql.DB
}

func NewUserRepoSQL(db *sql.DB) *UserRepoSQL {
	return &UserRepoSQL{db: db}
}

func (repo *UserRepoSQL) GetByID(ctx context.Context, id int64) (*User, error) {
	query := "SELECT `id`, `username`, `password` FROM users WHERE id = ?"
	return repo.scanOne(repo.db.QueryRowContext(ctx, query, id))
}

func (repo *UserRepoSQL) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := "SELECT `id`, `username`, `password` FROM users WHERE username = ?"
	return repo.scanOne(repo.db.QueryRowContext(ctx, query, username))
}

func (repo *UserRepoSQL) scanOne(r *sql.Row) (*User, error) {
	u := User{}
	err := r.Scan(&u.ID, &u.Username, &u.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (repo *UserRepoSQL) Add(ctx context.Context, user *User) (int64, error) {
	query := "INSERT INTO users (`username`, `password`) VALUES (?, ?)"
	r, err := repo.db.ExecContext(ctx, query, user.Username, user.Password)

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return 0, ErrUserExists
	}
	if err != nil {
		return 0, err
	}

	lastID, err := r.LastInsertId()
	if err != nil {
		return 0, err
	}

	return lastID, nil
}
