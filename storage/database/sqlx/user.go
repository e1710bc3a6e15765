package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tutora/core"
	"github.com/trezcool/tutora/core/user"
)

const userTable = `"user"`

var userColumns = []string{"id", "name", "email", "is_active", "password_hash", "created_at", "updated_at", "last_login"}

type userRow struct {
	ID           string     `db:"id"`
	Name         string     `db:"name"`
	Email        string     `db:"email"`
	IsActive     null.Bool  `db:"is_active"`
	PasswordHash null.Bytes `db:"password_hash"`
	CreatedAt    dbTime     `db:"created_at"`
	UpdatedAt    dbTime     `db:"updated_at"`
	LastLogin    dbTime     `db:"last_login"`
}

func (r userRow) unboil() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		IsActive:     r.IsActive.Ptr(),
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
		LastLogin:    r.LastLogin.Time,
	}
}

type userRepository struct {
	exec core.DBExecutor
	dialect
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{exec: db, dialect: newDialect(db)}
}

func (repo userRepository) values(usr user.User) []interface{} {
	return []interface{}{
		usr.ID,
		usr.Name,
		usr.Email,
		usr.Active(),
		null.NewBytes(usr.PasswordHash, len(usr.PasswordHash) > 0),
		repo.timeArg(usr.CreatedAt),
		repo.timeArg(usr.UpdatedAt),
		repo.nullTimeArg(usr.LastLogin),
	}
}

func (repo userRepository) query(ctx context.Context, b sq.SelectBuilder, exec []core.DBExecutor) ([]user.User, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, core.NewStorageError(err, "building users query")
	}
	rows, err := getExec(repo.exec, exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, core.NewStorageError(err, "querying users")
	}
	defer func() { _ = rows.Close() }()

	var dest []userRow
	if err = sqlx.StructScan(rows, &dest); err != nil {
		return nil, core.NewStorageError(err, "scanning users")
	}
	users := make([]user.User, 0, len(dest))
	for _, r := range dest {
		users = append(users, r.unboil())
	}
	return users, nil
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	b := repo.sb.Select(userColumns...).From(userTable).Where(sq.Eq{"email": email}).Limit(1)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		b = b.Where(sq.NotEq{"id": ids})
	}

	users, err := repo.query(ctx, b, exec)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	usr.CreatedAt = core.DBTime(usr.CreatedAt)
	usr.UpdatedAt = core.DBTime(usr.UpdatedAt)
	usr.LastLogin = core.DBTime(usr.LastLogin)
	if usr.IsActive == nil {
		usr.SetActive(true)
	}

	q, args, err := repo.sb.Insert(userTable).Columns(userColumns...).Values(repo.values(usr)...).ToSql()
	if err != nil {
		return user.User{}, core.NewStorageError(err, "building user insert")
	}
	if _, err = getExec(repo.exec, exec).ExecContext(ctx, q, args...); err != nil {
		return user.User{}, core.NewStorageError(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, exec ...core.DBExecutor) ([]user.User, error) {
	b := repo.sb.Select(userColumns...).From(userTable)
	if filter.IsActive != nil {
		b = b.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	return repo.query(ctx, b.OrderBy("created_at ASC", "email ASC"), exec)
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	b := repo.sb.Select(userColumns...).From(userTable).Limit(1)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		b = b.Where(sq.Eq{"id": filter.ID})
	case filter.Email != "":
		b = b.Where(sq.Eq{"email": filter.Email})
	default:
		return user.User{}, user.ErrNotFound
	}

	users, err := repo.query(ctx, b, exec)
	if err != nil {
		return user.User{}, err
	}
	if len(users) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return users[0], nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.UpdatedAt = core.DBTime(usr.UpdatedAt)
	usr.LastLogin = core.DBTime(usr.LastLogin)

	vals := repo.values(usr)
	b := repo.sb.Update(userTable).Where(sq.Eq{"id": usr.ID})
	for i, col := range userColumns {
		if col == "id" || col == "created_at" {
			continue
		}
		b = b.Set(col, vals[i])
	}

	q, args, err := b.ToSql()
	if err != nil {
		return user.User{}, core.NewStorageError(err, "building user update")
	}
	res, err := getExec(repo.exec, exec).ExecContext(ctx, q, args...)
	if err != nil {
		return user.User{}, core.NewStorageError(err, "updating user")
	}
	n, err := rowsAffected(res, "updating user")
	if err != nil {
		return user.User{}, err
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
