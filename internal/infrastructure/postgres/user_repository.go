package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/custody-api/internal/domain"
	"github.com/jhoicas/custody-api/internal/domain/entity"
	"github.com/jhoicas/custody-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

// maxHierarchyDepth corta el recorrido de created_by ante datos corruptos.
const maxHierarchyDepth = 64

const userColumns = `id, name, email, password_hash, role, subrole, company_id, coins, created_by_id, created_at, updated_at`

// UserRepo implementación del puerto UserRepository sobre PostgreSQL (usable con pool o tx).
type UserRepo struct {
	q Querier
}

// NewUserRepository construye el adaptador de persistencia para usuarios.
func NewUserRepository(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	var subrole *string
	if err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &subrole, &u.CompanyID, &u.Coins,
		&u.CreatedByID, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Subrole = deref(subrole)
	return &u, nil
}

// Create persiste un nuevo usuario. Email repetido -> domain.ErrDuplicateEmail.
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, nullable(user.Subrole),
		user.CompanyID, user.Coins, user.CreatedByID, user.CreatedAt, user.UpdatedAt,
	)
	return mapError("insert user", err)
}

// GetByID obtiene un usuario por ID; (nil, nil) si no existe.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError("get user by id", err)
	}
	return u, nil
}

// GetByEmail obtiene un usuario por email normalizado.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, mapError("get user by email", err)
	}
	return u, nil
}

// LockForUpdate bloquea las filas en orden de ID (SELECT ... ORDER BY id FOR UPDATE).
func (r *UserRepo) LockForUpdate(ctx context.Context, ids ...string) (map[string]*entity.User, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, mapError("lock users", err)
	}
	defer rows.Close()
	out := make(map[string]*entity.User, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapError("scan user", err)
		}
		out[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("lock users", err)
	}
	return out, nil
}

// AddCoins suma delta al saldo (NULL cuenta como 0) y devuelve el saldo resultante.
func (r *UserRepo) AddCoins(ctx context.Context, id string, delta int64) (int64, error) {
	var balance int64
	err := r.q.QueryRow(ctx, `
		UPDATE users SET coins = COALESCE(coins, 0) + $2, updated_at = now()
		WHERE id = $1
		RETURNING coins`, id, delta).Scan(&balance)
	if err != nil {
		if isNoRows(err) {
			return 0, domain.ErrUserNotFound
		}
		return 0, mapError("add coins", err)
	}
	return balance, nil
}

// AncestorIDs recorre created_by_id desde id hacia la raíz (id incluido).
func (r *UserRepo) AncestorIDs(ctx context.Context, id string) ([]string, error) {
	rows, err := r.q.Query(ctx, `
		WITH RECURSIVE chain (id, created_by_id, depth) AS (
			SELECT id, created_by_id, 0 FROM users WHERE id = $1
			UNION ALL
			SELECT u.id, u.created_by_id, c.depth + 1
			FROM users u JOIN chain c ON u.id = c.created_by_id
			WHERE c.depth < $2
		)
		SELECT id FROM chain ORDER BY depth`, id, maxHierarchyDepth)
	if err != nil {
		return nil, mapError("user ancestors", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("user ancestors: %w", err)
	}
	return ids, nil
}

// ListUserIDs devuelve todos los IDs de usuario ordenados (conciliación masiva).
func ListUserIDs(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, mapError("list user ids", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}
