package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/tinyurl/internal/entity"
)

const uniqueViolationErrCode = "23505"

func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == uniqueViolationErrCode
}

type urlDB struct {
	ID        int64      `db:"id"`
	Code      string     `db:"code"`
	LongURL   string     `db:"long_url"`
	CreatedAt time.Time  `db:"created_at"`
	ExpiresAt *time.Time `db:"expires_at"`
	HitCount  int64      `db:"hit_count"`
}

func (u *urlDB) toEntity() *entity.URL {
	url := &entity.URL{
		ID:        u.ID,
		Code:      u.Code,
		LongURL:   u.LongURL,
		CreatedAt: u.CreatedAt.UTC(),
		HitCount:  u.HitCount,
	}

	if u.ExpiresAt != nil {
		expiresAt := u.ExpiresAt.UTC()
		url.ExpiresAt = &expiresAt
	}

	return url
}

// URLRepository stores URLs in the url_mappings table. Uniqueness of codes is
// enforced by the table constraint, and hit counts are incremented in a single
// statement.
type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{db: db}
}

func (r *URLRepository) FindActiveByLongURL(ctx context.Context, longURL string, now time.Time) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.FindActiveByLongURL"
	const query = `SELECT * FROM url_mappings
		WHERE long_url = $1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at DESC
		LIMIT 1`

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, longURL, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from url_mappings table: %w", op, err)
	}

	return url.toEntity(), nil
}

func (r *URLRepository) FindByCode(ctx context.Context, code string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.FindByCode"
	const query = `SELECT * FROM url_mappings WHERE code = $1`

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from url_mappings table: %w", op, err)
	}

	return url.toEntity(), nil
}

func (r *URLRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	const op = "adapter.repository.postgres.URLRepository.ExistsByCode"
	const query = `SELECT EXISTS(SELECT 1 FROM url_mappings WHERE code = $1)`

	var exists bool

	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, fmt.Errorf("%s: failed to check code existence: %w", op, err)
	}

	return exists, nil
}

func (r *URLRepository) Save(ctx context.Context, url *entity.URL) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.Save"
	const query = `INSERT INTO url_mappings(code, long_url, created_at, expires_at, hit_count)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *`

	var saved urlDB

	err := r.db.GetContext(ctx, &saved, query, url.Code, url.LongURL, url.CreatedAt, url.ExpiresAt, url.HitCount)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into url_mappings table: %w", op, err)
	}

	return saved.toEntity(), nil
}

func (r *URLRepository) IncrementHitCount(ctx context.Context, code string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.IncrementHitCount"
	const query = `UPDATE url_mappings SET hit_count = hit_count + 1 WHERE code = $1 RETURNING *`

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to update url_mappings table row: %w", op, err)
	}

	return url.toEntity(), nil
}
