package station

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound = errors.New("station not found")
	ErrBackend  = errors.New("backend error")
)

// PartialFailure reports a multi-station operation where some ids could not
// be resolved. The remaining stations were still updated.
type PartialFailure struct {
	FailedIDs []int64
}

func (p *PartialFailure) Error() string {
	ids := make([]string, len(p.FailedIDs))
	for i, id := range p.FailedIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return "stations not found: " + strings.Join(ids, ", ")
}

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// resolveKey maps a public station id to its backing key. Records are looked
// up by their id column first; if nothing matches, the decimal form of the id
// is tried as the key itself, because legacy records were stored directly
// under their numeric id. All mutating operations resolve through here.
func (r *Repository) resolveKey(ctx context.Context, id int64) (string, error) {
	var key string
	err := r.db.GetContext(ctx, &key, resolveByIDColumn, id)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", backendErr(err)
	}

	err = r.db.GetContext(ctx, &key, resolveByKey, strconv.FormatInt(id, 10))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", backendErr(err)
	}
	return key, nil
}

const resolveByIDColumn = `SELECT doc_key FROM stations WHERE id = $1 LIMIT 1`

const resolveByKey = `SELECT doc_key FROM stations WHERE doc_key = $1`

// ListAll fetches every station, without comment logs.
func (r *Repository) ListAll(ctx context.Context) ([]Station, error) {
	var stations []Station
	err := r.db.SelectContext(ctx, &stations, listAllQuery)
	if err != nil {
		return nil, backendErr(err)
	}
	return stations, nil
}

const listAllQuery = `SELECT * FROM stations ORDER BY id`

// GetByID resolves a station and attaches its comment log, oldest first.
func (r *Repository) GetByID(ctx context.Context, id int64) (Station, error) {
	key, err := r.resolveKey(ctx, id)
	if err != nil {
		return Station{}, err
	}

	var s Station
	err = r.db.GetContext(ctx, &s, getByKeyQuery, key)
	if errors.Is(err, sql.ErrNoRows) {
		return Station{}, ErrNotFound
	}
	if err != nil {
		return Station{}, backendErr(err)
	}

	err = r.db.SelectContext(ctx, &s.Comments, getCommentsQuery, key)
	if err != nil {
		return Station{}, backendErr(err)
	}
	return s, nil
}

const getByKeyQuery = `SELECT * FROM stations WHERE doc_key = $1`

const getCommentsQuery = `SELECT * FROM station_comments WHERE station_key = $1 ORDER BY ts ASC`

func (r *Repository) SetUrgent(ctx context.Context, id int64, urgent bool) error {
	key, err := r.resolveKey(ctx, id)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, setUrgentQuery, urgent, key)
	if err != nil {
		return backendErr(err)
	}
	return nil
}

const setUrgentQuery = `UPDATE stations SET urgent = $1 WHERE doc_key = $2`

// SetResponsible writes the responsible-person contact. Both fields go in a
// single update; no phone format validation happens at this layer.
func (r *Repository) SetResponsible(ctx context.Context, id int64, name, phone string) error {
	key, err := r.resolveKey(ctx, id)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, setResponsibleQuery, name, phone, key)
	if err != nil {
		return backendErr(err)
	}
	return nil
}

const setResponsibleQuery = `UPDATE stations SET responsible_name = $1, responsible_phone = $2 WHERE doc_key = $3`

// MarkServiced closes the current maintenance cycle for one station. The
// station fields and the optional comment are committed together.
func (r *Repository) MarkServiced(ctx context.Context, id int64, commentText, actorID, actorName string) error {
	key, err := r.resolveKey(ctx, id)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return backendErr(err)
	}
	defer tx.Rollback()

	if err := markServicedInTx(ctx, tx, key, commentText, actorID, actorName, time.Now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return backendErr(err)
	}
	return nil
}

func markServicedInTx(ctx context.Context, tx *sqlx.Tx, key, commentText, actorID, actorName string, now time.Time) error {
	_, err := tx.ExecContext(ctx, markServicedQuery, actorID, actorName, now, commentText, key)
	if err != nil {
		return backendErr(err)
	}

	if strings.TrimSpace(commentText) != "" {
		_, err = tx.ExecContext(ctx, insertCommentQuery, uuid.New(), key, commentText, actorID, actorName, now)
		if err != nil {
			return backendErr(err)
		}
	}
	return nil
}

const markServicedQuery = `
UPDATE stations
SET serviced = true, serviced_by = $1, serviced_by_name = $2, serviced_date = $3, last_comment = $4
WHERE doc_key = $5
`

const insertCommentQuery = `
INSERT INTO station_comments (id, station_key, text, author_id, author_name, ts)
VALUES ($1, $2, $3, $4, $5, $6)
`

// MarkMultipleServiced applies MarkServiced's field set to every station that
// resolves, in one transaction. Unknown ids are reported via PartialFailure
// and never abort the rest. A transport error during resolution aborts the
// whole operation with ErrBackend: PartialFailure is reserved for ids the
// backend answered for and did not know.
func (r *Repository) MarkMultipleServiced(ctx context.Context, ids []int64, commentText, actorID, actorName string) error {
	var keys []string
	var failed []int64
	for _, id := range ids {
		key, err := r.resolveKey(ctx, id)
		if errors.Is(err, ErrNotFound) {
			failed = append(failed, id)
			continue
		}
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}

	if len(keys) > 0 {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return backendErr(err)
		}
		defer tx.Rollback()

		now := time.Now()
		for _, key := range keys {
			if err := markServicedInTx(ctx, tx, key, commentText, actorID, actorName, now); err != nil {
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return backendErr(err)
		}
	}

	if len(failed) > 0 {
		return &PartialFailure{FailedIDs: failed}
	}
	return nil
}

// ResetService reopens the maintenance cycle: service fields are cleared and
// the whole comment log is deleted, all or nothing. A surviving comment log
// with no serviced marker would be an inconsistent state.
func (r *Repository) ResetService(ctx context.Context, id int64) error {
	key, err := r.resolveKey(ctx, id)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return backendErr(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, resetServiceQuery, key); err != nil {
		return backendErr(err)
	}
	if _, err := tx.ExecContext(ctx, deleteCommentsQuery, key); err != nil {
		return backendErr(err)
	}

	if err := tx.Commit(); err != nil {
		return backendErr(err)
	}
	return nil
}

const resetServiceQuery = `
UPDATE stations
SET serviced = false, serviced_by = NULL, serviced_by_name = NULL, serviced_date = NULL
WHERE doc_key = $1
`

const deleteCommentsQuery = `DELETE FROM station_comments WHERE station_key = $1`

// AppendPhotoURL attaches an already-uploaded photo URL. The append happens
// server-side so concurrent uploads for the same station cannot clobber each
// other's entry.
func (r *Repository) AppendPhotoURL(ctx context.Context, id int64, url string) error {
	key, err := r.resolveKey(ctx, id)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, appendPhotoURLQuery, url, key)
	if err != nil {
		return backendErr(err)
	}
	return nil
}

const appendPhotoURLQuery = `
UPDATE stations
SET photo_urls = coalesce(photo_urls, '[]'::jsonb) || to_jsonb($1::text)
WHERE doc_key = $2
`

func backendErr(err error) error {
	return fmt.Errorf("%w: %v", ErrBackend, err)
}
