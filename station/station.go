package station

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Station struct {
	// Key is the backing-store key the record lives under. Legacy records
	// use the decimal form of ID as their key; newer records carry an
	// auto-generated key and a separate id column.
	Key string `db:"doc_key"`
	ID  int64  `db:"id"`

	Number       sql.NullString `db:"number"`
	Address      sql.NullString `db:"address"`
	Organization sql.NullString `db:"organization"`

	Serviced       bool           `db:"serviced"`
	ServicedBy     sql.NullString `db:"serviced_by"`
	ServicedByName sql.NullString `db:"serviced_by_name"`
	ServicedDate   sql.NullTime   `db:"serviced_date"`

	Slots  int            `db:"slots"`
	Status sql.NullString `db:"status"`
	Urgent bool           `db:"urgent"`

	PhotoURL  sql.NullString `db:"photo_url"`
	PhotoURLs PhotoURLs      `db:"photo_urls"`

	LastComment      sql.NullString `db:"last_comment"`
	ResponsibleName  sql.NullString `db:"responsible_name"`
	ResponsiblePhone sql.NullString `db:"responsible_phone"`

	Comments []Comment `db:"-"`
}

// Comment is one maintenance note. Comments are append-only; there is no
// edit or delete path except the full log wipe in ResetService.
type Comment struct {
	ID         uuid.UUID `db:"id"`
	StationKey string    `db:"station_key"`
	Text       string    `db:"text"`
	AuthorID   string    `db:"author_id"`
	AuthorName string    `db:"author_name"`
	Timestamp  time.Time `db:"ts"`
}

// PhotoURLs is stored as a jsonb array so appends can happen server-side
// without read-modify-write races between concurrent uploaders.
type PhotoURLs []string

func (p PhotoURLs) Value() (driver.Value, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(p))
}

func (p *PhotoURLs) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]string)(p))
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(p))
	}
	return fmt.Errorf("cannot scan %T into PhotoURLs", src)
}
