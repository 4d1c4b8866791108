package profile

import "database/sql"

// DefaultRole is assigned at account creation and never changed afterwards.
const DefaultRole = "user"

type Profile struct {
	Phone string         `db:"phone"`
	FIO   sql.NullString `db:"fio"`
	Role  string         `db:"role"`
}

// DisplayName returns the user-editable full name, empty if never set.
func (p Profile) DisplayName() string {
	if p.FIO.Valid {
		return p.FIO.String
	}
	return ""
}
