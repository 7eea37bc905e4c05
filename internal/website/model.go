package website

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Record mirrors one row in the persistent `website` table.  The id doubles
// as the website's platform subdomain label (`<id>.<main domain>`), which is
// why it is a short lowercase alphanumeric string rather than a UUID.
type Record struct {
	ID        string    `db:"id"         json:"id"`
	UserID    string    `db:"user_id"    json:"user_id"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

const (
	idLength = 14
	idRunes  = "0123456789abcdefghijklmnopqrstuvwxyz"

	// MinNameLength is the shortest website name accepted on create and
	// rename.
	MinNameLength = 4
)

// NewID generates a website identity that is also a valid DNS label.
func NewID() (string, error) {
	return gonanoid.Generate(idRunes, idLength)
}
