package customization

import "time"

// Record mirrors one row in the `customization` table.  At most one row
// exists per website; a website without a row renders with the default
// theme, so readers fall back to a zero-valued Record instead of treating
// the absence as an error.
//
// Colors are `#rrggbb` strings and the logo is an absolute URL (in
// practice the public URL of an uploaded asset).  Nil means "unset":
// the renderer applies its built-in default.
type Record struct {
	WebsiteID      string    `db:"website_id"      json:"website_id"`
	PrimaryColor   *string   `db:"primary_color"   json:"primary_color,omitempty"`
	SecondaryColor *string   `db:"secondary_color" json:"secondary_color,omitempty"`
	LogoURL        *string   `db:"logo_url"        json:"logo_url,omitempty"`
	CreatedAt      time.Time `db:"created_at"      json:"-"`
	UpdatedAt      time.Time `db:"updated_at"      json:"-"`
}
