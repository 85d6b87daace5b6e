package types

import "time"

// City is a municipal jurisdiction. Email is the implicit default recipient
// for every report filed in the city.
type City struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Email         *string `json:"email,omitempty"`
	CategorySetID *int64  `json:"category_set_id,omitempty"`
}

// DefaultEmail returns the city's default address or "".
func (c *City) DefaultEmail() string {
	if c == nil || c.Email == nil {
		return ""
	}
	return *c.Email
}

// Ward is a geographic subdivision of a City.
type Ward struct {
	ID           int64   `json:"id"`
	CityID       int64   `json:"city_id"`
	Name         string  `json:"name"`
	CouncillorID *int64  `json:"councillor_id,omitempty"`
	Email        *string `json:"email,omitempty"`
}

// Councillor is the elected representative attached to a Ward.
type Councillor struct {
	ID        int64   `json:"id"`
	CityID    int64   `json:"city_id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email,omitempty"`
}

// CategoryClass is the coarse grouping ("Parks", "Graffiti") matched by
// category email rules.
type CategoryClass struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Category is a report's fine-grained type.
type Category struct {
	ID      int64  `json:"id"`
	ClassID int64  `json:"class_id"`
	Name    string `json:"name"`
	Hint    string `json:"hint,omitempty"`
}

// Report is a citizen problem report.
//
// IsFixed only ever moves from false to true and FixedAt is set at most once.
// UpdatedAt equals CreatedAt until a non-first update is confirmed.
type Report struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	CategoryID  int64      `json:"category_id"`
	WardID      int64      `json:"ward_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FixedAt     *time.Time `json:"fixed_at,omitempty"`
	IsFixed     bool       `json:"is_fixed"`
	IsConfirmed bool       `json:"is_confirmed"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	EmailSentTo string     `json:"email_sent_to,omitempty"`
	PhotoURL    string     `json:"photo_url,omitempty"`
}

// ReportUpdate is a description or status change attached to a Report.
// Exactly one update per report has FirstUpdate set.
//
// SubmittedAt is the intake time. ConfirmedAt is the business creation time
// and stays nil until the update is confirmed.
type ReportUpdate struct {
	ID           int64      `json:"id"`
	ReportID     int64      `json:"report_id"`
	Desc         string     `json:"desc"`
	Author       string     `json:"author"`
	Email        string     `json:"-"`
	Phone        string     `json:"-"`
	IsFixed      bool       `json:"is_fixed"`
	FirstUpdate  bool       `json:"first_update"`
	IsConfirmed  bool       `json:"is_confirmed"`
	ConfirmToken string     `json:"-"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
}

// EffectiveAt returns the confirmation time, or nil while unconfirmed.
func (u *ReportUpdate) EffectiveAt() *time.Time {
	return u.ConfirmedAt
}

// ReportSubscriber is an email address following a report's updates.
type ReportSubscriber struct {
	ID           int64     `json:"id"`
	ReportID     int64     `json:"report_id"`
	Email        string    `json:"-"`
	ConfirmToken string    `json:"-"`
	IsConfirmed  bool      `json:"is_confirmed"`
	CreatedAt    time.Time `json:"created_at"`
}
