package lifecycle

import (
	"strings"

	"fixmystreet/internal/types"
)

// Field length limits mirror the storage columns.
const (
	maxTitleLen  = 100
	maxAuthorLen = 255
	maxPhoneLen  = 255
)

// CreateReportInput is the intake form for a new report and its first update.
// WardID is supplied by the geocoding collaborator; zero means unresolved.
type CreateReportInput struct {
	Title      string `json:"title"`
	CategoryID int64  `json:"category_id"`
	WardID     int64  `json:"ward_id"`
	Author     string `json:"author"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Desc       string `json:"desc"`
	IsFixed    bool   `json:"is_fixed,omitempty"`
	PhotoURL   string `json:"photo_url,omitempty"`
}

// CreateUpdateInput is the form for a later update on an existing report.
type CreateUpdateInput struct {
	Author  string `json:"author"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Desc    string `json:"desc"`
	IsFixed bool   `json:"is_fixed,omitempty"`
}

func (in *CreateReportInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Desc = strings.TrimSpace(in.Desc)
	in.PhotoURL = strings.TrimSpace(in.PhotoURL)
}

func (in *CreateUpdateInput) normalize() {
	in.Author = strings.TrimSpace(in.Author)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Desc = strings.TrimSpace(in.Desc)
}

// validate checks the fields that need no lookups. Ward and category
// resolution is checked by the caller against the stores.
func (in CreateReportInput) validate() *types.ValidationError {
	verr := &types.ValidationError{}
	switch {
	case in.Title == "":
		verr.Add("title", "This field is required.")
	case len(in.Title) > maxTitleLen:
		verr.Add("title", "Ensure this value has at most 100 characters.")
	}
	if in.CategoryID <= 0 {
		verr.Add("category_id", "This field is required.")
	}
	if in.WardID <= 0 {
		verr.Add("ward_id", "The location could not be matched to a ward.")
	}
	if in.IsFixed {
		verr.Add("is_fixed", "A new report cannot already be fixed.")
	}
	validateContact(verr, in.Author, in.Email, in.Phone, in.Desc)
	return verr
}

func (in CreateUpdateInput) validate() *types.ValidationError {
	verr := &types.ValidationError{}
	validateContact(verr, in.Author, in.Email, in.Phone, in.Desc)
	return verr
}

func validateContact(verr *types.ValidationError, author, email, phone, desc string) {
	switch {
	case author == "":
		verr.Add("author", "This field is required.")
	case len(author) > maxAuthorLen:
		verr.Add("author", "Ensure this value has at most 255 characters.")
	}
	switch {
	case email == "":
		verr.Add("email", "This field is required.")
	case !types.IsValidEmail(email):
		verr.Add("email", "Enter a valid e-mail address.")
	}
	if len(phone) > maxPhoneLen {
		verr.Add("phone", "Ensure this value has at most 255 characters.")
	}
	if desc == "" {
		verr.Add("desc", "This field is required.")
	}
}
