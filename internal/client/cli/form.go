package cli

import (
	"fmt"
	"strconv"

	"github.com/g1appdev/hubbits/internal/client/models"
)

// field is one prompt of a form over T.
type field[T any] struct {
	label string
	multi bool
	get   func(T) string
	set   func(*T, string) error
}

// paragraph is a text field read until an empty line.
func paragraph[T any](label string, p func(*T) *string) field[T] {
	f := text(label, p)
	f.multi = true
	return f
}

func text[T any](label string, p func(*T) *string) field[T] {
	return field[T]{
		label: label,
		get:   func(v T) string { return *p(&v) },
		set:   func(v *T, s string) error { *p(v) = s; return nil },
	}
}

func integer[T any](label string, p func(*T) *int) field[T] {
	return field[T]{
		label: label,
		get: func(v T) string {
			if n := *p(&v); n != 0 {
				return strconv.Itoa(n)
			}
			return ""
		},
		set: func(v *T, s string) error {
			if s == "" {
				*p(v) = 0
				return nil
			}
			n, err := strconv.Atoi(s)
			if err != nil {
				return fmt.Errorf("%s: %q is not a whole number", label, s)
			}
			*p(v) = n
			return nil
		},
	}
}

func decimal[T any](label string, p func(*T) *float64) field[T] {
	return field[T]{
		label: label,
		get: func(v T) string {
			if f := *p(&v); f != 0 {
				return strconv.FormatFloat(f, 'f', -1, 64)
			}
			return ""
		},
		set: func(v *T, s string) error {
			if s == "" {
				*p(v) = 0
				return nil
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("%s: %q is not a number", label, s)
			}
			*p(v) = f
			return nil
		},
	}
}

func boolean[T any](label string, p func(*T) *bool) field[T] {
	return field[T]{
		label: label + " (y/n)",
		get: func(v T) string {
			if *p(&v) {
				return "y"
			}
			return "n"
		},
		set: func(v *T, s string) error {
			switch s {
			case "y", "yes", "true", "1":
				*p(v) = true
			case "", "n", "no", "false", "0":
				*p(v) = false
			default:
				return fmt.Errorf("%s: answer y or n", label)
			}
			return nil
		},
	}
}

// readForm prompts for every field, prefilled from initial. On a parse
// error the values entered so far are returned with the error.
func readForm[T any](a *App, fields []field[T], initial T) (T, error) {
	v := initial
	for _, f := range fields {
		var (
			s   string
			err error
		)
		if f.multi {
			s, err = GetMultiline(a.reader, f.label, a.out)
			if s == "" {
				s = f.get(v)
			}
		} else {
			s, err = GetDefault(a.reader, f.label, f.get(v), a.out)
		}
		if err != nil {
			return v, err
		}
		if err := f.set(&v, s); err != nil {
			return v, err
		}
	}
	return v, nil
}

var petFields = []field[models.Pet]{
	text("Name", func(p *models.Pet) *string { return &p.Name }),
	text("Type", func(p *models.Pet) *string { return &p.Type }),
	text("Breed", func(p *models.Pet) *string { return &p.Breed }),
	integer("Age", func(p *models.Pet) *int { return &p.Age }),
	text("Gender", func(p *models.Pet) *string { return &p.Gender }),
	text("Description", func(p *models.Pet) *string { return &p.Description }),
	text("Photo URL", func(p *models.Pet) *string { return &p.Photo }),
	text("Status", func(p *models.Pet) *string { return &p.Status }),
	boolean("Open for sponsorship", func(p *models.Pet) *bool { return &p.AllowSponsorship }),
}

var adoptionFields = []field[models.Adoption]{
	text("Name", func(a *models.Adoption) *string { return &a.Name }),
	text("Address", func(a *models.Adoption) *string { return &a.Address }),
	text("Contact number", func(a *models.Adoption) *string { return &a.ContactNumber }),
	text("Date", func(a *models.Adoption) *string { return &a.AdoptionDate }),
	text("Pet type", func(a *models.Adoption) *string { return &a.PetType }),
	text("Breed", func(a *models.Adoption) *string { return &a.Breed }),
	text("Description", func(a *models.Adoption) *string { return &a.Description }),
}

// adoptionAdminFields adds the status an administrator decides on.
var adoptionAdminFields = append(append([]field[models.Adoption](nil), adoptionFields...),
	field[models.Adoption]{
		label: "Status (PENDING, APPROVED, REJECTED, PENDING_REHOME, ACCEPTED_REHOME)",
		get:   func(a models.Adoption) string { return string(a.Status) },
		set:   func(a *models.Adoption, s string) error { a.Status = models.AdoptionStatus(s); return nil },
	},
)

var donationFields = []field[models.Donation]{
	decimal("Amount", func(d *models.Donation) *float64 { return &d.Amount }),
	text("Frequency (once, monthly, yearly)", func(d *models.Donation) *string { return &d.Frequency }),
	text("First name", func(d *models.Donation) *string { return &d.FirstName }),
	text("Last name", func(d *models.Donation) *string { return &d.LastName }),
	text("Date", func(d *models.Donation) *string { return &d.DonationDate }),
	text("Message", func(d *models.Donation) *string { return &d.SpecialMessage }),
}

var articleFields = []field[models.Article]{
	text("Title", func(a *models.Article) *string { return &a.Title }),
	paragraph("Content", func(a *models.Article) *string { return &a.Content }),
	text("Author", func(a *models.Article) *string { return &a.Author }),
	text("Link", func(a *models.Article) *string { return &a.Link }),
	text("Published", func(a *models.Article) *string { return &a.PublishedDate }),
}

var opportunityFields = []field[models.Opportunity]{
	text("Title", func(o *models.Opportunity) *string { return &o.Title }),
	text("Description", func(o *models.Opportunity) *string { return &o.Description }),
	text("Registration opens", func(o *models.Opportunity) *string { return &o.RegistrationStartDate }),
	text("Registration closes", func(o *models.Opportunity) *string { return &o.RegistrationEndDate }),
	text("Date and time", func(o *models.Opportunity) *string { return &o.VolunteerDatetime }),
	text("Location", func(o *models.Opportunity) *string { return &o.Location }),
	integer("Hours", func(o *models.Opportunity) *int { return &o.HoursWorked }),
	integer("Volunteers needed", func(o *models.Opportunity) *int { return &o.VolunteersNeeded }),
}

var lostFoundFields = []field[models.LostFoundPost]{
	text("Report type (lost, found)", func(p *models.LostFoundPost) *string { return &p.ReportType }),
	text("Pet category", func(p *models.LostFoundPost) *string { return &p.PetCategory }),
	text("Date reported", func(p *models.LostFoundPost) *string { return &p.DateReported }),
	text("Last seen", func(p *models.LostFoundPost) *string { return &p.LastSeen }),
	text("Description", func(p *models.LostFoundPost) *string { return &p.Description }),
}

var userFields = []field[models.User]{
	text("Username", func(u *models.User) *string { return &u.Username }),
	text("Email", func(u *models.User) *string { return &u.Email }),
	text("First name", func(u *models.User) *string { return &u.FirstName }),
	text("Last name", func(u *models.User) *string { return &u.LastName }),
	text("Address", func(u *models.User) *string { return &u.Address }),
	text("Phone", func(u *models.User) *string { return &u.PhoneNumber }),
	text("Role", func(u *models.User) *string { return &u.Role }),
	text("Password (blank keeps it)", func(u *models.User) *string { return &u.Password }),
}

var signupFields = []field[models.SignupForm]{
	text("Username", func(f *models.SignupForm) *string { return &f.Username }),
	text("Email", func(f *models.SignupForm) *string { return &f.Email }),
	text("First name", func(f *models.SignupForm) *string { return &f.FirstName }),
	text("Last name", func(f *models.SignupForm) *string { return &f.LastName }),
	text("Address", func(f *models.SignupForm) *string { return &f.Address }),
	text("Phone", func(f *models.SignupForm) *string { return &f.PhoneNumber }),
}

var profileFields = []field[models.ProfileUpdate]{
	text("Username", func(p *models.ProfileUpdate) *string { return &p.Username }),
	text("Email", func(p *models.ProfileUpdate) *string { return &p.Email }),
	text("First name", func(p *models.ProfileUpdate) *string { return &p.FirstName }),
	text("Last name", func(p *models.ProfileUpdate) *string { return &p.LastName }),
	text("Address", func(p *models.ProfileUpdate) *string { return &p.Address }),
	text("Phone", func(p *models.ProfileUpdate) *string { return &p.PhoneNumber }),
}

var volunteerFields = []field[models.VolunteerSignUp]{
	text("First name", func(f *models.VolunteerSignUp) *string { return &f.FirstName }),
	text("Last name", func(f *models.VolunteerSignUp) *string { return &f.LastName }),
	text("Email", func(f *models.VolunteerSignUp) *string { return &f.Email }),
	text("Address", func(f *models.VolunteerSignUp) *string { return &f.Address }),
	text("Phone", func(f *models.VolunteerSignUp) *string { return &f.PhoneNumber }),
}
