package models

import "fmt"

// Record is an entity with a server-assigned identifier.
type Record interface {
	RecordID() int64
}

// Pet is an animal listed for adoption or rehoming.
type Pet struct {
	PID              int64  `json:"pid"`
	Name             string `json:"name" validate:"required"`
	Type             string `json:"type" validate:"required"`
	Breed            string `json:"breed"`
	Age              int    `json:"age" validate:"gte=0"`
	Gender           string `json:"gender"`
	Description      string `json:"description"`
	Photo            string `json:"photo"`
	Status           string `json:"status"`
	AllowSponsorship bool   `json:"allowSponsorship"`
}

func (p Pet) RecordID() int64 { return p.PID }

func (p Pet) WithRecordID(id int64) Pet { p.PID = id; return p }

func (p Pet) String() string {
	return fmt.Sprintf("%s (%s, %s) %s", p.Name, p.Type, p.Breed, p.Status)
}

// AdoptionStatus is the lifecycle state of an adoption or rehome request.
type AdoptionStatus string

const (
	AdoptionPending        AdoptionStatus = "PENDING"
	AdoptionApproved       AdoptionStatus = "APPROVED"
	AdoptionRejected       AdoptionStatus = "REJECTED"
	AdoptionPendingRehome  AdoptionStatus = "PENDING_REHOME"
	AdoptionAcceptedRehome AdoptionStatus = "ACCEPTED_REHOME"
)

// Adoption is an adoption application or a rehome submission.
type Adoption struct {
	AdoptionID    int64          `json:"adoptionID"`
	Name          string         `json:"name" validate:"required"`
	Address       string         `json:"address" validate:"required"`
	ContactNumber string         `json:"contactNumber" validate:"required"`
	AdoptionDate  string         `json:"adoptionDate"`
	Breed         string         `json:"breed"`
	Description   string         `json:"description"`
	PetType       string         `json:"petType"`
	Status        AdoptionStatus `json:"status" validate:"required,adoption_status"`
}

func (a Adoption) RecordID() int64 { return a.AdoptionID }

func (a Adoption) WithRecordID(id int64) Adoption { a.AdoptionID = id; return a }

func (a Adoption) String() string {
	return fmt.Sprintf("%s: %s %s [%s]", a.Name, a.PetType, a.Breed, a.Status)
}

// Donation is a monetary gift.
type Donation struct {
	DonationID     int64   `json:"donationID"`
	Amount         float64 `json:"amount" validate:"gt=0"`
	DonationDate   string  `json:"donationDate"`
	Frequency      string  `json:"frequency" validate:"omitempty,oneof=once monthly yearly ONE_TIME MONTHLY YEARLY"`
	FirstName      string  `json:"firstName" validate:"required"`
	LastName       string  `json:"lastName" validate:"required"`
	SpecialMessage string  `json:"specialMessage"`
}

func (d Donation) RecordID() int64 { return d.DonationID }

func (d Donation) WithRecordID(id int64) Donation { d.DonationID = id; return d }

func (d Donation) String() string {
	return fmt.Sprintf("%.2f from %s %s (%s)", d.Amount, d.FirstName, d.LastName, d.Frequency)
}

// Article is a news feed entry.
type Article struct {
	ArticleID     int64  `json:"articleID"`
	Title         string `json:"title" validate:"required"`
	Content       string `json:"content" validate:"required"`
	Author        string `json:"author"`
	Link          string `json:"link" validate:"omitempty,url"`
	PublishedDate string `json:"publishedDate"`
	ImageURL      string `json:"imageUrl"`
}

func (a Article) RecordID() int64 { return a.ArticleID }

func (a Article) WithRecordID(id int64) Article { a.ArticleID = id; return a }

func (a Article) String() string {
	return fmt.Sprintf("%s by %s", a.Title, a.Author)
}

// Opportunity is a volunteering event.
type Opportunity struct {
	OpportunityID         int64  `json:"opportunityID"`
	Title                 string `json:"title" validate:"required"`
	Description           string `json:"description" validate:"required"`
	RegistrationStartDate string `json:"registrationStartDate" validate:"required"`
	RegistrationEndDate   string `json:"registrationEndDate" validate:"required"`
	VolunteerDatetime     string `json:"volunteerDatetime" validate:"required"`
	Location              string `json:"location"`
	HoursWorked           int    `json:"hoursWorked" validate:"gte=0"`
	VolunteersNeeded      int    `json:"volunteersNeeded" validate:"gte=0"`
	VolunteerImageURL     string `json:"volunteerImageUrl"`
	CreatorID             int64  `json:"creatorId"`
}

func (o Opportunity) RecordID() int64 { return o.OpportunityID }

func (o Opportunity) WithRecordID(id int64) Opportunity { o.OpportunityID = id; return o }

func (o Opportunity) String() string {
	return fmt.Sprintf("%s @ %s on %s (%d needed)", o.Title, o.Location, o.VolunteerDatetime, o.VolunteersNeeded)
}

// LostFoundPost is a lost or found pet report.
type LostFoundPost struct {
	ReportID     int64  `json:"reportid"`
	ReportType   string `json:"reporttype" validate:"required,oneof=lost found"`
	PetCategory  string `json:"petcategory" validate:"required"`
	DateReported string `json:"datereported"`
	LastSeen     string `json:"lastseen"`
	Description  string `json:"description"`
	ImageURL     string `json:"imageurl"`
	CreatorID    int64  `json:"creatorid"`
}

func (p LostFoundPost) RecordID() int64 { return p.ReportID }

func (p LostFoundPost) WithRecordID(id int64) LostFoundPost { p.ReportID = id; return p }

func (p LostFoundPost) String() string {
	return fmt.Sprintf("%s %s, last seen %s", p.ReportType, p.PetCategory, p.LastSeen)
}

// User is a user account as seen from the admin dashboard.
type User struct {
	UserID      int64  `json:"userId"`
	Username    string `json:"username" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phoneNumber"`
	Role        string `json:"role"`
	Password    string `json:"password,omitempty"`
}

func (u User) RecordID() int64 { return u.UserID }

func (u User) WithRecordID(id int64) User { u.UserID = id; return u }

func (u User) String() string {
	return fmt.Sprintf("%s <%s> %s", u.Username, u.Email, u.Role)
}

// VolunteerSignUp is the form posted to /api/volunteer/signup/{id}.
type VolunteerSignUp struct {
	FirstName     string `json:"firstName" validate:"required"`
	LastName      string `json:"lastName" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password,omitempty"`
	Address       string `json:"address"`
	PhoneNumber   string `json:"phoneNumber"`
	OpportunityID int64  `json:"opportunityId"`
}

// Sponsorship is the body of PUT /api/petSponsor/putPetSponsorDetails/{pid}.
type Sponsorship struct {
	AmountGained float64 `json:"amountGained" validate:"gt=0"`
}
