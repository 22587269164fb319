package models

// Identity is the signed-in user's profile as returned by /api/users/me.
type Identity struct {
	UserID         int64  `json:"userId"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Address        string `json:"address"`
	PhoneNumber    string `json:"phoneNumber"`
	Role           string `json:"role"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// Roles parses the identity's role string.
func (i Identity) Roles() RoleSet {
	return ParseRoles(i.Role)
}

// HasRole reports whether the identity is granted r.
func (i Identity) HasRole(r Role) bool {
	return i.Roles().Has(r)
}

// DisplayName is "First Last", falling back to the username.
func (i Identity) DisplayName() string {
	switch {
	case i.FirstName != "" && i.LastName != "":
		return i.FirstName + " " + i.LastName
	case i.FirstName != "":
		return i.FirstName
	default:
		return i.Username
	}
}

// TokenPair holds the opaque credentials of a session.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SignupForm is the body of POST /api/auth/signup.
type SignupForm struct {
	Username    string `json:"username" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phoneNumber"`
	Role        string `json:"role,omitempty"`
}

// ProfileUpdate carries the editable profile fields sent to PUT /api/users/{id}.
type ProfileUpdate struct {
	Username    string `json:"username" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	FirstName   string `json:"firstName" validate:"required"`
	LastName    string `json:"lastName" validate:"required"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phoneNumber"`
}

// ProfileUpdateFrom prefills an update with the identity's current values.
func ProfileUpdateFrom(i Identity) ProfileUpdate {
	return ProfileUpdate{
		Username:    i.Username,
		Email:       i.Email,
		FirstName:   i.FirstName,
		LastName:    i.LastName,
		Address:     i.Address,
		PhoneNumber: i.PhoneNumber,
	}
}
