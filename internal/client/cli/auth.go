package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/g1appdev/hubbits/internal/client/client"
	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/client/services"
	"github.com/g1appdev/hubbits/internal/common"
)

// Login signs in, replacing any current session.
func (a *App) Login(ctx context.Context, args []string) error {
	var (
		username string
		err      error
	)
	if len(args) > 0 {
		username = args[0]
	} else if username, err = GetSimpleText(a.reader, "Username", a.out); err != nil {
		return err
	}

	password, err := a.secret("Password")
	if err != nil {
		return err
	}
	identity, err := a.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", identity.DisplayName(), identity.Roles())
	return nil
}

// Signup registers an account. A form rejected locally or by the server is
// offered again on the next attempt.
func (a *App) Signup(ctx context.Context, args []string) error {
	var initial models.SignupForm
	if a.signupDraft != nil {
		initial = *a.signupDraft
	}
	form, err := readForm(a, signupFields, initial)
	a.signupDraft = &form
	if err != nil {
		return err
	}

	if taken, err := a.auth.UsernameTaken(ctx, form.Username); err != nil {
		return err
	} else if taken {
		return fmt.Errorf("username %q is already taken", form.Username)
	}
	if taken, err := a.auth.EmailTaken(ctx, form.Email); err != nil {
		return err
	} else if taken {
		return fmt.Errorf("email %q is already in use", form.Email)
	}

	password, err := a.secret("Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	confirm, err := a.secret("Confirm password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)
	if string(password) != string(confirm) {
		return services.ErrPasswordMismatch
	}

	form.Password = string(password)
	err = a.auth.Signup(ctx, form)
	form.Password = ""
	if err != nil {
		return err
	}
	a.signupDraft = nil
	fmt.Fprintln(a.out, "Account created, you can log in now")
	return nil
}

// Whoami prints the current identity and the access token lifetime.
func (a *App) Whoami(ctx context.Context, args []string) error {
	snap := a.store.Snapshot()
	if !snap.HasIdentity {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	id := snap.Identity
	fmt.Fprintf(a.out, "%s <%s> id=%d roles=%s\n", id.Username, id.Email, id.UserID, id.Roles())
	if exp, ok := client.TokenExpiry(a.store.Tokens().AccessToken); ok {
		fmt.Fprintf(a.out, "access token expires %s\n", exp.Format(time.RFC3339))
	}
	return nil
}

func (a *App) Logout(ctx context.Context, args []string) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.profileDraft = nil
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// Profile shows the signed-in profile; "profile edit" changes it.
func (a *App) Profile(ctx context.Context, args []string) error {
	id, ok := a.store.Get()
	if !ok {
		return services.ErrNotSignedIn
	}
	if len(args) == 0 {
		fmt.Fprintf(a.out, "Username: %s\nName:     %s %s\nEmail:    %s\nAddress:  %s\nPhone:    %s\nRole:     %s\n",
			id.Username, id.FirstName, id.LastName, id.Email, id.Address, id.PhoneNumber, id.Roles())
		if id.ProfilePicture != "" {
			fmt.Fprintf(a.out, "Picture:  %s\n", id.ProfilePicture)
		}
		return nil
	}
	if args[0] != "edit" {
		return fmt.Errorf("%w: profile [edit]", errUsage)
	}

	initial := models.ProfileUpdateFrom(id)
	if a.profileDraft != nil {
		initial = *a.profileDraft
	}
	update, err := readForm(a, profileFields, initial)
	a.profileDraft = &update
	if err != nil {
		return err
	}
	picture, err := GetSimpleText(a.reader, "Profile picture file (blank keeps it)", a.out)
	if err != nil {
		return err
	}

	updated, err := a.auth.UpdateProfile(ctx, update, picture)
	if err != nil {
		return err
	}
	a.profileDraft = nil
	fmt.Fprintf(a.out, "Profile updated for %s\n", updated.Username)
	return nil
}

func (a *App) Passwd(ctx context.Context, args []string) error {
	old, err := a.secret("Current password")
	if err != nil {
		return err
	}
	next, err := a.secret("New password")
	if err != nil {
		common.WipeByteArray(old)
		return err
	}
	confirm, err := a.secret("Confirm new password")
	if err != nil {
		common.WipeByteArray(old)
		common.WipeByteArray(next)
		return err
	}
	if err := a.auth.ChangePassword(ctx, old, next, confirm); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}
