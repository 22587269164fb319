package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/g1appdev/hubbits/internal/client/models"
	"github.com/g1appdev/hubbits/internal/client/services"
	"golang.org/x/sync/errgroup"
)

// Adopt files an adoption request, or a rehome request with "adopt rehome".
func (a *App) Adopt(ctx context.Context, args []string) error {
	status := models.AdoptionPending
	if len(args) > 0 && args[0] == "rehome" {
		status = models.AdoptionPendingRehome
	}

	var initial models.Adoption
	if a.adoptDraft != nil {
		initial = *a.adoptDraft
	}
	req, err := readForm(a, adoptionFields, initial)
	a.adoptDraft = &req
	if err != nil {
		return err
	}
	req.Status = status
	if err := models.Validate(req); err != nil {
		return err
	}

	created, err := services.NewResource[models.Adoption](a.api, services.AdoptionEndpoints).Create(ctx, req)
	if err != nil {
		return err
	}
	a.adoptDraft = nil
	fmt.Fprintf(a.out, "Request %d submitted, status %s\n", created.AdoptionID, created.Status)
	return nil
}

func (a *App) Donate(ctx context.Context, args []string) error {
	var initial models.Donation
	if a.donateDraft != nil {
		initial = *a.donateDraft
	}
	d, err := readForm(a, donationFields, initial)
	a.donateDraft = &d
	if err != nil {
		return err
	}
	if err := models.Validate(d); err != nil {
		return err
	}

	created, err := services.NewResource[models.Donation](a.api, services.DonationEndpoints).Create(ctx, d)
	if err != nil {
		return err
	}
	a.donateDraft = nil
	fmt.Fprintf(a.out, "Thank you! Donation %d of %.2f recorded\n", created.DonationID, created.Amount)
	return nil
}

// Volunteer signs up for an opportunity or, with "count", shows how many
// already did.
func (a *App) Volunteer(ctx context.Context, args []string) error {
	if len(args) == 2 && args[0] == "count" {
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		n, err := a.volunteer.SignUpCount(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%d volunteer(s) signed up for %d\n", n, id)
		return nil
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: volunteer <id> | volunteer count <id>", errUsage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var initial models.VolunteerSignUp
	if a.volunteerForm != nil {
		initial = *a.volunteerForm
	} else if me, ok := a.store.Get(); ok {
		initial = models.VolunteerSignUp{
			FirstName:   me.FirstName,
			LastName:    me.LastName,
			Email:       me.Email,
			Address:     me.Address,
			PhoneNumber: me.PhoneNumber,
		}
	}
	form, err := readForm(a, volunteerFields, initial)
	a.volunteerForm = &form
	if err != nil {
		return err
	}
	if err := a.volunteer.SignUp(ctx, id, form); err != nil {
		return err
	}
	a.volunteerForm = nil
	fmt.Fprintf(a.out, "Signed up for opportunity %d\n", id)
	return nil
}

func (a *App) Sponsor(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: sponsor <pet id> <amount>", errUsage)
	}
	pid, err := parseID(args[0])
	if err != nil {
		return err
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("amount %q is not a number", args[1])
	}
	if err := a.sponsor.Sponsor(ctx, pid, amount); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Sponsored pet %d with %.2f\n", pid, amount)
	return nil
}

// Stats prints the client's own request counters.
func (a *App) Stats(ctx context.Context, args []string) error {
	if a.gatherer == nil {
		fmt.Fprintln(a.out, "metrics are not enabled")
		return nil
	}
	families, err := a.gatherer.Gather()
	if err != nil {
		return err
	}

	var lines []string
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "hubbits_client_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			var value string
			switch {
			case m.GetCounter() != nil:
				value = strconv.FormatFloat(m.GetCounter().GetValue(), 'f', -1, 64)
			case m.GetHistogram() != nil:
				value = fmt.Sprintf("count=%d sum=%.3fs", m.GetHistogram().GetSampleCount(), m.GetHistogram().GetSampleSum())
			default:
				continue
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %s", mf.GetName(), strings.Join(labels, ","), value))
		}
	}
	sort.Strings(lines)
	if len(lines) == 0 {
		fmt.Fprintln(a.out, "no requests yet")
		return nil
	}
	fmt.Fprintln(a.out, strings.Join(lines, "\n"))
	return nil
}

// Dashboard shows collection sizes for administrators.
func (a *App) Dashboard(ctx context.Context, args []string) error {
	var users, pets, adoptions, donations int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := services.NewResource[models.User](a.api, services.UserEndpoints).List(gctx)
		users = len(rows)
		return err
	})
	g.Go(func() error {
		rows, err := services.NewResource[models.Pet](a.api, services.PetEndpoints).List(gctx)
		pets = len(rows)
		return err
	})
	g.Go(func() error {
		rows, err := services.NewResource[models.Adoption](a.api, services.AdoptionEndpoints).List(gctx)
		adoptions = len(rows)
		return err
	})
	g.Go(func() error {
		rows, err := services.NewResource[models.Donation](a.api, services.DonationEndpoints).List(gctx)
		donations = len(rows)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Users:     %d\nPets:      %d\nAdoptions: %d\nDonations: %d\n", users, pets, adoptions, donations)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q is not a valid id", s)
	}
	return id, nil
}
