package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/g1appdev/hubbits/internal/client/models"
)

// VolunteerService holds the opportunity calls beyond plain CRUD.
type VolunteerService struct {
	api API
}

func NewVolunteerService(api API) *VolunteerService {
	return &VolunteerService{api: api}
}

// SignUp registers the form for opportunity id.
func (v *VolunteerService) SignUp(ctx context.Context, id int64, form models.VolunteerSignUp) error {
	form.OpportunityID = id
	if err := models.Validate(form); err != nil {
		return fmt.Errorf("volunteer signup: %w", err)
	}
	path := "/api/volunteer/signup/" + strconv.FormatInt(id, 10)
	if err := v.api.SendJSON(ctx, http.MethodPost, path, form, nil); err != nil {
		return fmt.Errorf("volunteer signup: %w", err)
	}
	return nil
}

// SignUpCount returns how many volunteers signed up for opportunity id.
func (v *VolunteerService) SignUpCount(ctx context.Context, id int64) (int, error) {
	var raw string
	path := "/api/volunteer/opportunity/" + strconv.FormatInt(id, 10) + "/signups"
	if err := v.api.GetJSON(ctx, path, &raw); err != nil {
		return 0, fmt.Errorf("signup count: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("signup count: unexpected response %q", raw)
	}
	return n, nil
}
