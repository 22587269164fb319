package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/g1appdev/hubbits/internal/client/models"
)

// SponsorService pledges money to pets open for sponsorship.
type SponsorService struct {
	api API
}

func NewSponsorService(api API) *SponsorService {
	return &SponsorService{api: api}
}

// Sponsor adds amount to pet pid's sponsorship.
func (s *SponsorService) Sponsor(ctx context.Context, pid int64, amount float64) error {
	body := models.Sponsorship{AmountGained: amount}
	if err := models.Validate(body); err != nil {
		return fmt.Errorf("sponsor: %w", err)
	}
	path := "/api/petSponsor/putPetSponsorDetails/" + strconv.FormatInt(pid, 10)
	if err := s.api.SendJSON(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("sponsor: %w", err)
	}
	return nil
}
