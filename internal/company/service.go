package company

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-invoice/internal/events"
)

// Service reads and writes the company profile.
type Service struct {
	Store  Store
	Events *events.Bus
	Logger zerolog.Logger
	Now    func() time.Time
}

// Get returns the current settings.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	if s == nil || s.Store == nil {
		return Settings{}, errors.New("company service not configured")
	}
	return s.Store.Get(ctx)
}

// Save replaces the settings after validating the logo.
func (s *Service) Save(ctx context.Context, in Settings) (Settings, error) {
	if s == nil || s.Store == nil {
		return Settings{}, errors.New("company service not configured")
	}
	in.Logo = strings.TrimSpace(in.Logo)
	if err := ValidateLogo(in.Logo); err != nil {
		return Settings{}, err
	}
	now := s.now()
	out := Settings{
		Name:            strings.TrimSpace(in.Name),
		Address:         strings.TrimSpace(in.Address),
		Phone:           strings.TrimSpace(in.Phone),
		Email:           strings.ToLower(strings.TrimSpace(in.Email)),
		Logo:            in.Logo,
		BankAccountInfo: strings.TrimSpace(in.BankAccountInfo),
		UpdatedAt:       &now,
	}
	if err := s.Store.Save(ctx, out); err != nil {
		return Settings{}, fmt.Errorf("save company settings: %w", err)
	}
	s.emit(ctx, map[string]any{"name": out.Name, "hasLogo": out.Logo != ""})
	return out, nil
}

// Reset clears every field.
func (s *Service) Reset(ctx context.Context) error {
	if s == nil || s.Store == nil {
		return errors.New("company service not configured")
	}
	if err := s.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset company settings: %w", err)
	}
	s.emit(ctx, map[string]any{"reset": true})
	return nil
}

func (s *Service) emit(ctx context.Context, payload map[string]any) {
	if _, err := s.Events.Emit(ctx, events.TopicCompanyUpdated, "company", payload); err != nil {
		s.Logger.Warn().Err(err).Msg("emit company event")
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
