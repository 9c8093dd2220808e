package audit

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events. Append-only:
// there are no update or delete methods.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records auth activity. Callers treat logging as best-effort:
// a failed append is returned for observability but must never abort the
// auth flow that produced it.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		// Audit not wired; silently a no-op so handlers need no nil checks.
		return nil
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogLogin records a successful credential login.
func (s *Service) LogLogin(ctx context.Context, tenantID, userID, role, ip string) error {
	return s.Append(ctx, Event{
		TenantID:    tenantID,
		Type:        EventTypeLogin,
		ActorUserID: userID,
		ActorRole:   role,
		IPAddress:   ip,
		Message:     "login",
	})
}

// LogFixtureLogin records a dev-only fixture login. These never happen in
// production; an occurrence there would mean broken wiring.
func (s *Service) LogFixtureLogin(ctx context.Context, tenantID, userID, role, ip string) error {
	return s.Append(ctx, Event{
		TenantID:    tenantID,
		Type:        EventTypeFixtureLogin,
		ActorUserID: userID,
		ActorRole:   role,
		IPAddress:   ip,
		Message:     "fixture login (backend unreachable)",
	})
}

func (s *Service) LogLogout(ctx context.Context, tenantID, userID, ip string) error {
	return s.Append(ctx, Event{
		TenantID:    tenantID,
		Type:        EventTypeLogout,
		ActorUserID: userID,
		IPAddress:   ip,
		Message:     "logout",
	})
}

// LogLogoutAll records the tokenVersion bump that invalidates every
// outstanding token for the subject.
func (s *Service) LogLogoutAll(ctx context.Context, tenantID, userID, ip string, newVersion int) error {
	return s.Append(ctx, Event{
		TenantID:    tenantID,
		Type:        EventTypeLogoutAll,
		ActorUserID: userID,
		IPAddress:   ip,
		Message:     "logout-all: tokenVersion bumped",
		Metadata:    `{"token_version":` + strconv.Itoa(newVersion) + `}`,
	})
}

func (s *Service) LogRefreshFailed(ctx context.Context, ip string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeRefreshFailed,
		IPAddress: ip,
		Message:   "refresh rejected; cookies cleared",
	})
}
