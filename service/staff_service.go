package service

import (
	"context"
	"errors"
	"strings"

	"scanndine/apperr"
	"scanndine/auth"
	"scanndine/model"
	"scanndine/repository"

	"github.com/sirupsen/logrus"
)

// StaffService runs the staff approval workflow, profile self-service and
// staff-to-admin queries.
type StaffService struct {
	users   *repository.UserRepository
	queries *repository.QueryRepository
	auth    *AuthService
	hasher  *auth.PasswordHasher
	metrics Recorder
	log     logrus.FieldLogger
}

func NewStaffService(users *repository.UserRepository, queries *repository.QueryRepository, authSvc *AuthService, hasher *auth.PasswordHasher, rec Recorder, log logrus.FieldLogger) *StaffService {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &StaffService{users: users, queries: queries, auth: authSvc, hasher: hasher, metrics: rec, log: log}
}

func staffNotFound() *apperr.Error {
	return apperr.NotFound(apperr.CodeStaffNotFound, "staff member not found")
}

func (s *StaffService) findStaff(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, staffNotFound())
	}
	if user.Role != model.RoleStaff {
		return nil, staffNotFound()
	}
	return user, nil
}

func (s *StaffService) PendingStaff(ctx context.Context) ([]model.User, error) {
	return s.users.ListStaff(ctx, false)
}

func (s *StaffService) ApprovedStaff(ctx context.Context) ([]model.User, error) {
	return s.users.ListStaff(ctx, true)
}

// Approve marks a staff account approved. Approving twice is a no-op.
func (s *StaffService) Approve(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.findStaff(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsApproved {
		if err := s.users.SetApproved(ctx, id); err != nil {
			return nil, err
		}
		user.IsApproved = true
		s.metrics.StaffAction("approve")
		s.log.WithField("staff_id", id).Info("staff approved")
	}
	return user, nil
}

// Reject deletes a staff account that has not been approved yet.
func (s *StaffService) Reject(ctx context.Context, id uint) error {
	user, err := s.findStaff(ctx, id)
	if err != nil {
		return err
	}
	if user.IsApproved {
		return apperr.Conflict(apperr.CodeStaffAlreadyApproved, "staff member is already approved, remove them instead")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return notFound(err, staffNotFound())
	}
	s.metrics.StaffAction("reject")
	s.log.WithField("staff_id", id).Info("staff rejected")
	return nil
}

// Remove deletes a staff account and its queries. Admins may remove anyone
// on staff; a staff member may only remove themselves.
func (s *StaffService) Remove(ctx context.Context, actor *auth.Identity, id uint) error {
	if actor == nil {
		return apperr.Unauthenticated("authentication required")
	}
	if !actor.HasRole(model.RoleAdmin) && actor.UserID != id {
		return apperr.Forbidden("staff may only remove their own account")
	}
	if _, err := s.findStaff(ctx, id); err != nil {
		return err
	}
	if err := s.users.DeleteStaff(ctx, id); err != nil {
		return notFound(err, staffNotFound())
	}
	s.metrics.StaffAction("remove")
	s.log.WithFields(logrus.Fields{"staff_id": id, "by": actor.UserID}).Info("staff removed")
	return nil
}

// AddStaff creates a staff account that is approved from the start.
func (s *StaffService) AddStaff(ctx context.Context, name, email, password string) (*model.User, error) {
	user, err := s.auth.newUser(ctx, RegisterInput{Name: name, Email: email, Password: password, Role: model.RoleStaff})
	if err != nil {
		return nil, err
	}
	if err := s.users.CreateApproved(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateEmail()
		}
		return nil, err
	}
	s.metrics.StaffAction("add")
	s.log.WithField("staff_id", user.ID).Info("staff added by admin")
	return user, nil
}

func (s *StaffService) Profile(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperr.NotFound(apperr.CodeUserNotFound, "user not found"))
	}
	return user, nil
}

// ProfileUpdate carries the fields a user may change on their own account.
// Empty fields are left alone.
type ProfileUpdate struct {
	Name     string
	Email    string
	Password string
}

func (s *StaffService) UpdateProfile(ctx context.Context, id uint, in ProfileUpdate) (*model.User, error) {
	updates := map[string]any{}
	if name := strings.TrimSpace(in.Name); name != "" {
		updates["name"] = name
	}
	if in.Email != "" {
		email := normalizeEmail(in.Email)
		if !validEmail(email) {
			return nil, apperr.Validation("valid email is required")
		}
		taken, err := s.users.EmailTaken(ctx, email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, duplicateEmail()
		}
		updates["email"] = email
	}
	if in.Password != "" {
		if err := validatePassword(in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, apperr.Upstream("hash password", err)
		}
		updates["password_hash"] = hash
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("nothing to update")
	}

	if err := s.users.Update(ctx, id, updates); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, duplicateEmail()
		}
		return nil, notFound(err, apperr.NotFound(apperr.CodeUserNotFound, "user not found"))
	}
	return s.Profile(ctx, id)
}

func (s *StaffService) SendQuery(ctx context.Context, staffID uint, message string) (*model.Query, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperr.Validation("message is required")
	}
	q := &model.Query{StaffID: staffID, Message: message, Status: model.QueryPending}
	if err := s.queries.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *StaffService) Queries(ctx context.Context) ([]model.Query, error) {
	return s.queries.List(ctx)
}

func queryNotFound() *apperr.Error {
	return apperr.NotFound(apperr.CodeQueryNotFound, "query not found")
}

func (s *StaffService) ResolveQuery(ctx context.Context, id uint) error {
	return notFound(s.queries.SetStatus(ctx, id, model.QueryResolved), queryNotFound())
}

func (s *StaffService) DeleteQuery(ctx context.Context, id uint) error {
	return notFound(s.queries.Delete(ctx, id), queryNotFound())
}
