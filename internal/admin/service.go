// Package admin is the product and user console. Every operation re-verifies admin rights
// with the gateway before doing anything else.
package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront/internal/guard"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const (
	selfDemoteMessage = "You cannot demote yourself"
	selfDeleteMessage = "You cannot delete your own account"
)

type gatewayClient interface {
	ListProducts(ctx context.Context) ([]gateway.Product, error)
	CreateProduct(ctx context.Context, req gateway.ProductRequest) error
	UpdateProduct(ctx context.Context, productID int64, req gateway.ProductRequest) error
	ListUsers(ctx context.Context) ([]gateway.Account, error)
	GetUser(ctx context.Context, userID int64) (*gateway.Account, error)
	GetUserByEmail(ctx context.Context, email string) (*gateway.Account, error)
	PromoteUser(ctx context.Context, email string) (string, error)
	DemoteUser(ctx context.Context, email string) (string, error)
	DeleteUser(ctx context.Context, userID int64) (string, error)
}

type adminGuard interface {
	RequireAdmin(ctx context.Context) guard.Decision
}

type sessionView interface {
	User() *gateway.User
}

// ServiceParams bundles the dependencies required to build the admin service.
type ServiceParams struct {
	Gateway gatewayClient
	Guard   adminGuard
	Session sessionView
	Logger  *logger.Logger
}

type Service struct {
	gw      gatewayClient
	guard   adminGuard
	session sessionView
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client is required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("guard is required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{gw: params.Gateway, guard: params.Guard, session: params.Session, logg: logg}, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]gateway.Product, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	products, err := s.gw.ListProducts(ctx)
	if err != nil {
		return nil, gateway.Explain(err, "Failed to load products")
	}
	return products, nil
}

func (s *Service) CreateProduct(ctx context.Context, req gateway.ProductRequest) error {
	if err := s.authorize(ctx); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.gw.CreateProduct(ctx, req); err != nil {
		return gateway.Explain(err, "Failed to save product")
	}
	s.audit(ctx, "admin.product_created", map[string]any{"product_name": req.Name})
	return nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID int64, req gateway.ProductRequest) error {
	if err := s.authorize(ctx); err != nil {
		return err
	}
	if productID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.gw.UpdateProduct(ctx, productID, req); err != nil {
		return gateway.Explain(err, "Failed to save product")
	}
	s.audit(ctx, "admin.product_updated", map[string]any{"product_id": productID})
	return nil
}

func (s *Service) ListUsers(ctx context.Context) ([]gateway.Account, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	users, err := s.gw.ListUsers(ctx)
	if err != nil {
		return nil, gateway.Explain(err, "Failed to load users")
	}
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, userID int64) (*gateway.Account, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	user, err := s.gw.GetUser(ctx, userID)
	if err != nil {
		return nil, gateway.Explain(err, "Failed to load user")
	}
	return user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*gateway.Account, error) {
	if err := s.authorize(ctx); err != nil {
		return nil, err
	}
	user, err := s.gw.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, gateway.Explain(err, "Failed to load user")
	}
	return user, nil
}

// Promote grants the admin role and returns the gateway's confirmation.
func (s *Service) Promote(ctx context.Context, email string) (string, error) {
	if err := s.authorize(ctx); err != nil {
		return "", err
	}
	msg, err := s.gw.PromoteUser(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", gateway.Explain(err, "Failed to promote user")
	}
	s.audit(ctx, "admin.user_promoted", map[string]any{"target_email": email})
	return msg, nil
}

// Demote revokes the admin role. Demoting yourself is refused locally.
func (s *Service) Demote(ctx context.Context, email string) (string, error) {
	if err := s.authorize(ctx); err != nil {
		return "", err
	}
	email = strings.TrimSpace(email)
	if self := s.session.User(); self != nil && strings.EqualFold(self.Email, email) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, selfDemoteMessage)
	}
	msg, err := s.gw.DemoteUser(ctx, email)
	if err != nil {
		return "", gateway.Explain(err, "Failed to demote user")
	}
	s.audit(ctx, "admin.user_demoted", map[string]any{"target_email": email})
	return msg, nil
}

// Delete removes an account. Deleting yourself is refused locally.
func (s *Service) Delete(ctx context.Context, userID int64) (string, error) {
	if err := s.authorize(ctx); err != nil {
		return "", err
	}
	if self := s.session.User(); self != nil && self.ID == userID {
		return "", pkgerrors.New(pkgerrors.CodeValidation, selfDeleteMessage)
	}
	msg, err := s.gw.DeleteUser(ctx, userID)
	if err != nil {
		return "", gateway.Explain(err, "Failed to delete user")
	}
	s.audit(ctx, "admin.user_deleted", map[string]any{"target_user_id": userID})
	return msg, nil
}

func (s *Service) authorize(ctx context.Context) error {
	decision := s.guard.RequireAdmin(ctx)
	if decision.State == guard.Granted {
		return nil
	}
	s.logg.Warn(s.logg.WithField(ctx, "decision", decision.State.String()), "admin.access_denied")
	return decision.Err()
}

func (s *Service) audit(ctx context.Context, event string, fields map[string]any) {
	if self := s.session.User(); self != nil {
		ctx = s.logg.WithUserID(ctx, self.ID)
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), event)
}
