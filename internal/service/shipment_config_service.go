package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/stcadmin/fba-backend/internal/model"
	"github.com/stcadmin/fba-backend/internal/repository"

	"go.uber.org/zap"
)

// ShipmentConfigService caches the shipping client token. Verification is
// hot path (every shipping API call), so the token is kept in memory and
// reloaded only when rotated.
type ShipmentConfigService interface {
	VerifyToken(ctx context.Context, token string) (bool, error)
	RotateToken(ctx context.Context, userID string) (string, error)
	Reload(ctx context.Context) error
}

type shipmentConfigService struct {
	repo      repository.ShipmentConfigRepository
	auditRepo repository.AuditRepository
	logger    *zap.Logger

	mu     sync.RWMutex
	token  string
	loaded bool
}

func NewShipmentConfigService(repo repository.ShipmentConfigRepository, auditRepo repository.AuditRepository, logger *zap.Logger) ShipmentConfigService {
	return &shipmentConfigService{repo: repo, auditRepo: auditRepo, logger: logger}
}

// VerifyToken checks a presented token against the stored one in constant
// time. When no token has ever been configured, every request is rejected.
func (s *shipmentConfigService) VerifyToken(ctx context.Context, token string) (bool, error) {
	current, err := s.currentToken(ctx)
	if err != nil {
		return false, err
	}
	if current == "" || token == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(current), []byte(token)) == 1, nil
}

// RotateToken generates a fresh random token, persists it and returns it.
// The old token stops working immediately.
func (s *shipmentConfigService) RotateToken(ctx context.Context, userID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	if err := s.repo.SetToken(ctx, token); err != nil {
		return "", fmt.Errorf("failed to store shipping token: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.loaded = true
	s.mu.Unlock()

	auditWrite(ctx, s.auditRepo, s.logger, userID, model.ActionUpdateShipmentAuth, 1, "shipment_config", map[string]interface{}{"rotated": true})
	s.logger.Info("shipping client token rotated")
	return token, nil
}

// Reload discards the cached token so the next verification re-reads the
// database. Used when the token is changed by another process.
func (s *shipmentConfigService) Reload(ctx context.Context) error {
	config, err := s.repo.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load shipment config: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if config == nil {
		s.token = ""
	} else {
		s.token = config.Token
	}
	s.loaded = true
	return nil
}

func (s *shipmentConfigService) currentToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.loaded {
		token := s.token
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	if err := s.Reload(ctx); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}
