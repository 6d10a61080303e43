package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stcadmin/fba-backend/internal/model"
)

type stubConfigRepo struct {
	config *model.ShipmentConfig
	gets   int
}

func (r *stubConfigRepo) Get(ctx context.Context) (*model.ShipmentConfig, error) {
	r.gets++
	return r.config, nil
}

func (r *stubConfigRepo) SetToken(ctx context.Context, token string) error {
	r.config = &model.ShipmentConfig{ID: 1, Token: token}
	return nil
}

type stubAuditRepo struct {
	entries []model.AuditLog
}

func (r *stubAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *stubAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}

func TestVerifyToken(t *testing.T) {
	repo := &stubConfigRepo{config: &model.ShipmentConfig{ID: 1, Token: "secret-token"}}
	svc := NewShipmentConfigService(repo, &stubAuditRepo{}, zap.NewNop())
	ctx := context.Background()

	ok, err := svc.VerifyToken(ctx, "secret-token")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.VerifyToken(ctx, "wrong-token")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.VerifyToken(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyTokenCachesLookup(t *testing.T) {
	repo := &stubConfigRepo{config: &model.ShipmentConfig{ID: 1, Token: "secret-token"}}
	svc := NewShipmentConfigService(repo, &stubAuditRepo{}, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.VerifyToken(ctx, "secret-token")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.gets)
}

func TestVerifyTokenUnconfigured(t *testing.T) {
	svc := NewShipmentConfigService(&stubConfigRepo{}, &stubAuditRepo{}, zap.NewNop())

	ok, err := svc.VerifyToken(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, ok, "no configured token rejects every request")
}

func TestRotateToken(t *testing.T) {
	repo := &stubConfigRepo{config: &model.ShipmentConfig{ID: 1, Token: "old-token"}}
	audit := &stubAuditRepo{}
	svc := NewShipmentConfigService(repo, audit, zap.NewNop())
	ctx := context.Background()

	token, err := svc.RotateToken(ctx, "")
	require.NoError(t, err)
	assert.Len(t, token, 64, "32 random bytes hex encoded")
	assert.Equal(t, token, repo.config.Token)

	ok, err := svc.VerifyToken(ctx, "old-token")
	require.NoError(t, err)
	assert.False(t, ok, "old token stops working")

	ok, err = svc.VerifyToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, model.ActionUpdateShipmentAuth, audit.entries[0].Action)
}

func TestReloadPicksUpExternalChange(t *testing.T) {
	repo := &stubConfigRepo{config: &model.ShipmentConfig{ID: 1, Token: "first"}}
	svc := NewShipmentConfigService(repo, &stubAuditRepo{}, zap.NewNop())
	ctx := context.Background()

	ok, _ := svc.VerifyToken(ctx, "first")
	assert.True(t, ok)

	repo.config = &model.ShipmentConfig{ID: 1, Token: "second"}
	ok, _ = svc.VerifyToken(ctx, "second")
	assert.False(t, ok, "cache still holds the old token")

	require.NoError(t, svc.Reload(ctx))
	ok, _ = svc.VerifyToken(ctx, "second")
	assert.True(t, ok)
}
