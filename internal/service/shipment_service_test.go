package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/stcadmin/fba-backend/internal/model"
)

type stubShipmentRepo struct {
	destinations map[uint]*model.FBAShipmentDestination
	methods      map[uint]*model.FBAShipmentMethod
	orders       map[uint]*model.FBAShipmentOrder
	packages     map[uint]*model.FBAShipmentPackage
	exports      map[uint]*model.FBAShipmentExport
	nextID       uint
}

func newStubShipmentRepo() *stubShipmentRepo {
	return &stubShipmentRepo{
		destinations: make(map[uint]*model.FBAShipmentDestination),
		methods:      make(map[uint]*model.FBAShipmentMethod),
		orders:       make(map[uint]*model.FBAShipmentOrder),
		packages:     make(map[uint]*model.FBAShipmentPackage),
		exports:      make(map[uint]*model.FBAShipmentExport),
		nextID:       1,
	}
}

func (r *stubShipmentRepo) id() uint {
	id := r.nextID
	r.nextID++
	return id
}

func (r *stubShipmentRepo) CreateDestination(ctx context.Context, dest *model.FBAShipmentDestination) error {
	dest.ID = r.id()
	r.destinations[dest.ID] = dest
	return nil
}

func (r *stubShipmentRepo) UpdateDestination(ctx context.Context, dest *model.FBAShipmentDestination) error {
	r.destinations[dest.ID] = dest
	return nil
}

func (r *stubShipmentRepo) FindDestination(ctx context.Context, id uint) (*model.FBAShipmentDestination, error) {
	dest, ok := r.destinations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return dest, nil
}

func (r *stubShipmentRepo) ListDestinations(ctx context.Context, enabledOnly bool) ([]model.FBAShipmentDestination, error) {
	var out []model.FBAShipmentDestination
	for _, d := range r.destinations {
		if enabledOnly && !d.IsEnabled {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (r *stubShipmentRepo) CreateMethod(ctx context.Context, method *model.FBAShipmentMethod) error {
	method.ID = r.id()
	r.methods[method.ID] = method
	return nil
}

func (r *stubShipmentRepo) UpdateMethod(ctx context.Context, method *model.FBAShipmentMethod) error {
	r.methods[method.ID] = method
	return nil
}

func (r *stubShipmentRepo) ListMethods(ctx context.Context, enabledOnly bool) ([]model.FBAShipmentMethod, error) {
	var out []model.FBAShipmentMethod
	for _, m := range r.methods {
		if enabledOnly && !m.IsEnabled {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (r *stubShipmentRepo) FindMethod(ctx context.Context, id uint) (*model.FBAShipmentMethod, error) {
	method, ok := r.methods[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return method, nil
}

func (r *stubShipmentRepo) CreateShipmentOrder(ctx context.Context, order *model.FBAShipmentOrder) error {
	order.ID = r.id()
	order.CreatedAt = time.Now()
	r.orders[order.ID] = order
	return nil
}

func (r *stubShipmentRepo) SaveShipmentOrder(ctx context.Context, order *model.FBAShipmentOrder) error {
	r.orders[order.ID] = order
	return nil
}

func (r *stubShipmentRepo) DeleteShipmentOrder(ctx context.Context, id uint) error {
	delete(r.orders, id)
	return nil
}

func (r *stubShipmentRepo) FindShipmentOrder(ctx context.Context, id uint) (*model.FBAShipmentOrder, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	if dest, ok := r.destinations[order.DestinationID]; ok {
		copied.Destination = *dest
	}
	if method, ok := r.methods[order.ShipmentMethodID]; ok {
		copied.ShipmentMethod = *method
	}
	copied.Packages = nil
	for _, pkg := range r.packages {
		if pkg.ShipmentOrderID == id {
			copied.Packages = append(copied.Packages, *pkg)
		}
	}
	return &copied, nil
}

func (r *stubShipmentRepo) FindShipmentOrderForUpdate(ctx context.Context, id uint) (*model.FBAShipmentOrder, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (r *stubShipmentRepo) ListOpenShipmentOrders(ctx context.Context) ([]model.FBAShipmentOrder, error) {
	var out []model.FBAShipmentOrder
	for id, order := range r.orders {
		if order.ExportID == nil {
			full, _ := r.FindShipmentOrder(ctx, id)
			out = append(out, *full)
		}
	}
	return out, nil
}

func (r *stubShipmentRepo) ListShippableOrders(ctx context.Context) ([]model.FBAShipmentOrder, error) {
	var out []model.FBAShipmentOrder
	for id := range r.orders {
		full, _ := r.FindShipmentOrder(ctx, id)
		if full.IsShippable() {
			out = append(out, *full)
		}
	}
	return out, nil
}

func (r *stubShipmentRepo) CreatePackage(ctx context.Context, pkg *model.FBAShipmentPackage) error {
	pkg.ID = r.id()
	r.packages[pkg.ID] = pkg
	return nil
}

func (r *stubShipmentRepo) DeletePackage(ctx context.Context, id uint) error {
	delete(r.packages, id)
	return nil
}

func (r *stubShipmentRepo) FindPackage(ctx context.Context, id uint) (*model.FBAShipmentPackage, error) {
	pkg, ok := r.packages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return pkg, nil
}

func (r *stubShipmentRepo) CreateExport(ctx context.Context, export *model.FBAShipmentExport) error {
	export.ID = r.id()
	export.CreatedAt = time.Now()
	r.exports[export.ID] = export
	return nil
}

func (r *stubShipmentRepo) FindExport(ctx context.Context, id uint) (*model.FBAShipmentExport, error) {
	export, ok := r.exports[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *export
	copied.ShipmentOrders = nil
	for orderID, order := range r.orders {
		if order.ExportID != nil && *order.ExportID == id {
			full, _ := r.FindShipmentOrder(ctx, orderID)
			copied.ShipmentOrders = append(copied.ShipmentOrders, *full)
		}
	}
	return &copied, nil
}

func (r *stubShipmentRepo) FindLatestExport(ctx context.Context) (*model.FBAShipmentExport, error) {
	var latest *model.FBAShipmentExport
	for _, export := range r.exports {
		if latest == nil || export.CreatedAt.After(latest.CreatedAt) {
			latest = export
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (r *stubShipmentRepo) ListExports(ctx context.Context, limit int) ([]model.FBAShipmentExport, error) {
	var out []model.FBAShipmentExport
	for id := range r.exports {
		if len(out) >= limit {
			break
		}
		full, _ := r.FindExport(ctx, id)
		out = append(out, *full)
	}
	return out, nil
}

type shipmentTestEnv struct {
	svc  ShipmentService
	repo *stubShipmentRepo
}

func newShipmentTestEnv(t *testing.T) *shipmentTestEnv {
	t.Helper()
	repo := newStubShipmentRepo()
	svc := NewShipmentService(repo, &stubAuditRepo{}, passthroughTx{}, zap.NewNop())
	env := &shipmentTestEnv{svc: svc, repo: repo}

	ctx := context.Background()
	_, err := svc.CreateDestination(ctx, DestinationRequest{
		Name:          "AMZ LTN4",
		RecipientName: "Amazon Luton",
		AddressLine1:  "1 Boscombe Road",
		City:          "Dunstable",
		Country:       "United Kingdom",
		CountryISO:    "gb",
		Postcode:      "LU5 4FE",
	})
	require.NoError(t, err)
	_, err = svc.CreateMethod(ctx, MethodRequest{Name: "ITD Express", Identifier: "ITDEXP"})
	require.NoError(t, err)
	return env
}

func (env *shipmentTestEnv) newShipment(t *testing.T, withPackage bool) uint {
	t.Helper()
	ctx := context.Background()
	resp, err := env.svc.CreateShipment(ctx, "", CreateShipmentRequest{DestinationID: 1, ShipmentMethodID: 2})
	require.NoError(t, err)
	if withPackage {
		_, err = env.svc.AddPackage(ctx, "", resp.ID, AddPackageRequest{
			LengthCM: 40, WidthCM: 30, HeightCM: 20,
			Items: []ShipmentItemRequest{{
				SKU: "ABC-001", Description: "Garden gnome", Quantity: 4, WeightKG: 2.5, Value: 1299,
			}},
		})
		require.NoError(t, err)
	}
	return resp.ID
}

func TestCreateDestinationUppercasesISO(t *testing.T) {
	env := newShipmentTestEnv(t)
	assert.Equal(t, "GB", env.repo.destinations[1].CountryISO)
}

func TestCreateShipmentRejectsDisabled(t *testing.T) {
	env := newShipmentTestEnv(t)
	ctx := context.Background()

	disabled := false
	_, err := env.svc.UpdateDestination(ctx, 1, DestinationRequest{
		Name: "AMZ LTN4", RecipientName: "Amazon Luton", AddressLine1: "1 Boscombe Road",
		City: "Dunstable", Country: "United Kingdom", CountryISO: "GB", Postcode: "LU5 4FE",
		IsEnabled: &disabled,
	})
	require.NoError(t, err)

	_, err = env.svc.CreateShipment(ctx, "", CreateShipmentRequest{DestinationID: 1, ShipmentMethodID: 2})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.CreateShipment(ctx, "", CreateShipmentRequest{DestinationID: 99, ShipmentMethodID: 2})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddPackageDefaultsCountryOfOrigin(t *testing.T) {
	env := newShipmentTestEnv(t)
	id := env.newShipment(t, true)

	resp, err := env.svc.GetShipment(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.PackageCount)
	assert.Equal(t, 4, resp.ItemCount)
	assert.Equal(t, 10.0, resp.Weight)
	assert.Equal(t, "£51.96", resp.Value)

	for _, pkg := range env.repo.packages {
		assert.Equal(t, "United Kingdom", pkg.Items[0].CountryOfOrigin)
	}
}

func TestToggleHoldFlipsState(t *testing.T) {
	env := newShipmentTestEnv(t)
	id := env.newShipment(t, true)
	ctx := context.Background()

	held, err := env.svc.ToggleHold(ctx, "", id)
	require.NoError(t, err)
	assert.True(t, held)

	resp, err := env.svc.GetShipment(ctx, id)
	require.NoError(t, err)
	assert.False(t, resp.IsShippable)

	held, err = env.svc.ToggleHold(ctx, "", id)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestCloseShipmentOrder(t *testing.T) {
	env := newShipmentTestEnv(t)
	id := env.newShipment(t, true)
	ctx := context.Background()

	exportID, err := env.svc.CloseShipmentOrder(ctx, "", id)
	require.NoError(t, err)
	require.NotZero(t, exportID)

	export, err := env.svc.GetExport(ctx, exportID)
	require.NoError(t, err)
	require.Len(t, export.ShipmentOrders, 1)

	// closing again returns the same export without creating another
	again, err := env.svc.CloseShipmentOrder(ctx, "", id)
	require.NoError(t, err)
	assert.Equal(t, exportID, again)
	assert.Len(t, env.repo.exports, 1)
}

func TestCloseShipmentOrderJoinsOpenExport(t *testing.T) {
	env := newShipmentTestEnv(t)
	ctx := context.Background()

	first := env.newShipment(t, true)
	second := env.newShipment(t, true)

	firstExport, err := env.svc.CloseShipmentOrder(ctx, "", first)
	require.NoError(t, err)
	secondExport, err := env.svc.CloseShipmentOrder(ctx, "", second)
	require.NoError(t, err)

	assert.Equal(t, firstExport, secondExport, "closes in the same batch share an export")
	require.Len(t, env.repo.exports, 1)

	export, err := env.svc.GetExport(ctx, firstExport)
	require.NoError(t, err)
	assert.Len(t, export.ShipmentOrders, 2)
}

func TestCloseShipmentOrderStartsNewBatchAfterWindow(t *testing.T) {
	env := newShipmentTestEnv(t)
	ctx := context.Background()

	first := env.newShipment(t, true)
	second := env.newShipment(t, true)

	firstExport, err := env.svc.CloseShipmentOrder(ctx, "", first)
	require.NoError(t, err)
	env.repo.exports[firstExport].CreatedAt = time.Now().Add(-2 * time.Hour)

	secondExport, err := env.svc.CloseShipmentOrder(ctx, "", second)
	require.NoError(t, err)
	assert.NotEqual(t, firstExport, secondExport)
	assert.Len(t, env.repo.exports, 2)
}

func TestCloseShipmentOrderRejectsUnshippable(t *testing.T) {
	env := newShipmentTestEnv(t)
	ctx := context.Background()

	empty := env.newShipment(t, false)
	_, err := env.svc.CloseShipmentOrder(ctx, "", empty)
	assert.ErrorIs(t, err, ErrDomainRule)

	held := env.newShipment(t, true)
	_, err = env.svc.ToggleHold(ctx, "", held)
	require.NoError(t, err)
	_, err = env.svc.CloseShipmentOrder(ctx, "", held)
	assert.ErrorIs(t, err, ErrDomainRule)
}

func TestExportedShipmentIsImmutable(t *testing.T) {
	env := newShipmentTestEnv(t)
	id := env.newShipment(t, true)
	ctx := context.Background()

	_, err := env.svc.CloseShipmentOrder(ctx, "", id)
	require.NoError(t, err)

	_, err = env.svc.AddPackage(ctx, "", id, AddPackageRequest{
		LengthCM: 10, WidthCM: 10, HeightCM: 10,
		Items: []ShipmentItemRequest{{SKU: "X", Description: "x", Quantity: 1, WeightKG: 1, Value: 1}},
	})
	assert.ErrorIs(t, err, ErrDomainRule)

	err = env.svc.DeleteShipment(ctx, "", id)
	assert.ErrorIs(t, err, ErrDomainRule)

	_, err = env.svc.ToggleHold(ctx, "", id)
	assert.ErrorIs(t, err, ErrDomainRule)
}

func TestListExportsSummarises(t *testing.T) {
	env := newShipmentTestEnv(t)
	ctx := context.Background()

	first := env.newShipment(t, true)
	second := env.newShipment(t, true)
	_, err := env.svc.CloseShipmentOrder(ctx, "", first)
	require.NoError(t, err)
	_, err = env.svc.CloseShipmentOrder(ctx, "", second)
	require.NoError(t, err)

	exports, err := env.svc.ListExports(ctx, 0)
	require.NoError(t, err)
	require.Len(t, exports, 1)

	summary := exports[0]
	assert.Equal(t, 2, summary.ShipmentCount)
	assert.Equal(t, 2, summary.PackageCount)
	assert.Equal(t, "AMZ LTN4", summary.Destinations, "duplicate destinations collapse")
	assert.Equal(t, "Garden gnome", summary.Description, "duplicate descriptions collapse")
}
