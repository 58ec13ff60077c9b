package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/service"
	"github.com/bitfantasy/nimo-pharmacy/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func seedDraft(t *testing.T, db *gorm.DB) *entity.PurchaseOrder {
	t.Helper()
	testutil.SeedProduct(t, db, "prod-a", testutil.DefaultPharmacy, 100, "1.00")
	po, err := service.NewOrderService(db, zap.NewNop()).Create(context.Background(), testutil.DefaultPharmacy, "seed", &service.CreateOrderRequest{
		SupplierID: "sup-1",
		Items:      []service.OrderItemInput{{ProductID: "prod-a", Quantity: 10}},
	})
	require.NoError(t, err)
	return po
}

func run(t *testing.T, db *gorm.DB, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(func() (*Env, error) {
		return &Env{DB: db, Logger: zap.NewNop()}, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_OrderFlow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	po := seedDraft(t, db)
	line := po.Lines[0].ID

	out, err := run(t, db, "show", po.ID, "--pharmacy", testutil.DefaultPharmacy)
	require.NoError(t, err)
	assert.Contains(t, out, po.OrderNumber)
	assert.Contains(t, out, entity.POStatusDraft)

	_, err = run(t, db, "confirm", po.ID, line+"=2.50", "--pharmacy", testutil.DefaultPharmacy)
	require.NoError(t, err)

	out, err = run(t, db, "receive", po.ID, line+"=4", "--pharmacy", testutil.DefaultPharmacy)
	require.NoError(t, err)
	assert.Contains(t, out, "received=4")

	out, err = run(t, db, "receive-all", po.ID, "--no-inventory", "--pharmacy", testutil.DefaultPharmacy, "--json")
	require.NoError(t, err)
	var res service.Result[*entity.PurchaseOrder]
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Equal(t, entity.POStatusReceived, res.Data.Status)

	var p entity.Product
	require.NoError(t, db.First(&p, "id = ?", "prod-a").Error)
	assert.Equal(t, 104, p.Quantity)

	out, err = run(t, db, "list", "--pharmacy", testutil.DefaultPharmacy)
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 1")
}

func TestCLI_Failures(t *testing.T) {
	t.Setenv("POCTL_PHARMACY", "")
	db := testutil.SetupTestDB(t)
	po := seedDraft(t, db)

	_, err := run(t, db, "show", po.ID)
	assert.ErrorContains(t, err, "--pharmacy")

	_, err = run(t, db, "show", po.ID, "--pharmacy", "pharmacy-002")
	assert.ErrorContains(t, err, "not found")

	_, err = run(t, db, "receive", po.ID, "bad-arg", "--pharmacy", testutil.DefaultPharmacy)
	assert.Error(t, err)

	out, err := run(t, db, "status", po.ID, "SHIPPED", "--pharmacy", testutil.DefaultPharmacy, "--json")
	assert.Error(t, err)
	var res service.Result[*entity.PurchaseOrder]
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
}

func TestCLI_StatusAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	po := seedDraft(t, db)

	out, err := run(t, db, "status", po.ID, entity.POStatusCancelled, "--pharmacy", testutil.DefaultPharmacy)
	require.NoError(t, err)
	assert.Contains(t, out, entity.POStatusCancelled)

	out, err = run(t, db, "delete", po.ID, "--pharmacy", testutil.DefaultPharmacy)
	require.NoError(t, err)
	assert.Contains(t, out, po.ID)

	out, err = run(t, db, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated")
}

func TestCLI_PharmacyFromEnv(t *testing.T) {
	t.Setenv("POCTL_PHARMACY", testutil.DefaultPharmacy)
	db := testutil.SetupTestDB(t)
	po := seedDraft(t, db)

	out, err := run(t, db, "show", po.ID)
	require.NoError(t, err)
	assert.Contains(t, out, po.OrderNumber)
}

func TestCLI_CreateAndUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SeedProduct(t, db, "prod-a", testutil.DefaultPharmacy, 100, "1.00")
	testutil.SeedProduct(t, db, "prod-b", testutil.DefaultPharmacy, 50, "1.00")

	out, err := run(t, db, "create", "prod-a=10", "prod-b=5@4.00",
		"--supplier", "sup-1", "--date", "2026-10-16", "--pharmacy", testutil.DefaultPharmacy, "--json")
	require.NoError(t, err)
	var res service.Result[*entity.PurchaseOrder]
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.True(t, res.Success, res.Message)
	po := res.Data
	assert.Equal(t, entity.POStatusDraft, po.Status)
	require.Len(t, po.Lines, 2)
	assert.False(t, po.Lines[0].UnitCost.Valid)
	assert.Equal(t, "4.00", po.Lines[1].UnitCost.Decimal.StringFixed(2))

	// header only: lines are kept
	out, err = run(t, db, "update", po.ID, "--notes", "call before delivery", "--pharmacy", testutil.DefaultPharmacy)
	require.NoError(t, err)
	assert.Contains(t, out, "call before delivery")

	var stored entity.PurchaseOrder
	require.NoError(t, db.Preload("Lines").First(&stored, "id = ?", po.ID).Error)
	assert.Equal(t, "sup-1", stored.SupplierID)
	assert.Len(t, stored.Lines, 2)

	_, err = run(t, db, "update", po.ID, "prod-b=7", "--supplier", "sup-2", "--pharmacy", testutil.DefaultPharmacy)
	require.NoError(t, err)
	stored = entity.PurchaseOrder{}
	require.NoError(t, db.Preload("Lines").First(&stored, "id = ?", po.ID).Error)
	assert.Equal(t, "sup-2", stored.SupplierID)
	assert.Equal(t, "call before delivery", stored.Notes)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, "prod-b", stored.Lines[0].ProductID)
	assert.Equal(t, 7, stored.Lines[0].Quantity)

	_, err = run(t, db, "create", "prod-a=1", "--pharmacy", testutil.DefaultPharmacy)
	assert.ErrorContains(t, err, "supplier")
	_, err = run(t, db, "create", "prod-a=1@abc", "--supplier", "sup-1", "--pharmacy", testutil.DefaultPharmacy)
	assert.ErrorContains(t, err, "unit cost")
}

func TestParseItems(t *testing.T) {
	items, err := parseItems([]string{"prod-a=10", "prod-b=5@2.50"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "prod-a", items[0].ProductID)
	assert.Equal(t, 10, items[0].Quantity)
	assert.Nil(t, items[0].UnitCost)
	require.NotNil(t, items[1].UnitCost)
	assert.Equal(t, "2.50", *items[1].UnitCost)

	for _, bad := range []string{"prod-a", "=3", "prod-a=x", "prod-a=@1"} {
		_, err = parseItems([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseQuantities(t *testing.T) {
	q, err := parseQuantities([]string{"a=1", "b=20"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "b": 20}, q)

	_, err = parseQuantities([]string{"a=x"})
	assert.Error(t, err)
	_, err = parseQuantities([]string{"=3"})
	assert.Error(t, err)
}
