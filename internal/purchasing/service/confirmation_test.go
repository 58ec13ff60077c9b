package service

import (
	"testing"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm_PrunesUnavailableLines(t *testing.T) {
	f := newFixture(t)
	po := f.draft()
	line1, line2 := po.Lines[0].ID, po.Lines[1].ID

	po, err := f.svc.Confirm(f.ctx, po.ID, pharmacyID, userID, map[string]ConfirmedItem{
		line1: {UnitCost: "2.50", Available: true},
		line2: {Available: false},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusConfirmed, po.Status)
	assert.Equal(t, "25.00", po.TotalCost.StringFixed(2))
	require.NotNil(t, po.ConfirmedAt)

	stored := f.reload(po.ID)
	assert.Equal(t, entity.POStatusConfirmed, stored.Status)
	assert.Equal(t, "25.00", stored.TotalCost.StringFixed(2))
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, line1, stored.Lines[0].ID)
	assert.True(t, stored.Lines[0].UnitCost.Valid)
	assert.Equal(t, "2.50", stored.Lines[0].UnitCost.Decimal.StringFixed(2))

	logs := f.activity(po.ID)
	require.Len(t, logs, 2)
	assert.Equal(t, entity.ActionPOConfirmed, logs[1].Action)
	assert.EqualValues(t, 1, logs[1].Details["removed_lines"])
}

func TestConfirm_TotalIsSumOfRetainedLines(t *testing.T) {
	f := newFixture(t)
	po := f.confirmed()

	// 10 × 2.50 + 5 × 4.00
	assert.Equal(t, "45.00", po.TotalCost.StringFixed(2))
	for _, l := range f.reload(po.ID).Lines {
		assert.True(t, l.UnitCost.Valid)
		assert.True(t, l.UnitCost.Decimal.IsPositive())
	}
}

func TestConfirm_MissingLinesTreatedAsUnavailable(t *testing.T) {
	f := newFixture(t)
	po := f.draft()

	po, err := f.svc.Confirm(f.ctx, po.ID, pharmacyID, userID, map[string]ConfirmedItem{
		po.Lines[1].ID: {UnitCost: "1.25", Available: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "6.25", po.TotalCost.StringFixed(2))

	stored := f.reload(po.ID)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, "prod-b", stored.Lines[0].ProductID)
}

func TestConfirm_FromSubmitted(t *testing.T) {
	f := newFixture(t)
	po := f.draft()
	_, err := f.svc.UpdateStatus(f.ctx, po.ID, pharmacyID, userID, entity.POStatusSubmitted)
	require.NoError(t, err)

	po, err = f.svc.Confirm(f.ctx, po.ID, pharmacyID, userID, map[string]ConfirmedItem{
		po.Lines[0].ID: {UnitCost: "1", Available: true},
		po.Lines[1].ID: {UnitCost: "1", Available: true},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.POStatusConfirmed, po.Status)
	assert.Equal(t, "15.00", po.TotalCost.StringFixed(2))
}

func TestConfirm_ValidationLeavesOrderUntouched(t *testing.T) {
	cases := []struct {
		name  string
		items func(l1, l2 string) map[string]ConfirmedItem
	}{
		{"no available lines", func(l1, l2 string) map[string]ConfirmedItem {
			return map[string]ConfirmedItem{l1: {Available: false}, l2: {Available: false}}
		}},
		{"empty map", func(l1, l2 string) map[string]ConfirmedItem {
			return map[string]ConfirmedItem{}
		}},
		{"zero cost", func(l1, l2 string) map[string]ConfirmedItem {
			return map[string]ConfirmedItem{l1: {UnitCost: "0.00", Available: true}}
		}},
		{"one bad cost among good", func(l1, l2 string) map[string]ConfirmedItem {
			return map[string]ConfirmedItem{
				l1: {UnitCost: "2.50", Available: true},
				l2: {UnitCost: "4.001", Available: true},
			}
		}},
		{"missing cost", func(l1, l2 string) map[string]ConfirmedItem {
			return map[string]ConfirmedItem{l1: {Available: true}}
		}},
		{"foreign line", func(l1, l2 string) map[string]ConfirmedItem {
			return map[string]ConfirmedItem{
				l1:             {UnitCost: "2.50", Available: true},
				"not-our-line": {UnitCost: "1.00", Available: true},
			}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			po := f.draft()

			_, err := f.svc.Confirm(f.ctx, po.ID, pharmacyID, userID, tc.items(po.Lines[0].ID, po.Lines[1].ID))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)

			stored := f.reload(po.ID)
			assert.Equal(t, entity.POStatusDraft, stored.Status)
			assert.Equal(t, "0.00", stored.TotalCost.StringFixed(2))
			assert.Nil(t, stored.ConfirmedAt)
			require.Len(t, stored.Lines, 2)
			for _, l := range stored.Lines {
				assert.False(t, l.UnitCost.Valid)
			}
		})
	}
}

func TestConfirm_RejectedOutsideConfirmableStatuses(t *testing.T) {
	f := newFixture(t)
	po := f.confirmed()

	_, err := f.svc.Confirm(f.ctx, po.ID, pharmacyID, userID, map[string]ConfirmedItem{
		po.Lines[0].ID: {UnitCost: "9.99", Available: true},
	})
	var ts *TerminalStateError
	require.ErrorAs(t, err, &ts)
	assert.Equal(t, entity.POStatusConfirmed, ts.Status)

	stored := f.reload(po.ID)
	assert.Equal(t, "45.00", stored.TotalCost.StringFixed(2))
	assert.Len(t, stored.Lines, 2)

	cancelled := f.draft()
	_, err = f.svc.UpdateStatus(f.ctx, cancelled.ID, pharmacyID, userID, entity.POStatusCancelled)
	require.NoError(t, err)
	_, err = f.svc.Confirm(f.ctx, cancelled.ID, pharmacyID, userID, map[string]ConfirmedItem{
		cancelled.Lines[0].ID: {UnitCost: "1.00", Available: true},
	})
	assert.ErrorAs(t, err, &ts)
}

func TestConfirm_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Confirm(f.ctx, "missing", pharmacyID, userID, map[string]ConfirmedItem{
		"l1": {UnitCost: "1.00", Available: true},
	})
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}
