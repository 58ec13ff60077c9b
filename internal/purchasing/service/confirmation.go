package service

import (
	"context"
	"sort"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/repository"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ConfirmedItem 供应商对单行的确认结果
type ConfirmedItem struct {
	UnitCost  string `json:"unit_cost"`
	Available bool   `json:"available"`
}

// Confirm 按供应商报价确认订单：可供行写入单价，不可供行（含未出现在 items 中的行）删除。
// 校验失败时不产生任何写入。
func (s *OrderService) Confirm(ctx context.Context, id, pharmacyID, userID string, items map[string]ConfirmedItem) (*entity.PurchaseOrder, error) {
	costs := make(map[string]decimal.Decimal, len(items))
	lineIDs := make([]string, 0, len(items))
	for lineID := range items {
		lineIDs = append(lineIDs, lineID)
	}
	sort.Strings(lineIDs)
	for _, lineID := range lineIDs {
		item := items[lineID]
		if !item.Available {
			continue
		}
		cost, ok := parsePositiveMoney(item.UnitCost)
		if !ok {
			return nil, validationf("line %s: unit cost must be a positive amount with at most two decimals, got %q", lineID, item.UnitCost)
		}
		costs[lineID] = cost
	}
	if len(costs) == 0 {
		return nil, validationf("at least one item must be available")
	}

	var po *entity.PurchaseOrder
	var fromStatus string
	removed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := repository.NewOrderRepository(tx)
		var err error
		po, err = orders.FindByIDForUpdate(ctx, id, pharmacyID)
		if err != nil {
			return orderNotFound(id, err)
		}
		fromStatus = po.Status
		if !entity.StatusIn(po.Status, entity.ConfirmableStatuses) {
			return &TerminalStateError{Status: po.Status, Op: "confirm"}
		}
		for _, lineID := range lineIDs {
			if po.LineByID(lineID) == nil {
				return validationf("line %s does not belong to order %s", lineID, po.OrderNumber)
			}
		}

		total := decimal.Zero
		kept := make([]entity.PurchaseOrderLine, 0, len(po.Lines))
		for _, line := range po.Lines {
			cost, ok := costs[line.ID]
			if !ok {
				if err := orders.DeleteLine(ctx, line.ID); err != nil {
					return err
				}
				removed++
				continue
			}
			if err := orders.SetLineUnitCost(ctx, line.ID, cost); err != nil {
				return err
			}
			line.UnitCost = decimal.NullDecimal{Decimal: cost, Valid: true}
			total = total.Add(cost.Mul(decimal.NewFromInt(int64(line.Quantity))))
			kept = append(kept, line)
		}

		now := s.now()
		po.Lines = kept
		po.Status = entity.POStatusConfirmed
		po.TotalCost = total.Round(2)
		po.ConfirmedAt = &now
		return orders.UpdateHeader(ctx, po)
	})
	if err != nil {
		return nil, s.finish("confirm", id, pharmacyID, err)
	}

	s.cache.Invalidate(ctx, pharmacyID, id)
	s.recordActivity(ctx, po, entity.ActionPOConfirmed, fromStatus, entity.POStatusConfirmed, userID, entity.JSONB{
		"retained_lines": len(po.Lines),
		"removed_lines":  removed,
		"total_cost":     po.TotalCost.StringFixed(2),
	})
	return po, nil
}
