package service

import (
	"context"
	"errors"
	"sort"

	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/entity"
	"github.com/bitfantasy/nimo-pharmacy/internal/purchasing/repository"
	"gorm.io/gorm"
)

// Receive 登记收货数量（覆盖写入每行累计已收数量），按需同步库存与成本价，并重新推导订单状态。
// quantities 中数量 <= 0 的条目忽略，超过订购数量的条目整批拒绝；整批在一个事务内完成。
// received_at 仅在订单处于 RECEIVED 时有值。
func (s *OrderService) Receive(ctx context.Context, id, pharmacyID, userID string, quantities map[string]int, updateInventory bool) (*entity.PurchaseOrder, error) {
	effective := make(map[string]int, len(quantities))
	for lineID, qty := range quantities {
		if qty > 0 {
			effective[lineID] = qty
		}
	}
	if len(effective) == 0 {
		return nil, validationf("no received quantities given")
	}

	var po *entity.PurchaseOrder
	var fromStatus string
	stockAdded := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := repository.NewOrderRepository(tx)
		catalog := s.catalog(tx)
		var err error
		po, err = orders.FindByIDForUpdate(ctx, id, pharmacyID)
		if err != nil {
			return orderNotFound(id, err)
		}
		fromStatus = po.Status
		if !entity.StatusIn(po.Status, entity.ReceivableStatuses) {
			return &TerminalStateError{Status: po.Status, Op: "receive"}
		}

		lineIDs := make([]string, 0, len(quantities))
		for lineID := range quantities {
			lineIDs = append(lineIDs, lineID)
		}
		sort.Strings(lineIDs)
		for _, lineID := range lineIDs {
			line := po.LineByID(lineID)
			if line == nil {
				return validationf("line %s does not belong to order %s", lineID, po.OrderNumber)
			}
			// 累计已收数量不得超过订购数量
			if qty := effective[lineID]; qty > line.Quantity {
				return validationf("line %s: received quantity %d exceeds ordered quantity %d", lineID, qty, line.Quantity)
			}
		}

		pricedAt := s.now()
		if po.ConfirmedAt != nil {
			pricedAt = *po.ConfirmedAt
		}

		for i := range po.Lines {
			line := &po.Lines[i]
			qty, ok := effective[line.ID]
			if !ok {
				continue
			}
			previous := line.ReceivedQuantity
			line.ReceivedQuantity = qty
			if err := orders.SetReceivedQuantity(ctx, line.ID, qty); err != nil {
				return err
			}

			delta := qty - previous
			if !updateInventory || delta <= 0 {
				continue
			}
			if !line.UnitCost.Valid {
				return validationf("line %s has no confirmed unit cost", line.ID)
			}
			err := catalog.IncrementStock(ctx, line.ProductID, pharmacyID, delta, line.UnitCost.Decimal, pricedAt)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return &NotFoundError{Resource: "product", ID: line.ProductID}
				}
				return err
			}
			stockAdded += delta
		}

		po.Status = entity.ProjectStatus(po.Lines)
		switch {
		case po.Status != entity.POStatusReceived:
			po.ReceivedAt = nil
		case po.ReceivedAt == nil:
			now := s.now()
			po.ReceivedAt = &now
		}
		return orders.UpdateHeader(ctx, po)
	})
	if err != nil {
		return nil, s.finish("receive", id, pharmacyID, err)
	}

	action := entity.ActionPOPartiallyReceived
	if po.Status == entity.POStatusReceived {
		action = entity.ActionPOReceived
	}
	s.cache.Invalidate(ctx, pharmacyID, id)
	s.recordActivity(ctx, po, action, fromStatus, po.Status, userID, entity.JSONB{
		"lines":            len(effective),
		"update_inventory": updateInventory,
		"stock_added":      stockAdded,
	})
	return po, nil
}

// ReceiveAll 将每行已收数量设为订购数量
func (s *OrderService) ReceiveAll(ctx context.Context, id, pharmacyID, userID string, updateInventory bool) (*entity.PurchaseOrder, error) {
	po, err := repository.NewOrderRepository(s.db).FindByID(ctx, id, pharmacyID)
	if err != nil {
		return nil, s.finish("receive", id, pharmacyID, orderNotFound(id, err))
	}
	if !entity.StatusIn(po.Status, entity.ReceivableStatuses) {
		return nil, &TerminalStateError{Status: po.Status, Op: "receive"}
	}

	quantities := make(map[string]int, len(po.Lines))
	for _, line := range po.Lines {
		quantities[line.ID] = line.Quantity
	}
	return s.Receive(ctx, id, pharmacyID, userID, quantities, updateInventory)
}
