package order

import (
	"github.com/Additional-Code/tableside/internal/domain"
	"github.com/Additional-Code/tableside/internal/entity"
)

func toEntity(o *domain.Order) *entity.Order {
	row := &entity.Order{
		ID:             o.ID,
		OrderNumber:    o.Number,
		CustomerID:     o.CustomerID,
		RestaurantID:   o.RestaurantID,
		OrderType:      string(o.Type),
		Status:         string(o.Status),
		PayWithCrypto:  o.PayWithCrypto,
		Subtotal:       o.Pricing.Subtotal,
		TaxAmount:      o.Pricing.TaxAmount,
		ServiceFee:     o.Pricing.ServiceFee,
		DeliveryFee:    o.Pricing.DeliveryFee,
		CryptoDiscount: o.Pricing.CryptoDiscount,
		Total:          o.Pricing.Total,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		CompletedAt:    o.CompletedAt,
		CancelledAt:    o.CancelledAt,
	}
	if o.DeliveryAddress != nil {
		a := o.DeliveryAddress
		row.DeliveryAddress = &entity.Address{
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
			Notes:      a.Notes,
		}
	}
	if o.TableNumber != "" {
		table := o.TableNumber
		row.TableNumber = &table
	}
	return row
}

func toDomain(row *entity.Order) *domain.Order {
	o := &domain.Order{
		ID:            row.ID,
		Number:        row.OrderNumber,
		CustomerID:    row.CustomerID,
		RestaurantID:  row.RestaurantID,
		Type:          domain.OrderType(row.OrderType),
		Status:        domain.Status(row.Status),
		PayWithCrypto: row.PayWithCrypto,
		Pricing: domain.Pricing{
			Subtotal:       row.Subtotal,
			TaxAmount:      row.TaxAmount,
			ServiceFee:     row.ServiceFee,
			DeliveryFee:    row.DeliveryFee,
			CryptoDiscount: row.CryptoDiscount,
			Total:          row.Total,
		},
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		CompletedAt: row.CompletedAt,
		CancelledAt: row.CancelledAt,
	}
	if a := row.DeliveryAddress; a != nil {
		o.DeliveryAddress = &domain.Address{
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			State:      a.State,
			PostalCode: a.PostalCode,
			Country:    a.Country,
			Notes:      a.Notes,
		}
	}
	if row.TableNumber != nil {
		o.TableNumber = *row.TableNumber
	}
	return o
}

func itemsToEntity(orderID string, items []domain.LineItem) []entity.OrderItem {
	rows := make([]entity.OrderItem, 0, len(items))
	for _, it := range items {
		rows = append(rows, entity.OrderItem{
			OrderID:    orderID,
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			LineTotal:  it.LineTotal,
		})
	}
	return rows
}

func itemsToDomain(rows []entity.OrderItem) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.LineItem{
			MenuItemID: row.MenuItemID,
			Quantity:   row.Quantity,
			UnitPrice:  row.UnitPrice,
			LineTotal:  row.LineTotal,
		})
	}
	return items
}

func historyToEntity(c domain.StatusChange) *entity.OrderStatusHistory {
	return &entity.OrderStatusHistory{
		ID:        c.ID,
		OrderID:   c.OrderID,
		Status:    string(c.Status),
		ChangedBy: c.ChangedBy,
		Note:      c.Note,
		CreatedAt: c.CreatedAt,
	}
}

func historyToDomain(row entity.OrderStatusHistory) domain.StatusChange {
	return domain.StatusChange{
		ID:        row.ID,
		OrderID:   row.OrderID,
		Status:    domain.Status(row.Status),
		ChangedBy: row.ChangedBy,
		Note:      row.Note,
		CreatedAt: row.CreatedAt,
	}
}
