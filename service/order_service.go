package service

import (
	"context"
	"strings"

	"scanndine/apperr"
	"scanndine/auth"
	"scanndine/model"
	"scanndine/realtime"
	"scanndine/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// OrderLine is one requested line of a new order.
type OrderLine struct {
	MenuItemID uint
	Qty        int
	Note       string
}

// ActiveFilter narrows the staff queue. TableRef is a number or slug and
// takes precedence over TableID.
type ActiveFilter struct {
	Status   string
	TableID  uint
	TableRef string
}

type OrderService struct {
	orders   *repository.OrderRepository
	menu     *repository.MenuRepository
	tables   *TableService
	notifier OrderNotifier
	metrics  Recorder
	log      logrus.FieldLogger
}

func NewOrderService(orders *repository.OrderRepository, menu *repository.MenuRepository, tables *TableService, notifier OrderNotifier, rec Recorder, log logrus.FieldLogger) *OrderService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &OrderService{orders: orders, menu: menu, tables: tables, notifier: notifier, metrics: rec, log: log}
}

func orderNotFound() *apperr.Error {
	return apperr.NotFound(apperr.CodeOrderNotFound, "order not found")
}

// PlaceOrder prices the lines at current menu prices and records the order.
// Every lookup happens before the insert, so a rejected order writes
// nothing. Only customer identities are attached to the order.
func (s *OrderService) PlaceOrder(ctx context.Context, tableRef string, lines []OrderLine, actor *auth.Identity) (*model.Order, error) {
	if strings.TrimSpace(tableRef) == "" {
		return nil, apperr.Validation("tableId is required")
	}
	if len(lines) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}
	for _, l := range lines {
		if l.MenuItemID == 0 {
			return nil, apperr.Validation("menuItemId is required on every item")
		}
		if l.Qty < 1 {
			return nil, apperr.Validationf("quantity for menu item %d must be at least 1", l.MenuItemID)
		}
	}

	table, err := s.tables.Resolve(ctx, tableRef)
	if err != nil {
		if apperr.Is(err, apperr.CodeValidation) {
			return nil, tableNotFound()
		}
		return nil, err
	}

	ids := make([]uint, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.MenuItemID)
	}
	items, err := s.menu.FindItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		TableID: table.ID,
		Status:  model.OrderPlaced,
		Items:   make([]model.OrderItem, 0, len(lines)),
	}
	total := decimal.Zero
	for _, l := range lines {
		item, ok := items[l.MenuItemID]
		if !ok {
			return nil, menuItemNotFound(l.MenuItemID)
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(l.Qty))))
		order.Items = append(order.Items, model.OrderItem{
			MenuItemID: l.MenuItemID,
			Qty:        l.Qty,
			Note:       strings.TrimSpace(l.Note),
			UnitPrice:  item.Price,
		})
	}
	order.Totals = total
	if actor.IsCustomer() {
		uid := actor.UserID
		order.UserID = &uid
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	placed, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.OrderPlaced(order.UserID == nil)
	s.log.WithFields(logrus.Fields{
		"order_id": placed.ID,
		"table":    table.Number,
		"totals":   placed.Totals.StringFixed(2),
		"guest":    placed.UserID == nil,
	}).Info("order placed")
	s.notifier.NotifyOrder(ctx, realtime.OrderEvent{Type: realtime.EventOrderPlaced, Order: placed})
	return placed, nil
}

// ActiveOrders is the staff queue: everything not cleared, oldest first.
func (s *OrderService) ActiveOrders(ctx context.Context, f ActiveFilter) ([]model.Order, error) {
	filter := repository.OrderFilter{TableID: f.TableID}
	if f.Status != "" {
		status := model.OrderStatus(f.Status)
		if !status.Valid() {
			return nil, apperr.Validationf("unknown status %q", f.Status)
		}
		filter.Status = status
	}
	if f.TableRef != "" {
		table, err := s.tables.Resolve(ctx, f.TableRef)
		if err != nil {
			return nil, err
		}
		filter.TableID = table.ID
	}
	return s.orders.ListActive(ctx, filter)
}

func (s *OrderService) Order(ctx context.Context, id uint) (*model.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, orderNotFound())
	}
	return order, nil
}

// TrackOrder returns one order to the caller it belongs to. Staff and
// admins see any order; customers see their own; anyone else must name the
// order's table. A mismatch reads as a missing order.
func (s *OrderService) TrackOrder(ctx context.Context, id uint, tableRef string, actor *auth.Identity) (*model.Order, error) {
	order, err := s.Order(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.HasRole(model.RoleStaff, model.RoleAdmin) {
		return order, nil
	}
	if actor.IsCustomer() && order.UserID != nil && *order.UserID == actor.UserID {
		return order, nil
	}
	if strings.TrimSpace(tableRef) == "" {
		if actor.IsCustomer() {
			return nil, orderNotFound()
		}
		return nil, tableReferenceRequired()
	}
	n, err := ParseTableReference(tableRef)
	if err != nil || order.Table == nil || order.Table.Number != n {
		return nil, orderNotFound()
	}
	return order, nil
}

// UpdateStatus moves an order to any known status.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, raw string) (*model.Order, error) {
	status := model.OrderStatus(strings.TrimSpace(raw))
	if !status.Valid() {
		return nil, apperr.Validationf("unknown status %q", raw)
	}
	current, err := s.Order(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(current.Status, status) {
		return nil, apperr.Validationf("cannot move order from %s to %s", current.Status, status)
	}
	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		return nil, notFound(err, orderNotFound())
	}
	current.Status = status

	s.metrics.OrderStatusChanged(string(status))
	s.log.WithFields(logrus.Fields{"order_id": id, "status": status}).Info("order status changed")
	event := realtime.EventOrderStatus
	if status == model.OrderCleared {
		event = realtime.EventOrderCleared
	}
	s.notifier.NotifyOrder(ctx, realtime.OrderEvent{Type: event, Order: current})
	return current, nil
}

// ClearOrder hides an order from the staff queue. The record stays for
// history and analytics.
func (s *OrderService) ClearOrder(ctx context.Context, id uint) (*model.Order, error) {
	return s.UpdateStatus(ctx, id, string(model.OrderCleared))
}

// CustomerOrders returns order history, newest first, cleared orders
// included. Customers get their own orders; everyone else must name a
// table.
func (s *OrderService) CustomerOrders(ctx context.Context, tableRef string, actor *auth.Identity) ([]model.Order, error) {
	if actor.IsCustomer() {
		return s.orders.ListHistory(ctx, repository.OrderFilter{UserID: actor.UserID})
	}
	if strings.TrimSpace(tableRef) == "" {
		return nil, tableReferenceRequired()
	}
	table, err := s.tables.Resolve(ctx, tableRef)
	if err != nil {
		return nil, err
	}
	return s.orders.ListHistory(ctx, repository.OrderFilter{TableID: table.ID})
}

// CustomerChannels picks the push channels matching CustomerOrders.
func (s *OrderService) CustomerChannels(ctx context.Context, tableRef string, actor *auth.Identity) ([]string, error) {
	if actor.IsCustomer() {
		return []string{realtime.UserChannel(actor.UserID)}, nil
	}
	if strings.TrimSpace(tableRef) == "" {
		return nil, tableReferenceRequired()
	}
	table, err := s.tables.Resolve(ctx, tableRef)
	if err != nil {
		return nil, err
	}
	return []string{realtime.TableChannel(table.ID)}, nil
}

func tableReferenceRequired() *apperr.Error {
	return apperr.New(apperr.KindValidation, apperr.CodeTableReferenceRequired, "table reference is required for guest orders")
}
