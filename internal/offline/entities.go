package offline

import (
	"context"

	m "offlinesync/internal/models"
)

func (mg *Manager) enqueue(ctx context.Context, op m.OperationType, entity, action string, payload any) (m.QueueItem, error) {
	return mg.AddToQueue(ctx, m.Operation{Type: op, Entity: entity, Action: action, Payload: payload})
}

func (mg *Manager) CreateCustomer(ctx context.Context, c m.Customer) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpCreate, m.EntityCustomer, "", c)
}

func (mg *Manager) UpdateCustomer(ctx context.Context, c m.Customer) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityCustomer, "", c)
}

func (mg *Manager) DeleteCustomer(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpDelete, m.EntityCustomer, "", m.EntityRef{ID: id})
}

func (mg *Manager) CreateDeal(ctx context.Context, d m.Deal) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpCreate, m.EntityDeal, "", d)
}

func (mg *Manager) UpdateDeal(ctx context.Context, d m.Deal) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityDeal, "", d)
}

func (mg *Manager) UpdateDealStatus(ctx context.Context, id, status string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityDeal, m.ActionUpdateStatus, m.StatusChange{ID: id, Status: status})
}

func (mg *Manager) DeleteDeal(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpDelete, m.EntityDeal, "", m.EntityRef{ID: id})
}

func (mg *Manager) CreateProduct(ctx context.Context, p m.Product) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpCreate, m.EntityProduct, "", p)
}

func (mg *Manager) UpdateProduct(ctx context.Context, p m.Product) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityProduct, "", p)
}

func (mg *Manager) DeleteProduct(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpDelete, m.EntityProduct, "", m.EntityRef{ID: id})
}

func (mg *Manager) RecordStockMovement(ctx context.Context, mv m.StockMovement) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpCreate, m.EntityStockMovement, "", mv)
}

func (mg *Manager) CreateStockAdjustment(ctx context.Context, a m.StockAdjustment) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpCreate, m.EntityStockAdjustment, "", a)
}

func (mg *Manager) ApproveStockAdjustment(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityStockAdjustment, m.ActionApprove, m.EntityRef{ID: id})
}

func (mg *Manager) CreateStockTransfer(ctx context.Context, t m.StockTransfer) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpCreate, m.EntityStockTransfer, "", t)
}

func (mg *Manager) ShipStockTransfer(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityStockTransfer, m.ActionShip, m.EntityRef{ID: id})
}

func (mg *Manager) ReceiveStockTransfer(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityStockTransfer, m.ActionReceive, m.EntityRef{ID: id})
}

func (mg *Manager) CancelStockTransfer(ctx context.Context, id, reason string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityStockTransfer, m.ActionCancel, m.EntityRef{ID: id, Reason: reason})
}

func (mg *Manager) CreateStockCount(ctx context.Context, c m.StockCount) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpCreate, m.EntityStockCount, "", c)
}

func (mg *Manager) UpdateStockCount(ctx context.Context, c m.StockCount) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityStockCount, "", c)
}

func (mg *Manager) ApproveStockCount(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityStockCount, m.ActionApprove, m.EntityRef{ID: id})
}

func (mg *Manager) CreateLeaveRequest(ctx context.Context, l m.LeaveRequest) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpCreate, m.EntityLeaveRequest, "", l)
}

func (mg *Manager) UpdateLeaveRequest(ctx context.Context, l m.LeaveRequest) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityLeaveRequest, "", l)
}

func (mg *Manager) ApproveLeaveRequest(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityLeaveRequest, m.ActionApprove, m.EntityRef{ID: id})
}

func (mg *Manager) RejectLeaveRequest(ctx context.Context, id, reason string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityLeaveRequest, m.ActionReject, m.EntityRef{ID: id, Reason: reason})
}

func (mg *Manager) CancelLeaveRequest(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityLeaveRequest, m.ActionCancel, m.EntityRef{ID: id})
}

func (mg *Manager) DeleteLeaveRequest(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpDelete, m.EntityLeaveRequest, "", m.EntityRef{ID: id})
}

// CheckIn records an attendance entry.
func (mg *Manager) CheckIn(ctx context.Context, a m.Attendance) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpCreate, m.EntityAttendance, "", a)
}

func (mg *Manager) UpdateAttendance(ctx context.Context, a m.Attendance) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityAttendance, "", a)
}

func (mg *Manager) CreateOrder(ctx context.Context, o m.Order) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpCreate, m.EntityOrder, "", o)
}

func (mg *Manager) UpdateOrder(ctx context.Context, o m.Order) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityOrder, "", o)
}

func (mg *Manager) UpdateOrderStatus(ctx context.Context, id, status string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityOrder, m.ActionUpdateStatus, m.StatusChange{ID: id, Status: status})
}

func (mg *Manager) CancelOrder(ctx context.Context, id, reason string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityOrder, m.ActionCancel, m.EntityRef{ID: id, Reason: reason})
}

func (mg *Manager) DeleteOrder(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpDelete, m.EntityOrder, "", m.EntityRef{ID: id})
}

func (mg *Manager) CreateInvoice(ctx context.Context, i m.Invoice) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpCreate, m.EntityInvoice, "", i)
}

func (mg *Manager) UpdateInvoice(ctx context.Context, i m.Invoice) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityInvoice, "", i)
}

func (mg *Manager) SendInvoice(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityInvoice, m.ActionSend, m.EntityRef{ID: id})
}

func (mg *Manager) MarkInvoicePaid(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityInvoice, m.ActionMarkPaid, m.EntityRef{ID: id})
}

func (mg *Manager) CancelInvoice(ctx context.Context, id, reason string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityInvoice, m.ActionCancel, m.EntityRef{ID: id, Reason: reason})
}

func (mg *Manager) DeleteInvoice(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpDelete, m.EntityInvoice, "", m.EntityRef{ID: id})
}

func (mg *Manager) CreateQuote(ctx context.Context, q m.Quote) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpCreate, m.EntityQuote, "", q)
}

func (mg *Manager) UpdateQuote(ctx context.Context, q m.Quote) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityQuote, "", q)
}

func (mg *Manager) SendQuote(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityQuote, m.ActionSend, m.EntityRef{ID: id})
}

func (mg *Manager) AcceptQuote(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityQuote, m.ActionAccept, m.EntityRef{ID: id})
}

func (mg *Manager) RejectQuote(ctx context.Context, id, reason string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityQuote, m.ActionReject, m.EntityRef{ID: id, Reason: reason})
}

// ConvertQuote turns an accepted quote into an order on the backend.
func (mg *Manager) ConvertQuote(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpUpdate, m.EntityQuote, m.ActionConvert, m.EntityRef{ID: id})
}

func (mg *Manager) DeleteQuote(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpDelete, m.EntityQuote, "", m.EntityRef{ID: id})
}

func (mg *Manager) CreatePayment(ctx context.Context, p m.Payment) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpCreate, m.EntityPayment, "", p)
}

func (mg *Manager) DeletePayment(ctx context.Context, id string) (m.QueueItem, error) {
	return mg.enqueue(ctx, m.OpDelete, m.EntityPayment, "", m.EntityRef{ID: id})
}
