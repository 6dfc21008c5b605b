package dispatch

import (
	m "offlinesync/internal/models"
)

func registerRoutes(d *Dispatcher) {
	d.handle(m.EntityCustomer, m.OpCreate, "", create[m.Customer]("/customers"))
	d.handle(m.EntityCustomer, m.OpUpdate, "", update[m.Customer]("/customers"))
	d.handle(m.EntityCustomer, m.OpDelete, "", remove("/customers"))

	d.handle(m.EntityDeal, m.OpCreate, "", create[m.Deal]("/deals"))
	d.handle(m.EntityDeal, m.OpUpdate, "", update[m.Deal]("/deals"))
	d.handle(m.EntityDeal, m.OpUpdate, m.ActionUpdateStatus, setStatus("/deals"))
	d.handle(m.EntityDeal, m.OpDelete, "", remove("/deals"))

	d.handle(m.EntityProduct, m.OpCreate, "", create[m.Product]("/products"))
	d.handle(m.EntityProduct, m.OpUpdate, "", update[m.Product]("/products"))
	d.handle(m.EntityProduct, m.OpDelete, "", remove("/products"))

	d.handle(m.EntityStockMovement, m.OpCreate, "", create[m.StockMovement]("/stock/movements"))

	d.handle(m.EntityStockAdjustment, m.OpCreate, "", create[m.StockAdjustment]("/stock/adjustments"))
	d.handle(m.EntityStockAdjustment, m.OpUpdate, m.ActionApprove, act("/stock/adjustments", m.ActionApprove))

	d.handle(m.EntityStockTransfer, m.OpCreate, "", create[m.StockTransfer]("/stock/transfers"))
	for _, a := range []string{m.ActionShip, m.ActionReceive, m.ActionCancel} {
		d.handle(m.EntityStockTransfer, m.OpUpdate, a, act("/stock/transfers", a))
	}

	d.handle(m.EntityStockCount, m.OpCreate, "", create[m.StockCount]("/stock/counts"))
	d.handle(m.EntityStockCount, m.OpUpdate, "", update[m.StockCount]("/stock/counts"))
	d.handle(m.EntityStockCount, m.OpUpdate, m.ActionApprove, act("/stock/counts", m.ActionApprove))

	d.handle(m.EntityLeaveRequest, m.OpCreate, "", create[m.LeaveRequest]("/leave-requests"))
	d.handle(m.EntityLeaveRequest, m.OpUpdate, "", update[m.LeaveRequest]("/leave-requests"))
	for _, a := range []string{m.ActionApprove, m.ActionReject, m.ActionCancel} {
		d.handle(m.EntityLeaveRequest, m.OpUpdate, a, act("/leave-requests", a))
	}
	d.handle(m.EntityLeaveRequest, m.OpDelete, "", remove("/leave-requests"))

	d.handle(m.EntityAttendance, m.OpCreate, "", create[m.Attendance]("/attendance"))
	d.handle(m.EntityAttendance, m.OpUpdate, "", update[m.Attendance]("/attendance"))

	d.handle(m.EntityOrder, m.OpCreate, "", create[m.Order]("/orders"))
	d.handle(m.EntityOrder, m.OpUpdate, "", update[m.Order]("/orders"))
	d.handle(m.EntityOrder, m.OpUpdate, m.ActionUpdateStatus, setStatus("/orders"))
	d.handle(m.EntityOrder, m.OpUpdate, m.ActionCancel, act("/orders", m.ActionCancel))
	d.handle(m.EntityOrder, m.OpDelete, "", remove("/orders"))

	d.handle(m.EntityInvoice, m.OpCreate, "", create[m.Invoice]("/invoices"))
	d.handle(m.EntityInvoice, m.OpUpdate, "", update[m.Invoice]("/invoices"))
	for _, a := range []string{m.ActionSend, m.ActionMarkPaid, m.ActionCancel} {
		d.handle(m.EntityInvoice, m.OpUpdate, a, act("/invoices", a))
	}
	d.handle(m.EntityInvoice, m.OpDelete, "", remove("/invoices"))

	d.handle(m.EntityQuote, m.OpCreate, "", create[m.Quote]("/quotes"))
	d.handle(m.EntityQuote, m.OpUpdate, "", update[m.Quote]("/quotes"))
	for _, a := range []string{m.ActionSend, m.ActionAccept, m.ActionReject, m.ActionConvert} {
		d.handle(m.EntityQuote, m.OpUpdate, a, act("/quotes", a))
	}
	d.handle(m.EntityQuote, m.OpDelete, "", remove("/quotes"))

	d.handle(m.EntityPayment, m.OpCreate, "", create[m.Payment]("/payments"))
	d.handle(m.EntityPayment, m.OpDelete, "", remove("/payments"))
}
