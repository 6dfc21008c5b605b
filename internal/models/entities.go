package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPayload is returned when an operation payload fails validation.
var ErrInvalidPayload = errors.New("invalid payload")

// Entity tags recognized by the dispatcher.
const (
	EntityCustomer        = "customer"
	EntityDeal            = "deal"
	EntityProduct         = "product"
	EntityStockMovement   = "stockMovement"
	EntityStockAdjustment = "stockAdjustment"
	EntityStockTransfer   = "stockTransfer"
	EntityStockCount      = "stockCount"
	EntityLeaveRequest    = "leaveRequest"
	EntityAttendance      = "attendance"
	EntityOrder           = "order"
	EntityInvoice         = "invoice"
	EntityQuote           = "quote"
	EntityPayment         = "payment"
)

// Update action qualifiers.
const (
	ActionApprove      = "approve"
	ActionShip         = "ship"
	ActionReceive      = "receive"
	ActionCancel       = "cancel"
	ActionSend         = "send"
	ActionAccept       = "accept"
	ActionReject       = "reject"
	ActionConvert      = "convert"
	ActionMarkPaid     = "markPaid"
	ActionUpdateStatus = "updateStatus"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPayload, fmt.Sprintf(format, args...))
}

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("%s id is required", kind)
	}
	return nil
}

// EntityRef addresses an existing record, used by delete and most action calls.
type EntityRef struct {
	ID     string `json:"id"`
	Reason string `json:"reason,omitempty"`
}

func (r EntityRef) EntityID() string { return r.ID }

func (r EntityRef) Validate() error { return requireID("entity", r.ID) }

// StatusChange moves a record to a new status.
type StatusChange struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s StatusChange) EntityID() string { return s.ID }

func (s StatusChange) Validate() error {
	if err := requireID("entity", s.ID); err != nil {
		return err
	}
	if strings.TrimSpace(s.Status) == "" {
		return invalid("status is required")
	}
	return nil
}

type Customer struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

func (c Customer) EntityID() string { return c.ID }

func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("customer name is required")
	}
	return nil
}

type Deal struct {
	ID         string  `json:"id,omitempty"`
	Title      string  `json:"title"`
	CustomerID string  `json:"customerId"`
	Value      float64 `json:"value"`
	Stage      string  `json:"stage,omitempty"`
}

func (d Deal) EntityID() string { return d.ID }

func (d Deal) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return invalid("deal title is required")
	}
	if d.CustomerID == "" {
		return invalid("deal customerId is required")
	}
	if d.Value < 0 {
		return invalid("deal value must not be negative")
	}
	return nil
}

type Product struct {
	ID    string  `json:"id,omitempty"`
	SKU   string  `json:"sku"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Unit  string  `json:"unit,omitempty"`
}

func (p Product) EntityID() string { return p.ID }

func (p Product) Validate() error {
	if strings.TrimSpace(p.SKU) == "" || strings.TrimSpace(p.Name) == "" {
		return invalid("product sku and name are required")
	}
	if p.Price < 0 {
		return invalid("product price must not be negative")
	}
	return nil
}

type StockMovement struct {
	ProductID   string  `json:"productId"`
	WarehouseID string  `json:"warehouseId"`
	Quantity    float64 `json:"quantity"`
	Kind        string  `json:"kind"`
	Reference   string  `json:"reference,omitempty"`
}

func (m StockMovement) Validate() error {
	if m.ProductID == "" || m.WarehouseID == "" {
		return invalid("stock movement productId and warehouseId are required")
	}
	if m.Quantity == 0 {
		return invalid("stock movement quantity must not be zero")
	}
	switch m.Kind {
	case "in", "out":
	default:
		return invalid("stock movement kind %q must be in or out", m.Kind)
	}
	return nil
}

type StockAdjustment struct {
	ID            string  `json:"id,omitempty"`
	ProductID     string  `json:"productId"`
	WarehouseID   string  `json:"warehouseId"`
	QuantityDelta float64 `json:"quantityDelta"`
	Reason        string  `json:"reason"`
}

func (a StockAdjustment) EntityID() string { return a.ID }

func (a StockAdjustment) Validate() error {
	if a.ProductID == "" || a.WarehouseID == "" {
		return invalid("stock adjustment productId and warehouseId are required")
	}
	if a.QuantityDelta == 0 {
		return invalid("stock adjustment quantityDelta must not be zero")
	}
	if strings.TrimSpace(a.Reason) == "" {
		return invalid("stock adjustment reason is required")
	}
	return nil
}

type StockTransfer struct {
	ID              string  `json:"id,omitempty"`
	ProductID       string  `json:"productId"`
	FromWarehouseID string  `json:"fromWarehouseId"`
	ToWarehouseID   string  `json:"toWarehouseId"`
	Quantity        float64 `json:"quantity"`
}

func (s StockTransfer) EntityID() string { return s.ID }

func (s StockTransfer) Validate() error {
	if s.ProductID == "" {
		return invalid("stock transfer productId is required")
	}
	if s.FromWarehouseID == "" || s.ToWarehouseID == "" {
		return invalid("stock transfer warehouses are required")
	}
	if s.FromWarehouseID == s.ToWarehouseID {
		return invalid("stock transfer source and destination must differ")
	}
	if s.Quantity <= 0 {
		return invalid("stock transfer quantity must be positive")
	}
	return nil
}

type StockCountLine struct {
	ProductID string  `json:"productId"`
	Counted   float64 `json:"counted"`
}

type StockCount struct {
	ID          string           `json:"id,omitempty"`
	WarehouseID string           `json:"warehouseId"`
	Lines       []StockCountLine `json:"lines"`
}

func (s StockCount) EntityID() string { return s.ID }

func (s StockCount) Validate() error {
	if s.WarehouseID == "" {
		return invalid("stock count warehouseId is required")
	}
	for i, l := range s.Lines {
		if l.ProductID == "" {
			return invalid("stock count line %d productId is required", i)
		}
		if l.Counted < 0 {
			return invalid("stock count line %d counted must not be negative", i)
		}
	}
	return nil
}

type LeaveRequest struct {
	ID         string    `json:"id,omitempty"`
	EmployeeID string    `json:"employeeId"`
	Kind       string    `json:"kind"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Reason     string    `json:"reason,omitempty"`
}

func (l LeaveRequest) EntityID() string { return l.ID }

func (l LeaveRequest) Validate() error {
	if l.EmployeeID == "" {
		return invalid("leave request employeeId is required")
	}
	if l.StartDate.IsZero() || l.EndDate.IsZero() {
		return invalid("leave request dates are required")
	}
	if l.EndDate.Before(l.StartDate) {
		return invalid("leave request ends before it starts")
	}
	return nil
}

type Attendance struct {
	ID         string     `json:"id,omitempty"`
	EmployeeID string     `json:"employeeId"`
	CheckIn    time.Time  `json:"checkIn"`
	CheckOut   *time.Time `json:"checkOut,omitempty"`
}

func (a Attendance) EntityID() string { return a.ID }

func (a Attendance) Validate() error {
	if a.EmployeeID == "" {
		return invalid("attendance employeeId is required")
	}
	if a.CheckIn.IsZero() {
		return invalid("attendance checkIn is required")
	}
	if a.CheckOut != nil && a.CheckOut.Before(a.CheckIn) {
		return invalid("attendance checkOut precedes checkIn")
	}
	return nil
}

// LineItem is a priced line shared by orders and quotes.
type LineItem struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

func validateLines(kind string, lines []LineItem) error {
	if len(lines) == 0 {
		return invalid("%s requires at least one line", kind)
	}
	for i, l := range lines {
		if l.ProductID == "" {
			return invalid("%s line %d productId is required", kind, i)
		}
		if l.Quantity <= 0 {
			return invalid("%s line %d quantity must be positive", kind, i)
		}
	}
	return nil
}

type Order struct {
	ID         string     `json:"id,omitempty"`
	CustomerID string     `json:"customerId"`
	Lines      []LineItem `json:"lines"`
	Status     string     `json:"status,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

func (o Order) EntityID() string { return o.ID }

func (o Order) Validate() error {
	if o.CustomerID == "" {
		return invalid("order customerId is required")
	}
	return validateLines("order", o.Lines)
}

type Invoice struct {
	ID         string    `json:"id,omitempty"`
	CustomerID string    `json:"customerId"`
	OrderID    string    `json:"orderId,omitempty"`
	Amount     float64   `json:"amount"`
	DueDate    time.Time `json:"dueDate"`
}

func (i Invoice) EntityID() string { return i.ID }

func (i Invoice) Validate() error {
	if i.CustomerID == "" {
		return invalid("invoice customerId is required")
	}
	if i.Amount <= 0 {
		return invalid("invoice amount must be positive")
	}
	return nil
}

type Quote struct {
	ID         string     `json:"id,omitempty"`
	CustomerID string     `json:"customerId"`
	Lines      []LineItem `json:"lines"`
	ValidUntil time.Time  `json:"validUntil"`
}

func (q Quote) EntityID() string { return q.ID }

func (q Quote) Validate() error {
	if q.CustomerID == "" {
		return invalid("quote customerId is required")
	}
	return validateLines("quote", q.Lines)
}

type Payment struct {
	ID        string    `json:"id,omitempty"`
	InvoiceID string    `json:"invoiceId"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	PaidAt    time.Time `json:"paidAt"`
}

func (p Payment) EntityID() string { return p.ID }

func (p Payment) Validate() error {
	if p.InvoiceID == "" {
		return invalid("payment invoiceId is required")
	}
	if p.Amount <= 0 {
		return invalid("payment amount must be positive")
	}
	if strings.TrimSpace(p.Method) == "" {
		return invalid("payment method is required")
	}
	return nil
}
