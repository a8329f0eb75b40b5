// Package orderstatus describes the storefront's order status lifecycle:
// display names, terminal states and the allowed transitions between them.
package orderstatus

import "strings"

// Status is an order status code as sent by the storefront (e.g. "SHIPPING").
type Status string

const (
	Pending              Status = "PENDING"
	Confirmed            Status = "CONFIRMED"
	Shipping             Status = "SHIPPING"
	AwaitingConfirmation Status = "AWAITING_CONFIRMATION"
	Delivered            Status = "DELIVERED"
	ConfirmedByCustomer  Status = "CONFIRMED_BY_CUSTOMER"
	Cancelled            Status = "CANCELLED"
	RefundRequested      Status = "REFUND_REQUESTED"
	ReturnApproved       Status = "RETURN_APPROVED"
	Returning            Status = "RETURNING"
	ReturnReceived       Status = "RETURN_RECEIVED"
	Refunded             Status = "REFUNDED"
)

var all = []Status{
	Pending,
	Confirmed,
	Shipping,
	AwaitingConfirmation,
	Delivered,
	ConfirmedByCustomer,
	Cancelled,
	RefundRequested,
	ReturnApproved,
	Returning,
	ReturnReceived,
	Refunded,
}

var displayNames = map[Status]string{
	Pending:              "Chờ xử lý",
	Confirmed:            "Đã xác nhận",
	Shipping:             "Đang giao hàng",
	AwaitingConfirmation: "Chờ xác nhận giao hàng",
	Delivered:            "Đã giao hàng",
	ConfirmedByCustomer:  "Đã xác nhận nhận hàng",
	Cancelled:            "Đã hủy",
	RefundRequested:      "Yêu cầu hoàn trả",
	ReturnApproved:       "Chấp nhận hoàn trả",
	Returning:            "Đang hoàn trả",
	ReturnReceived:       "Đã nhận hàng hoàn trả",
	Refunded:             "Đã hoàn tiền",
}

// A refund request can be rejected, which sends the order back to DELIVERED.
var transitions = map[Status][]Status{
	Pending:              {Confirmed, Cancelled},
	Confirmed:            {Shipping, Cancelled},
	Shipping:             {AwaitingConfirmation, Cancelled},
	AwaitingConfirmation: {Delivered, Cancelled},
	Delivered:            {ConfirmedByCustomer, RefundRequested},
	RefundRequested:      {ReturnApproved, Delivered},
	ReturnApproved:       {Returning},
	Returning:            {ReturnReceived},
	ReturnReceived:       {Refunded},
}

// All returns every known status in lifecycle order.
func All() []Status {
	out := make([]Status, len(all))
	copy(out, all)
	return out
}

// Parse normalizes raw and reports whether it names a known status.
// Unknown values are returned normalized but with ok=false.
func Parse(raw string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	_, ok := displayNames[s]
	return s, ok
}

// Known reports whether s is part of the catalog.
func (s Status) Known() bool {
	_, ok := displayNames[s]
	return ok
}

// DisplayName returns the customer-facing label, or the raw code when the
// status is not in the catalog.
func (s Status) DisplayName() string {
	if name, ok := displayNames[s]; ok {
		return name
	}
	return string(s)
}

// IsFinal reports whether no further transitions are allowed.
func (s Status) IsFinal() bool {
	return s == ConfirmedByCustomer || s == Cancelled || s == Refunded
}

// ValidNext returns the statuses s may move to.
func (s Status) ValidNext() []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransitionTo reports whether moving from s to next follows the lifecycle.
func (s Status) CanTransitionTo(next Status) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// DisplayName is a convenience for raw status strings.
func DisplayName(raw string) string {
	s, _ := Parse(raw)
	if s == "" {
		return ""
	}
	return s.DisplayName()
}
