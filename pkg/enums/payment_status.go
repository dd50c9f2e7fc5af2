package enums

// PaymentStatus is the status string recorded on an order's payment result.
type PaymentStatus string

const (
	// PaymentStatusPending marks an intent created but not yet captured.
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusManual    PaymentStatus = "MANUAL"
)

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}
