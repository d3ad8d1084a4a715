package payment

import "errors"

var (
	ErrUnsupportedPaymentMethod = errors.New("payment: unsupported payment method")
	ErrUnsupportedOperation     = errors.New("payment: operation not supported by this method")
	ErrGatewayFailure           = errors.New("payment: gateway call failed")
	ErrPaymentExists            = errors.New("payment: order already has a payment")
	ErrPaymentNotFound          = errors.New("payment: not found")
	ErrMethodMismatch           = errors.New("payment: method does not match the recorded payment")
	ErrInvalidPaymentState      = errors.New("payment: operation not allowed in current payment state")
	ErrOrderNotPayable          = errors.New("payment: order can no longer be paid")
	ErrInvalidAmount            = errors.New("payment: invalid amount")

	// Reported by gateways for caller mistakes; these never trip a breaker.
	ErrUnknownTransaction  = errors.New("payment: unknown or expired transaction")
	ErrInvalidDeliveryCode = errors.New("payment: delivery code does not match")
)

// isCallerError reports errors that describe a bad request rather than an
// unhealthy provider.
func isCallerError(err error) bool {
	return errors.Is(err, ErrUnknownTransaction) ||
		errors.Is(err, ErrInvalidDeliveryCode) ||
		errors.Is(err, ErrInvalidAmount)
}
