package contract

import "errors"

var (
	ErrNotConfigured        = errors.New("business is not configured")
	ErrServiceNotFound      = errors.New("service not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrCalendarUnavailable  = errors.New("calendar unavailable")
	ErrToolLoopExceeded     = errors.New("tool loop exceeded")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrDeliveryFailed       = errors.New("outbound delivery failed")
	ErrModelInvoke          = errors.New("model invoke failed")
	ErrValidation           = errors.New("validation failed")
)
