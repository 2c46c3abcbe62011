package notifications

const (
	CategoryRequestSubmitted = "request_submitted"
	CategoryAwaitingApproval = "request_awaiting_approval"
	CategoryAwaitingHR       = "request_awaiting_hr"
	CategoryRequestApproved  = "request_approved"
	CategoryRequestRejected  = "request_rejected"
	CategoryRequestDelivered = "request_delivered"
)
