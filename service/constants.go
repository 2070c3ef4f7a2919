package service

// User-facing validation messages.
const (
	MsgSelectProduct    = "Select a loan product."
	MsgInvalidAmount    = "Enter a valid amount."
	MsgInvalidMonths    = "Enter a valid period (months)."
	MsgInvalidStartDate = "Enter a valid start date."
	MsgUnknownProduct   = "Unknown loan product."
)
