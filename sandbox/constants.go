package sandbox

const (
	MaxLoanAmount = 1_000_000_000.0
	MaxTermMonths = 600 // 50 years
	MinTermMonths = 1
)

// Method is how a product repays principal.
type Method int

const (
	// StraightLine repays an equal share of principal each month; interest
	// is charged on the reducing balance.
	StraightLine Method = iota
	// Annuity repays a fixed installment (EMI) each month.
	Annuity
)
