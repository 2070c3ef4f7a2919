package repository

const (
	productsPath = "/loan/products"
	calcPath     = "/loan/calc"

	catalogCacheKey = "loan:products"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 4 << 20

	// BalanceTolerance is how far a schedule balance may rise between periods
	// before the response is rejected as malformed.
	BalanceTolerance = 0.01

	msgRequestFailed = "loan service request failed"
	msgExpectedJSON  = "Expected JSON response from server."
)
