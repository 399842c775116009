package models

// Wire types for the remote calculation API. The gateway both proxies these
// endpoints and, when upstream and cache are unavailable, reproduces their
// responses locally — field names here must match the remote contract.

// CreditCardRequest is the POST body for /api/calculate/credit-card.
type CreditCardRequest struct {
	Balance        float64 `json:"balance"`
	APR            float64 `json:"apr"`
	MonthlyPayment float64 `json:"monthly_payment"`
}

// CreditCardResponse is the response for /api/calculate/credit-card.
type CreditCardResponse struct {
	Months        int            `json:"months"`
	TotalPaid     float64        `json:"total_paid"`
	TotalInterest float64        `json:"total_interest"`
	Schedule      []PeriodRecord `json:"schedule"`
	Offline       bool           `json:"offline,omitempty"`
}

// StudentLoanRequest is the POST body for /api/calculate/student-loan.
type StudentLoanRequest struct {
	Principal  float64 `json:"principal"`
	APR        float64 `json:"apr"`
	TermMonths int     `json:"term_months"`
}

// StudentLoanResponse is the response for /api/calculate/student-loan.
type StudentLoanResponse struct {
	MonthlyPayment float64        `json:"monthly_payment"`
	TotalPaid      float64        `json:"total_paid"`
	TotalInterest  float64        `json:"total_interest"`
	Schedule       []PeriodRecord `json:"schedule"`
	Offline        bool           `json:"offline,omitempty"`
}

// CalculationError is the validation-error body the remote API returns for
// a credit-card payment below the minimum viable payment. The offline
// fallback produces the same shape.
type CalculationError struct {
	Error      string  `json:"error"`
	MinPayment float64 `json:"min_payment,omitempty"`
	Offline    bool    `json:"offline,omitempty"`
}
