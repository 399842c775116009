package models

import "fmt"

// PeriodsHardCap bounds every amortization simulation. A fixed-payment
// schedule that has not reached zero after 50 years is reported as
// "600+ months" rather than looping further.
const PeriodsHardCap = 600

// LoanMode selects how a loan input is amortized.
type LoanMode string

const (
	// ModeFixedPayment simulates period by period until payoff (credit card).
	ModeFixedPayment LoanMode = "fixed_payment"
	// ModeFixedTerm solves for a level payment over a fixed term (student loan).
	ModeFixedTerm LoanMode = "fixed_term"
)

// LoanInput describes one amortization request.
// Exactly one of Payment (fixed-payment mode) or Periods (fixed-term mode)
// is meaningful, selected by Mode.
type LoanInput struct {
	Principal      float64  `json:"principal"`
	AnnualRatePct  float64  `json:"annual_rate_pct"`
	Mode           LoanMode `json:"mode"`
	Payment        float64  `json:"payment,omitempty"`
	Periods        int      `json:"periods,omitempty"`
}

// PeriodicRate returns the per-month interest rate.
func (in *LoanInput) PeriodicRate() float64 {
	return in.AnnualRatePct / 100 / 12
}

// Validate checks structural validity of the input. Payment sufficiency is
// checked by the engine itself (it depends on the first-period interest).
func (in *LoanInput) Validate() error {
	if in.Principal <= 0 {
		return fmt.Errorf("principal must be positive, got %v", in.Principal)
	}
	if in.AnnualRatePct < 0 {
		return fmt.Errorf("annual rate must be >= 0, got %v", in.AnnualRatePct)
	}
	switch in.Mode {
	case ModeFixedPayment:
		if in.Payment <= 0 {
			return fmt.Errorf("payment must be positive, got %v", in.Payment)
		}
	case ModeFixedTerm:
		if in.Periods <= 0 || in.Periods > PeriodsHardCap {
			return fmt.Errorf("periods must be in 1..%d, got %d", PeriodsHardCap, in.Periods)
		}
	default:
		return fmt.Errorf("unknown loan mode %q", in.Mode)
	}
	return nil
}

// PeriodRecord is one row of an amortization schedule. Monetary values are
// rounded to 2 decimal places at row construction; the engine's running
// balance is never the rounded value.
type PeriodRecord struct {
	Period    int     `json:"month"`
	Payment   float64 `json:"payment"`
	Interest  float64 `json:"interest"`
	Principal float64 `json:"principal"`
	Remaining float64 `json:"remaining"`
}

// Amortization is the full result of amortizing a loan input.
type Amortization struct {
	Months         int            `json:"months"`
	MonthlyPayment float64        `json:"monthly_payment"`
	TotalPaid      float64        `json:"total_paid"`
	TotalInterest  float64        `json:"total_interest"`
	Schedule       []PeriodRecord `json:"schedule"`
	// CapReached is set when a fixed-payment simulation hit the hard cap
	// before the balance reached zero (months is then reported as the cap).
	CapReached bool `json:"cap_reached,omitempty"`
}

// PaymentTooLowError reports a fixed-payment input whose payment does not
// exceed the first period's interest, so the balance would never decrease.
type PaymentTooLowError struct {
	Payment    float64
	MinPayment float64
}

func (e *PaymentTooLowError) Error() string {
	return fmt.Sprintf("payment %.2f does not cover monthly interest; minimum viable payment is %.2f",
		e.Payment, e.MinPayment)
}
