// Package amortize implements the loan amortization engine.
//
// The engine is pure and deterministic: the offline fallback relies on it
// producing the same numbers as the remote calculation API for the same
// inputs, so there is no randomness, no clock, and no I/O here.
package amortize

import (
	"math"

	"github.com/bobmcallan/payoff/internal/models"
)

// round2 rounds to 2 decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Amortize computes the full payment schedule for a loan input.
//
// Fixed-payment mode simulates period by period until the balance reaches
// zero, returning *models.PaymentTooLowError when the payment does not
// exceed the first period's interest. Fixed-term mode solves for the level
// payment via the annuity formula (principal/n at zero rate) and simulates
// exactly that many periods.
//
// Schedule rows carry values rounded to 2dp; the running balance is kept
// unrounded so rounding error never compounds across the schedule.
func Amortize(in models.LoanInput) (*models.Amortization, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	switch in.Mode {
	case models.ModeFixedPayment:
		return fixedPayment(in)
	default:
		return fixedTerm(in)
	}
}

// LevelPayment returns the level periodic payment for principal p over n
// periods at periodic rate r: p*r / (1 - (1+r)^-n), or p/n when r is zero.
func LevelPayment(p float64, r float64, n int) float64 {
	if r == 0 {
		return p / float64(n)
	}
	return p * r / (1 - math.Pow(1+r, float64(-n)))
}

func fixedPayment(in models.LoanInput) (*models.Amortization, error) {
	r := in.PeriodicRate()
	balance := in.Principal

	firstInterest := balance * r
	if in.Payment <= firstInterest {
		return nil, &models.PaymentTooLowError{
			Payment:    in.Payment,
			MinPayment: round2(firstInterest) + 0.01,
		}
	}

	result := &models.Amortization{MonthlyPayment: round2(in.Payment)}
	var totalPaid, totalInterest float64

	for period := 1; period <= models.PeriodsHardCap; period++ {
		interest := balance * r
		principal := in.Payment - interest
		pay := in.Payment

		// Final period: never pay past zero.
		if principal >= balance {
			principal = balance
			pay = balance + interest
		}

		balance -= principal
		totalPaid += pay
		totalInterest += interest

		result.Schedule = append(result.Schedule, models.PeriodRecord{
			Period:    period,
			Payment:   round2(pay),
			Interest:  round2(interest),
			Principal: round2(principal),
			Remaining: round2(math.Max(balance, 0)),
		})

		if balance <= 0 {
			break
		}
	}

	// Best-effort past the cap: report the cap rather than failing.
	result.CapReached = balance > 0
	result.Months = len(result.Schedule)
	result.TotalPaid = round2(totalPaid)
	result.TotalInterest = round2(totalInterest)
	return result, nil
}

func fixedTerm(in models.LoanInput) (*models.Amortization, error) {
	r := in.PeriodicRate()
	payment := LevelPayment(in.Principal, r, in.Periods)
	balance := in.Principal

	result := &models.Amortization{MonthlyPayment: round2(payment)}
	var totalPaid, totalInterest float64

	for period := 1; period <= in.Periods; period++ {
		interest := balance * r
		principal := payment - interest
		pay := payment

		// Absorb accumulated float drift in the last period.
		if period == in.Periods || principal >= balance {
			principal = balance
			pay = balance + interest
		}

		balance -= principal
		totalPaid += pay
		totalInterest += interest

		result.Schedule = append(result.Schedule, models.PeriodRecord{
			Period:    period,
			Payment:   round2(pay),
			Interest:  round2(interest),
			Principal: round2(principal),
			Remaining: round2(math.Max(balance, 0)),
		})

		if balance <= 0 {
			break
		}
	}

	result.Months = len(result.Schedule)
	result.TotalPaid = round2(totalPaid)
	result.TotalInterest = round2(totalInterest)
	return result, nil
}
