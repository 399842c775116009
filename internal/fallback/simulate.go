// Package fallback reconstructs server-shaped calculation responses locally
// when both the upstream and the cache fail. Only a fixed table of POST
// endpoints is simulatable; everything else stays an explicit offline error
// so the UI can tell "computed locally" from "truly unavailable".
package fallback

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bobmcallan/payoff/internal/amortize"
	"github.com/bobmcallan/payoff/internal/models"
)

// Handler simulates one endpoint from a parsed request body.
type Handler func(body []byte) *models.Response

// Table maps endpoint paths to local simulation handlers.
type Table struct {
	handlers map[string]Handler
}

// NewTable builds the simulation table for the two core calculators.
func NewTable() *Table {
	t := &Table{handlers: make(map[string]Handler)}
	t.handlers["/api/calculate/credit-card"] = simulateCreditCard
	t.handlers["/api/calculate/student-loan"] = simulateStudentLoan
	return t
}

// CanSimulate returns true if the path has a local fallback.
func (t *Table) CanSimulate(path string) bool {
	_, ok := t.handlers[path]
	return ok
}

// Simulate runs the local fallback for a path. ok is false when the path
// has no simulation entry.
func (t *Table) Simulate(path string, body []byte) (resp *models.Response, ok bool) {
	h, ok := t.handlers[path]
	if !ok {
		return nil, false
	}
	return h(body), true
}

func simulateCreditCard(body []byte) *models.Response {
	var req models.CreditCardRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid request body")
	}

	result, err := amortize.Amortize(models.LoanInput{
		Principal:     req.Balance,
		AnnualRatePct: req.APR,
		Mode:          models.ModeFixedPayment,
		Payment:       req.MonthlyPayment,
	})
	if err != nil {
		var tooLow *models.PaymentTooLowError
		if errors.As(err, &tooLow) {
			// Same shape as the remote validation response.
			return jsonResponse(http.StatusOK, models.CalculationError{
				Error:      tooLow.Error(),
				MinPayment: tooLow.MinPayment,
				Offline:    true,
			})
		}
		return errorResponse(http.StatusBadRequest, err.Error())
	}

	return jsonResponse(http.StatusOK, models.CreditCardResponse{
		Months:        result.Months,
		TotalPaid:     result.TotalPaid,
		TotalInterest: result.TotalInterest,
		Schedule:      result.Schedule,
		Offline:       true,
	})
}

func simulateStudentLoan(body []byte) *models.Response {
	var req models.StudentLoanRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid request body")
	}

	result, err := amortize.Amortize(models.LoanInput{
		Principal:     req.Principal,
		AnnualRatePct: req.APR,
		Mode:          models.ModeFixedTerm,
		Periods:       req.TermMonths,
	})
	if err != nil {
		return errorResponse(http.StatusBadRequest, err.Error())
	}

	return jsonResponse(http.StatusOK, models.StudentLoanResponse{
		MonthlyPayment: result.MonthlyPayment,
		TotalPaid:      result.TotalPaid,
		TotalInterest:  result.TotalInterest,
		Schedule:       result.Schedule,
		Offline:        true,
	})
}

// Unavailable synthesizes the 503 body for an offline request with no
// local fallback.
func Unavailable(path string) *models.Response {
	return jsonResponse(http.StatusServiceUnavailable, models.CalculationError{
		Error:   "service unavailable offline: " + path,
		Offline: true,
	})
}

func jsonResponse(status int, v any) *models.Response {
	body, err := json.Marshal(v)
	if err != nil {
		// Marshal of our own wire structs cannot fail; keep a valid body anyway.
		body = []byte(`{"error":"internal encoding failure","offline":true}`)
		status = http.StatusInternalServerError
	}
	return &models.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       body,
	}
}

func errorResponse(status int, msg string) *models.Response {
	return jsonResponse(status, models.CalculationError{Error: msg, Offline: true})
}
