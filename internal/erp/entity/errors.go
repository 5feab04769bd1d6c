package entity

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error codes returned by the stock core.
const (
	CodeInvalidQuantity        = "INVALID_QUANTITY"
	CodeInsufficientAvailable  = "INSUFFICIENT_AVAILABLE"
	CodeInsufficientReserved   = "INSUFFICIENT_RESERVED"
	CodeInsufficientTotal      = "INSUFFICIENT_TOTAL"
	CodeInsufficientPlan       = "INSUFFICIENT_PLAN"
	CodeMissingRecipe          = "MISSING_RECIPE"
	CodeOverProduction         = "OVER_PRODUCTION"
	CodeNonDecreasingViolation = "NON_DECREASING_VIOLATION"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeLocked                 = "LOCKED"
	CodeAlreadyStorno          = "ALREADY_STORNO"
	CodeNotFound               = "NOT_FOUND"
	CodeWrongProduct           = "WRONG_PRODUCT"
	CodeQCFailed               = "QC_FAILED"
	CodeAlreadyShipped         = "ALREADY_SHIPPED"
	CodeNotInspected           = "NOT_INSPECTED"
	CodeAlreadyUsed            = "ALREADY_USED"
	CodeUnassignedSerial       = "UNASSIGNED_SERIAL"
	CodeCyclicBOM              = "CYCLIC_BOM"
	CodeValidation             = "VALIDATION"
)

// Sentinels for errors.Is. A *DomainError matches any sentinel with the same Code.
var (
	ErrInvalidQuantity        = &DomainError{Code: CodeInvalidQuantity}
	ErrInsufficientAvailable  = &DomainError{Code: CodeInsufficientAvailable}
	ErrInsufficientReserved   = &DomainError{Code: CodeInsufficientReserved}
	ErrInsufficientTotal      = &DomainError{Code: CodeInsufficientTotal}
	ErrInsufficientPlan       = &DomainError{Code: CodeInsufficientPlan}
	ErrMissingRecipe          = &DomainError{Code: CodeMissingRecipe}
	ErrOverProduction         = &DomainError{Code: CodeOverProduction}
	ErrNonDecreasingViolation = &DomainError{Code: CodeNonDecreasingViolation}
	ErrInvalidTransition      = &DomainError{Code: CodeInvalidTransition}
	ErrLocked                 = &DomainError{Code: CodeLocked}
	ErrAlreadyStorno          = &DomainError{Code: CodeAlreadyStorno}
	ErrNotFound               = &DomainError{Code: CodeNotFound}
	ErrWrongProduct           = &DomainError{Code: CodeWrongProduct}
	ErrQCFailed               = &DomainError{Code: CodeQCFailed}
	ErrAlreadyShipped         = &DomainError{Code: CodeAlreadyShipped}
	ErrNotInspected           = &DomainError{Code: CodeNotInspected}
	ErrAlreadyUsed            = &DomainError{Code: CodeAlreadyUsed}
	ErrUnassignedSerial       = &DomainError{Code: CodeUnassignedSerial}
	ErrCyclicBOM              = &DomainError{Code: CodeCyclicBOM}
	ErrValidation             = &DomainError{Code: CodeValidation}
)

// Shortage 原料缺口
type Shortage struct {
	IngredientID   string          `json:"ingredient_id"`
	IngredientCode string          `json:"ingredient_code"`
	Ingredient     string          `json:"ingredient"`
	Required       decimal.Decimal `json:"required"`
	Available      decimal.Decimal `json:"available"`
}

// DomainError is a business rule failure. It is detected before any write so the
// surrounding transaction rolls back with no side effects.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	Shortages       []Shortage `json:"shortages,omitempty"`
	ExpectedProduct *ItemRef   `json:"expected_product,omitempty"`
}

// ItemRef identifies a stock item in error payloads
type ItemRef struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

// Is matches on Code so wrapped errors compare against the sentinels.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a DomainError with a formatted message
func NewDomainError(code, format string, args ...interface{}) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewShortageError reports every ingredient that cannot cover its requirement.
func NewShortageError(shortages []Shortage) *DomainError {
	msg := "insufficient ingredients"
	if len(shortages) > 0 {
		s := shortages[0]
		msg = fmt.Sprintf("insufficient ingredient %s: required %s, available %s", s.Ingredient, s.Required, s.Available)
		if len(shortages) > 1 {
			msg = fmt.Sprintf("%s (and %d more)", msg, len(shortages)-1)
		}
	}
	return &DomainError{Code: CodeInsufficientAvailable, Message: msg, Shortages: shortages}
}

// AsDomainError unwraps err into a *DomainError when possible
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
