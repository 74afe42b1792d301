// Package storage provides the data persistence layer for merged ROFR contracts.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/rofr-ledger/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidContract  = errors.New("invalid contract")
	ErrInvalidResult    = errors.New("invalid result")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateContract checks the invariants a stored contract must satisfy.
func validateContract(c *model.ContractEntry) error {
	if c == nil {
		return fmt.Errorf("%w: contract", ErrNilParameter)
	}
	if strings.TrimSpace(c.Username) == "" {
		return fmt.Errorf("%w: missing username", ErrInvalidContract)
	}
	if c.SentDate.IsZero() {
		return fmt.Errorf("%w: missing sent date", ErrInvalidContract)
	}
	if !c.PricePerPoint.IsPositive() {
		return fmt.Errorf("%w: price per point must be positive", ErrInvalidContract)
	}
	if c.Points <= 0 {
		return fmt.Errorf("%w: points must be positive", ErrInvalidContract)
	}
	if !c.Result.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidResult, c.Result)
	}
	if c.Result.IsTerminal() != c.HasResultDate() {
		return fmt.Errorf("%w: result %s with result date present=%t", ErrInvalidContract, c.Result, c.HasResultDate())
	}
	return nil
}

// validateDateRange ensures from is not after to when both are set.
func validateDateRange(from, to *time.Time) error {
	if from != nil && to != nil && from.After(*to) {
		return ErrInvalidDateRange
	}
	return nil
}
