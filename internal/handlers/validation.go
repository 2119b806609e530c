package handlers

import (
	"encoding/json"

	"familybank/internal/money"
	"familybank/internal/validator"
)

// parseAmount converts a validated request amount into minor units.
func parseAmount(field string, raw json.Number) (int64, error) {
	amount, err := money.ParseMinor(raw.String())
	if err != nil {
		return 0, validator.FieldErrors{field: "must be an amount with at most two decimals"}
	}
	return amount, nil
}

// parseOptionalAmount treats a missing amount as zero and allows zero.
func parseOptionalAmount(field string, raw json.Number) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	amount, err := parseAmount(field, raw)
	if err != nil {
		return 0, err
	}
	if amount < 0 {
		return 0, validator.FieldErrors{field: "must not be negative"}
	}
	return amount, nil
}
