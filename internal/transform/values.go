package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// ValueFunc converts one field value. A returned error means the value was
// left unchanged and the caller should warn.
type ValueFunc func(models.Value) (models.Value, error)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"02-Jan-2006",
	"02-JAN-06",
}

// FormatDate normalises a date or date string to a calendar day (yyyy-MM-dd at midnight UTC)
func FormatDate(v models.Value) (models.Value, error) {
	if v.IsNull() {
		return v, nil
	}
	if t, ok := v.AsDate(); ok {
		return models.Date(day(t)), nil
	}
	s, ok := v.AsString()
	if !ok {
		return v, fmt.Errorf("cannot format %s value %s as date", v.Kind(), v)
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.Date(day(t)), nil
		}
	}
	return v, fmt.Errorf("unrecognised date %q", s)
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ToDecimal converts numbers and numeric strings; anything else is zero
func ToDecimal(v models.Value) decimal.Decimal {
	if d, ok := v.AsNumber(); ok {
		return d
	}
	if s, ok := v.AsString(); ok {
		if d, err := decimal.NewFromString(strings.TrimSpace(s)); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// RoundDecimal returns a ValueFunc rounding numbers half-up to places digits
func RoundDecimal(places int32) ValueFunc {
	return func(v models.Value) (models.Value, error) {
		if v.IsNull() {
			return v, nil
		}
		if d, ok := v.AsNumber(); ok {
			return models.Number(d.Round(places)), nil
		}
		if s, ok := v.AsString(); ok {
			d, err := decimal.NewFromString(strings.TrimSpace(s))
			if err != nil {
				return v, fmt.Errorf("cannot round %q: %w", s, err)
			}
			return models.Number(d.Round(places)), nil
		}
		return v, fmt.Errorf("cannot round %s value", v.Kind())
	}
}

// StatusCodes maps numeric status codes to their names
var StatusCodes = map[string]string{
	"1": "APPROVED",
	"2": "IN_PROGRESS",
	"3": "COMPLETED",
	"4": "CANCELLED",
}

// MapStatusCode translates a status code through StatusCodes; unknown codes pass through
func MapStatusCode(v models.Value) (models.Value, error) {
	if v.IsNull() {
		return v, nil
	}
	if name, ok := StatusCodes[v.Canonical()]; ok {
		return models.String(name), nil
	}
	return v, nil
}
