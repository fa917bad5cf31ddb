package repositories

import "errors"

// Repository errors
var (
	ErrDosageNotFound = errors.New("dosage not found")
	ErrSaleNotFound   = errors.New("sale not found")
	ErrDuplicateSale  = errors.New("sale already exists")
	ErrSaleNotPending = errors.New("sale is not in the expected status")
)
