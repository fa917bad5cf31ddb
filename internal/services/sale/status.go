package sale

import (
	"smartcoffee/internal/models"
	"smartcoffee/internal/services/gateway"
)

// StatusForCharge maps a processor status onto a terminal sale status.
// It returns "" when the sale must stay as it is.
func StatusForCharge(status, detail string) string {
	switch status {
	case gateway.StatusApproved:
		return models.SaleStatusApproved
	case gateway.StatusRejected:
		return models.SaleStatusRejected
	case gateway.StatusCancelled:
		if detail == gateway.StatusDetailExpired {
			return models.SaleStatusExpired
		}
		return models.SaleStatusCancelled
	}
	return ""
}
