package httpserver

import (
	"errors"
	"net/http"

	"gadget-storefront/internal/checkout"
	"gadget-storefront/internal/coupon"
	"gadget-storefront/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps service errors onto HTTP statuses. Everything not listed is
// a 500 and its message is not exposed.
func statusFor(err error) int {
	switch {
	case errors.Is(err, coupon.ErrEmptyCode),
		errors.Is(err, checkout.ErrAddressIncomplete),
		errors.Is(err, checkout.ErrInvalidPhone),
		errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrSubmissionInProgress),
		errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case coupon.IsRejection(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, coupon.ErrUnavailable),
		errors.Is(err, coupon.ErrApplyFailed),
		errors.Is(err, checkout.ErrOrderFailed),
		errors.Is(err, checkout.ErrMissingInvoice),
		errors.Is(err, domain.ErrBackendUnsuccessful):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		msg = "internal error"
	}
	c.JSON(status, gin.H{"message": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}
