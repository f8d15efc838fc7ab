// Package handler exposes the query services over HTTP. Handlers only bind
// requests and translate service results to status codes; no domain logic
// lives here.
package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clove/commerce-core/internal/async"
	"github.com/clove/commerce-core/internal/resolver"
	"github.com/clove/commerce-core/internal/service"
)

func writeError(c *gin.Context, err error) {
	var ve *service.ValidationError
	var pf *service.PartialFailureError

	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &pf):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     pf.Error(),
			"order_id":  pf.OrderID,
			"persisted": pf.Persisted,
			"failed":    pf.Failed,
		})
	case errors.Is(err, async.ErrBusy), errors.Is(err, async.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server busy, retry later"})
	case errors.Is(err, async.ErrTimedOut):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "operation timed out"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// includeFrom parses the ?include= selector, e.g. "items", "items,products",
// "orders".
func includeFrom(c *gin.Context) resolver.Include {
	var inc resolver.Include
	for _, part := range strings.Split(c.Query("include"), ",") {
		switch strings.TrimSpace(part) {
		case "items":
			inc.Items = true
		case "products":
			inc.Items = true
			inc.ItemProducts = true
		case "orders":
			inc.UserOrders = true
		}
	}
	return inc
}
