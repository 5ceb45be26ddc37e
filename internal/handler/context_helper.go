package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/barangay-api/internal/middleware"
	"github.com/noah-isme/barangay-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// pagingFromQuery reads page and page_size; invalid values fall back to the
// service defaults.
func pagingFromQuery(c *gin.Context) (page, size int) {
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		size = v
	}
	return page, size
}

// statusesFromQuery splits a comma separated ?status= value.
func statusesFromQuery[S ~string](c *gin.Context) []S {
	raw := c.Query("status")
	if raw == "" {
		return nil
	}
	var out []S
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, S(part))
		}
	}
	return out
}
