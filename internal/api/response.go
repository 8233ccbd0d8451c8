package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"styleswap/internal/styleswap"
)

const msgInternal = "Something went wrong. Please try again."

// respondError writes the JSON error body for err. Internal failures are
// logged and replaced with a generic message.
func respondError(c *gin.Context, err error) {
	var verr *styleswap.ValidationError
	var aerr *styleswap.AuthError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, styleswap.ErrDuplicateEnrollment):
		c.JSON(http.StatusConflict, gin.H{"error": "You have already joined the Partner Program."})
	case errors.Is(err, styleswap.ErrReferralCodeTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Could not reserve a referral code. Please try again."})
	case errors.As(err, &aerr):
		c.JSON(http.StatusUnauthorized, gin.H{"error": aerr.UserMessage()})
	case errors.Is(err, styleswap.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		logger(c).Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}

func logger(c *gin.Context) *zap.Logger {
	if app, ok := c.Get("app"); ok {
		if a, ok := app.(*App); ok && a.Log != nil {
			return a.Log
		}
	}
	return zap.NewNop()
}

type Paginated[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []T    `json:"results"`
}

// pageParams reads page and size from the query, answering 400 on bad input.
func pageParams(c *gin.Context) (page int, size int, ok bool) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return 0, 0, false
	}
	size, err = strconv.Atoi(c.DefaultQuery("size", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid size"})
		return 0, 0, false
	}
	if size < 1 || size > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "maximum size is 100"})
		return 0, 0, false
	}
	return page, size, true
}

func paginate[T any](items []T, page int, size int, path string) Paginated[T] {
	paginated := Paginated[T]{Count: len(items), Results: []T{}}
	start := (page - 1) * size
	if start >= len(items) {
		return paginated
	}
	end := start + size
	if end < len(items) {
		paginated.Next = fmt.Sprintf("%s?page=%d&size=%d", path, page+1, size)
	} else {
		end = len(items)
	}
	if page > 1 {
		paginated.Previous = fmt.Sprintf("%s?page=%d&size=%d", path, page-1, size)
	}
	paginated.Results = items[start:end]
	return paginated
}
