package middleware

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/webp-converter/internal/apperror"
	"github.com/phambaophuc/webp-converter/internal/models"
)

// RequireMultipart rejects requests whose body is not multipart/form-data.
func RequireMultipart() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		mediaType, _, err := mime.ParseMediaType(ctx.GetHeader("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, models.ActionResult{
				Error: []*apperror.Error{
					apperror.BadRequest("Invalid request", "Content-Type must be multipart/form-data"),
				},
			})
			return
		}
		ctx.Next()
	}
}
