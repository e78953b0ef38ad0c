package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	UserIDHeader = "X-User-ID"
	UserIDCookie = "user_id"

	userIDKey       = "user_id"
	userIDCookieAge = 30 * 24 * 60 * 60
)

var validUserID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// UserID resolves the caller identity from the X-User-ID header or the
// user_id cookie. Anonymous callers get a fresh id in a cookie.
func UserID(secureCookie bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID := ctx.GetHeader(UserIDHeader)
		if userID == "" {
			userID, _ = ctx.Cookie(UserIDCookie)
		}

		if !validUserID.MatchString(userID) {
			userID = uuid.NewString()
			http.SetCookie(ctx.Writer, &http.Cookie{
				Name:     UserIDCookie,
				Value:    userID,
				MaxAge:   userIDCookieAge,
				Path:     "/",
				Secure:   secureCookie,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx.Set(userIDKey, userID)
		ctx.Next()
	}
}

// GetUserID returns the identity stored by UserID.
func GetUserID(ctx *gin.Context) string {
	return ctx.GetString(userIDKey)
}
