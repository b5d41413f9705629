package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	"taskboard/internal/apperr"
	"taskboard/internal/models"
)

const contextUserKey = "user"

// requireUser resolves the bearer token to a stored user and stores the
// identity on the request context.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			s.abortUnauthenticated(c, "authorization token is required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			s.abortUnauthenticated(c, "authorization header format must be Bearer {token}")
			return
		}

		userID, err := s.tokens.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			s.abortUnauthenticated(c, "invalid or expired token")
			return
		}

		user, err := s.users.GetUser(c.Request.Context(), userID)
		if err != nil {
			if apperr.CodeOf(err) == apperr.CodeNotFound {
				s.abortUnauthenticated(c, "user not found")
				return
			}
			s.respondError(c, err)
			c.Abort()
			return
		}

		c.Set(contextUserKey, user.Summary())
		c.Next()
	}
}

func (s *Server) abortUnauthenticated(c *gin.Context, msg string) {
	s.respondError(c, apperr.New(apperr.CodeUnauthenticated, msg))
	c.Abort()
}

// currentUser returns the identity set by requireUser.
func currentUser(c *gin.Context) (models.UserSummary, bool) {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return models.UserSummary{}, false
	}
	user, ok := v.(models.UserSummary)
	return user, ok
}

// requesterID returns the current user id or aborts with 401.
func (s *Server) requesterID(c *gin.Context) (int64, bool) {
	user, ok := currentUser(c)
	if !ok {
		s.abortUnauthenticated(c, "user not authenticated")
		return 0, false
	}
	return user.ID, true
}
