// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/neonarte/neon-backend/internal/config"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/pkg/auth"
)

const actorKey = "actor"

// AuthMiddleware creates JWT authentication middleware. The caller's id and
// role are read from the access token and stored as a user.Actor.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			AbortWithError(c, apperror.Unauthenticated("Se requiere autenticación"))
			return
		}

		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if tokenString == "" {
			AbortWithError(c, apperror.Unauthenticated("Formato de autorización inválido"))
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			AbortWithError(c, apperror.Unauthenticated("Token inválido o vencido"))
			return
		}

		role := user.Role(claims.Role)
		if !role.Valid() {
			AbortWithError(c, apperror.Unauthenticated("Token inválido o vencido"))
			return
		}

		c.Set(actorKey, user.Actor{ID: claims.UserID, Role: role})
		c.Set("user_email", claims.Email)
		c.Next()
	}
}

// OptionalAuthMiddleware sets the actor when a valid access token is sent
// and lets anonymous requests through otherwise.
func OptionalAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	jwtManager := auth.NewJWTManager(cfg)

	return func(c *gin.Context) {
		tokenString := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err == nil && user.Role(claims.Role).Valid() {
			c.Set(actorKey, user.Actor{ID: claims.UserID, Role: user.Role(claims.Role)})
		}
		c.Next()
	}
}

// RequireRole rejects callers whose role is below required. It must run
// after AuthMiddleware.
func RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActorFromContext(c)
		if !ok {
			AbortWithError(c, apperror.Unauthenticated("Se requiere autenticación"))
			return
		}
		if err := actor.Require(required); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// GetActorFromContext returns the authenticated caller
func GetActorFromContext(c *gin.Context) (user.Actor, bool) {
	v, exists := c.Get(actorKey)
	if !exists {
		return user.Actor{}, false
	}
	actor, ok := v.(user.Actor)
	return actor, ok
}

// AbortWithError writes the error envelope and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Persistence("unclassified", err)
	}
	_ = c.Error(err)

	body := gin.H{"code": appErr.Kind, "message": appErr.Message}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	c.AbortWithStatusJSON(apperror.HTTPStatus(appErr.Kind), gin.H{"error": body})
}
