// internal/interfaces/http/handlers/response.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/neonarte/neon-backend/internal/domain/user"
	"github.com/neonarte/neon-backend/internal/interfaces/http/middleware"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
	"github.com/neonarte/neon-backend/internal/pkg/logger"
	"github.com/neonarte/neon-backend/internal/pkg/validate"
	"github.com/sirupsen/logrus"
)

// respondError maps err to its status and writes the error envelope. The
// wrapped cause of a 5xx is logged and never sent to the client.
func respondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	if apperror.HTTPStatus(kind) >= http.StatusInternalServerError {
		logger.Channel(logger.ChannelHTTP).WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.RequestIDKey),
			"path":       c.FullPath(),
			"kind":       kind,
		}).WithError(err).Error("request failed")
	}
	middleware.AbortWithError(c, err)
}

func respondOK(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, gin.H{
		"message": message,
		"data":    data,
	})
}

// currentActor returns the authenticated caller, answering 401 when the
// route was not behind AuthMiddleware.
func currentActor(c *gin.Context) (user.Actor, bool) {
	actor, ok := middleware.GetActorFromContext(c)
	if !ok {
		respondError(c, apperror.Unauthenticated("Se requiere autenticación"))
	}
	return actor, ok
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		respondError(c, apperror.InvalidField(param, "identificador inválido"))
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, validate.Binding(err))
		return false
	}
	return true
}
