package handler

import (
	"errors"

	"drainwatch/backend/internal/apperror"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error   apperror.Kind `json:"error"`
	Message string        `json:"message"`
	Field   string        `json:"field,omitempty"`
}

// respondError writes err as the JSON error body. Internal causes are logged
// and replaced by a generic message.
func (h *Handler) respondError(c *gin.Context, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.Internal(err)
	}
	if appErr.Kind == apperror.KindInternal {
		h.Log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		appErr = apperror.ErrInternal
	}
	c.AbortWithStatusJSON(apperror.HTTPStatus(appErr.Kind), errorResponse{
		Error:   appErr.Kind,
		Message: appErr.Message,
		Field:   appErr.Field,
	})
}

func badBody() error {
	return apperror.Validation("body", "request body must be valid JSON")
}
