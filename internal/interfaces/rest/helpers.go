package rest

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voltfield/backend/pkg/auth"
	"github.com/voltfield/backend/pkg/constants"
	"github.com/voltfield/backend/pkg/errors"
)

// GetUserFromContext extracts the authenticated user from gin.Context
func GetUserFromContext(c *gin.Context) *auth.UserSession {
	userInterface, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil
	}

	user, ok := userInterface.(auth.UserSession)
	if !ok {
		return nil
	}
	return &user
}

// RespondData sends the success envelope: { success: true, data: ... }
func RespondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		constants.ResponseSuccess: true,
		constants.ResponseData:    data,
	})
}

// RespondAppError sends a standardised JSON error response using pkg/errors
func RespondAppError(c *gin.Context, err error) {
	status := errors.GetHTTPStatus(err)

	if status >= 500 {
		log.Printf("❌ ERROR [%d] %s %s: %s", status, c.Request.Method, c.Request.URL.Path, err.Error())
	}

	c.JSON(status, gin.H{
		constants.ResponseSuccess: false,
		constants.ResponseError: gin.H{
			"code":    errors.GetErrorCode(err),
			"message": err.Error(),
		},
	})
}

// BindJSON binds JSON and returns true if successful. If failed, it sends bad request error.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondAppError(c, errors.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

// HandleGet executes a read action and wraps the result in the success envelope
func HandleGet(c *gin.Context, action func() (interface{}, error)) {
	result, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		constants.ResponseSuccess: true,
		constants.ResponseData:    result,
	})
}

// HandleCreate is HandleGet with a 201 status for newly created resources
func HandleCreate(c *gin.Context, action func() (interface{}, error)) {
	result, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		constants.ResponseSuccess: true,
		constants.ResponseData:    result,
	})
}
