package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"podreseller_back_end/internal/apperr"
	"podreseller_back_end/internal/utils"
)

type Issuer interface {
	Issue(email, name string) (string, error)
}

type Handler struct {
	tokens Issuer
}

func NewHandler(tokens Issuer) *Handler {
	return &Handler{tokens: tokens}
}

// identity is what the client-side identity provider hands us after sign-in.
type identity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Token handles POST /jwt.
func (h *Handler) Token(c *gin.Context) {
	var in identity
	if err := c.ShouldBindJSON(&in); err != nil {
		_ = c.Error(apperr.BadRequest("invalid identity payload"))
		return
	}

	token, err := h.tokens.Issue(in.Email, in.Name)
	if errors.Is(err, utils.ErrMissingEmail) {
		_ = c.Error(apperr.BadRequest("email is required"))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
