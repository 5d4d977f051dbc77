// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
	)
}

// accountView is what a client sees of its own account.
type accountView struct {
	Email  string   `json:"email"`
	Role   string   `json:"role"`
	Labels []string `json:"labels,omitempty"`
	Login  string   `json:"login,omitempty"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		s.fail(c, errBadRequest(err))
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		s.fail(c, errBadRequest(err))
		return
	}
	a, token, err := s.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	maxAge := int(s.accounts.Tokens().Duration.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", strings.HasPrefix(s.baseURL, "https://"), true)
	c.JSON(http.StatusOK, accountView{Email: a.Email, Role: string(a.Role), Labels: a.Labels, Login: a.Login})
}

func (s *Server) logout(c *gin.Context) {
	if a := current(c); a != nil {
		if err := s.accounts.Logout(c.Request.Context(), a.Email); err != nil {
			s.fail(c, err)
			return
		}
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}
