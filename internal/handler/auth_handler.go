package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/Keril-png/hw05-final/internal/form"
	"github.com/Keril-png/hw05-final/internal/middleware"
	"github.com/Keril-png/hw05-final/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc      *service.UserService
	loginURL string
}

func NewAuthHandler(svc *service.UserService, loginURL string) *AuthHandler {
	return &AuthHandler{svc: svc, loginURL: loginURL}
}

// safeNext 只允许站内相对路径
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	return next
}

func (h *AuthHandler) SignupForm(c *gin.Context) {
	render(c, http.StatusOK, "auth/signup.html", gin.H{"form": &form.SignupForm{}})
}

// Signup 注册后直接登录
func (h *AuthHandler) Signup(c *gin.Context) {
	var f form.SignupForm
	if err := c.ShouldBind(&f); err != nil {
		ServerError(c, err)
		return
	}
	if !f.Validate() {
		render(c, http.StatusOK, "auth/signup.html", gin.H{"form": &f})
		return
	}

	ctx := c.Request.Context()
	_, err := h.svc.Register(ctx, f.Username, f.Password1, f.Email)
	switch {
	case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrUsernameReserved):
		f.Errors.Add("username", err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		f.Errors.Add("email", err.Error())
	case err != nil:
		ServerError(c, err)
		return
	}
	if f.Errors.Any() {
		render(c, http.StatusOK, "auth/signup.html", gin.H{"form": &f})
		return
	}

	pair, err := h.svc.Login(ctx, f.Username, f.Password1)
	if err != nil {
		ServerError(c, err)
		return
	}
	if err = middleware.SaveSession(c, pair); err != nil {
		ServerError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) LoginForm(c *gin.Context) {
	render(c, http.StatusOK, "auth/login.html", gin.H{"form": &form.LoginForm{Next: c.Query("next")}})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var f form.LoginForm
	if err := c.ShouldBind(&f); err != nil {
		ServerError(c, err)
		return
	}
	if !f.Validate() {
		render(c, http.StatusOK, "auth/login.html", gin.H{"form": &f})
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), f.Username, f.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		f.Errors.Add("__all__", err.Error())
		render(c, http.StatusOK, "auth/login.html", gin.H{"form": &f})
		return
	}
	if err != nil {
		ServerError(c, err)
		return
	}
	if err = middleware.SaveSession(c, pair); err != nil {
		ServerError(c, err)
		return
	}
	c.Redirect(http.StatusFound, safeNext(f.Next))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if id := middleware.CurrentUserID(c); id != 0 {
		if err := h.svc.Logout(c.Request.Context(), id); err != nil {
			ServerError(c, err)
			return
		}
	}
	middleware.ClearSession(c)
	render(c, http.StatusOK, "auth/logged_out.html", nil)
}

func (h *AuthHandler) PasswordChangeForm(c *gin.Context) {
	render(c, http.StatusOK, "auth/password_change.html", gin.H{"form": &form.PasswordChangeForm{}})
}

// PasswordChange 改完密码需要重新登录
func (h *AuthHandler) PasswordChange(c *gin.Context) {
	var f form.PasswordChangeForm
	if err := c.ShouldBind(&f); err != nil {
		ServerError(c, err)
		return
	}
	if !f.Validate() {
		render(c, http.StatusOK, "auth/password_change.html", gin.H{"form": &f})
		return
	}
	err := h.svc.ChangePassword(c.Request.Context(), middleware.CurrentUserID(c), f.OldPassword, f.NewPassword1)
	if errors.Is(err, service.ErrWrongPassword) {
		f.Errors.Add("old_password", err.Error())
		render(c, http.StatusOK, "auth/password_change.html", gin.H{"form": &f})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	middleware.ClearSession(c)
	c.Redirect(http.StatusFound, h.loginURL)
}

func (h *AuthHandler) PasswordResetForm(c *gin.Context) {
	render(c, http.StatusOK, "auth/password_reset.html", gin.H{"form": &form.PasswordResetForm{}})
}

// PasswordReset 无论邮箱是否存在都跳到输入验证码的页面
func (h *AuthHandler) PasswordReset(c *gin.Context) {
	var f form.PasswordResetForm
	if err := c.ShouldBind(&f); err != nil {
		ServerError(c, err)
		return
	}
	if !f.Validate() {
		render(c, http.StatusOK, "auth/password_reset.html", gin.H{"form": &f})
		return
	}
	if err := h.svc.SendResetCode(c.Request.Context(), f.Email); err != nil {
		ServerError(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/auth/password_reset/confirm/?email="+url.QueryEscape(f.Email))
}

func (h *AuthHandler) PasswordResetConfirmForm(c *gin.Context) {
	render(c, http.StatusOK, "auth/password_reset_confirm.html", gin.H{
		"form": &form.PasswordResetConfirmForm{Email: c.Query("email")},
	})
}

func (h *AuthHandler) PasswordResetConfirm(c *gin.Context) {
	var f form.PasswordResetConfirmForm
	if err := c.ShouldBind(&f); err != nil {
		ServerError(c, err)
		return
	}
	if !f.Validate() {
		render(c, http.StatusOK, "auth/password_reset_confirm.html", gin.H{"form": &f})
		return
	}
	err := h.svc.ResetPassword(c.Request.Context(), f.Email, f.Code, f.NewPassword1)
	if errors.Is(err, service.ErrCodeMismatch) || errors.Is(err, service.ErrNotFound) {
		f.Errors.Add("code", "The code is invalid or has expired.")
		render(c, http.StatusOK, "auth/password_reset_confirm.html", gin.H{"form": &f})
		return
	}
	if err != nil {
		ServerError(c, err)
		return
	}
	c.Redirect(http.StatusFound, h.loginURL)
}
