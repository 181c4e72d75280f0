package server

import (
	"errors"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"
	"yatube/internal/view"

	"github.com/gofiber/fiber/v2"
)

const (
	signupPage       = "users/signup.html"
	loginPage        = "users/login.html"
	changePage       = "users/change.html"
	resetPage        = "users/reset.html"
	resetConfirmPage = "users/reset_confirm.html"
)

// SignupForm handles GET /auth/signup/
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return s.render(c, signupPage, fiber.Map{"form": view.NewForm(nil)})
}

// Signup handles POST /auth/signup/. The new account is not logged in.
func (s *Server) Signup(c *fiber.Ctx) error {
	values := formValues(c, "first_name", "last_name", "username", "email", "password1", "password2")
	_, err := s.authService.Signup(c.UserContext(), service.SignupInput{
		FirstName: values["first_name"],
		LastName:  values["last_name"],
		Username:  values["username"],
		Email:     values["email"],
		Password1: values["password1"],
		Password2: values["password2"],
	})
	if fields, ok := models.FormErrorsOf(err); ok {
		return s.render(c, signupPage, fiber.Map{"form": view.NewForm(values).WithErrors(fields)})
	}
	if err != nil {
		return err
	}
	return c.Redirect("/", fiber.StatusFound)
}

// LoginForm handles GET /auth/login/
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.render(c, loginPage, fiber.Map{
		"form": view.NewForm(nil),
		"next": c.Query("next"),
	})
}

// Login handles POST /auth/login/
func (s *Server) Login(c *fiber.Ctx) error {
	values := formValues(c, "username", "password")
	next := c.FormValue("next")

	user, err := s.authService.Authenticate(c.UserContext(), values["username"], values["password"])
	if fields, ok := models.FormErrorsOf(err); ok {
		return s.render(c, loginPage, fiber.Map{
			"form": view.NewForm(values).WithErrors(fields),
			"next": next,
		})
	}
	if err != nil {
		return err
	}

	if err := s.startSession(c, user); err != nil {
		return err
	}
	middleware.Logger.InfoContext(c.UserContext(), "user logged in", "user_id", user.ID)

	target, ok := safeNext(next)
	if !ok {
		target = "/"
	}
	return c.Redirect(target, fiber.StatusFound)
}

// Logout handles GET and POST /auth/logout/
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims, ok := c.Locals("session").(*middleware.SessionClaims); ok {
		if err := s.sessions.Revoke(c.UserContext(), claims); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to revoke session", "error", err)
		}
	}
	s.sessions.ClearCookie(c)
	c.Locals(viewerLocal, nil)
	return s.render(c, "users/logout.html", nil)
}

// PasswordChangeForm handles GET /auth/change/
func (s *Server) PasswordChangeForm(c *fiber.Ctx) error {
	return s.render(c, changePage, fiber.Map{"form": view.NewForm(nil)})
}

// PasswordChange handles POST /auth/change/. The current session is
// re-issued for the new password; every other session ends.
func (s *Server) PasswordChange(c *fiber.Ctx) error {
	values := formValues(c, "old_password", "new_password1", "new_password2")
	user, err := s.authService.ChangePassword(c.UserContext(), viewer(c).ID, service.ChangePasswordInput{
		OldPassword:  values["old_password"],
		NewPassword1: values["new_password1"],
		NewPassword2: values["new_password2"],
	})
	if fields, ok := models.FormErrorsOf(err); ok {
		return s.render(c, changePage, fiber.Map{"form": view.NewForm(values).WithErrors(fields)})
	}
	if err != nil {
		return err
	}

	if claims, ok := c.Locals("session").(*middleware.SessionClaims); ok {
		_ = s.sessions.Revoke(c.UserContext(), claims)
	}
	if err := s.startSession(c, user); err != nil {
		return err
	}
	return c.Redirect("/auth/change/done/", fiber.StatusFound)
}

// PasswordChangeDone handles GET /auth/change/done/
func (s *Server) PasswordChangeDone(c *fiber.Ctx) error {
	return s.render(c, "users/change_done.html", nil)
}

// PasswordResetForm handles GET /auth/reset/
func (s *Server) PasswordResetForm(c *fiber.Ctx) error {
	return s.render(c, resetPage, fiber.Map{"form": view.NewForm(nil)})
}

// PasswordReset handles POST /auth/reset/. Whether the address is known is
// never revealed.
func (s *Server) PasswordReset(c *fiber.Ctx) error {
	values := formValues(c, "email")
	err := s.authService.RequestPasswordReset(c.UserContext(), values["email"])
	if fields, ok := models.FormErrorsOf(err); ok {
		return s.render(c, resetPage, fiber.Map{"form": view.NewForm(values).WithErrors(fields)})
	}
	if err != nil {
		return err
	}
	return c.Redirect("/auth/reset/done/", fiber.StatusFound)
}

// PasswordResetDone handles GET /auth/reset/done/
func (s *Server) PasswordResetDone(c *fiber.Ctx) error {
	return s.render(c, "users/reset_done.html", nil)
}

// PasswordResetConfirmForm handles GET /auth/reset/confirm/:uidb64/:token/
func (s *Server) PasswordResetConfirmForm(c *fiber.Ctx) error {
	_, err := s.authService.CheckResetToken(c.UserContext(), c.Params("uidb64"), c.Params("token"))
	if err != nil && !errors.Is(err, service.ErrInvalidResetLink) {
		return err
	}
	return s.render(c, resetConfirmPage, fiber.Map{
		"form":      view.NewForm(nil),
		"validlink": err == nil,
	})
}

// PasswordResetConfirm handles POST /auth/reset/confirm/:uidb64/:token/
func (s *Server) PasswordResetConfirm(c *fiber.Ctx) error {
	values := formValues(c, "new_password1", "new_password2")
	_, err := s.authService.ResetPassword(c.UserContext(), c.Params("uidb64"), c.Params("token"),
		values["new_password1"], values["new_password2"])
	switch fields, invalidForm := models.FormErrorsOf(err); {
	case errors.Is(err, service.ErrInvalidResetLink):
		return s.render(c, resetConfirmPage, fiber.Map{"form": view.NewForm(nil), "validlink": false})
	case invalidForm:
		return s.render(c, resetConfirmPage, fiber.Map{
			"form":      view.NewForm(values).WithErrors(fields),
			"validlink": true,
		})
	case err != nil:
		return err
	}
	return c.Redirect("/auth/reset/complete/", fiber.StatusFound)
}

// PasswordResetComplete handles GET /auth/reset/complete/
func (s *Server) PasswordResetComplete(c *fiber.Ctx) error {
	return s.render(c, "users/reset_complete.html", nil)
}

// startSession issues a session cookie bound to the user's current password.
func (s *Server) startSession(c *fiber.Ctx, user *models.User) error {
	token, expires, err := s.sessions.Issue(user.ID, s.authService.Fingerprint(user))
	if err != nil {
		return models.NewInternalError(err)
	}
	s.sessions.SetCookie(c, token, expires)
	return nil
}
