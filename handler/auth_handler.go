package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"knoword-api/common"
	"knoword-api/logger"
	"knoword-api/model"
	"knoword-api/service"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
)

// retryAfterSeconds is sent with 503 responses caused by an unreachable
// session backend.
const retryAfterSeconds = 5

type ISessionManager interface {
	Login(ctx context.Context, email, password string) (*model.LoginResult, error)
	Refresh(ctx context.Context, presented string) (*model.TokenPair, error)
	Logout(ctx context.Context, userID int) (int64, error)
}

type IAuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.User, error)
	VerifyEmail(ctx context.Context, token string) error
	CheckEmailAvailability(ctx context.Context, email string) (bool, error)
	CheckUsernameAvailability(ctx context.Context, username string) (bool, error)
}

type AuthHandler struct {
	accounts IAuthService
	sessions ISessionManager
	cookies  CookieConfig
}

func NewAuthHandler(accounts IAuthService, sessions ISessionManager, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{accounts: accounts, sessions: sessions, cookies: cookies}
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates an unverified account and sends a verification e-mail
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        user  body      model.RegisterRequest  true  "User registration info"
// @Success      201   {object}  model.UserSummary
// @Failure      400   {object}  common.AppError
// @Failure      409   {object}  common.AppError
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RegisterRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	user, err := h.accounts.Register(r.Context(), req)
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		return common.NewAppError(http.StatusConflict, "Email is already registered", nil)
	case errors.Is(err, service.ErrUsernameTaken):
		return common.NewAppError(http.StatusConflict, "Username is already taken", nil)
	case err != nil:
		return common.NewAppError(http.StatusInternalServerError, "Could not register user", err)
	}

	common.WriteJSON(w, http.StatusCreated, user.Summary())
	return nil
}

// VerifyEmail godoc
// @Summary      Verify an e-mail address
// @Tags         auth
// @Produce      json
// @Param        token  query     string  true  "Verification token"
// @Success      200    {object}  map[string]string
// @Failure      400    {object}  common.AppError
// @Router       /auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) *common.AppError {
	err := h.accounts.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	switch {
	case errors.Is(err, service.ErrInvalidVerificationToken):
		return common.NewAppError(http.StatusBadRequest, "Verification link is invalid or expired", nil)
	case err != nil:
		return common.NewAppError(http.StatusInternalServerError, "Could not verify email", err)
	}

	common.WriteJSON(w, http.StatusOK, map[string]string{"status": "email verified"})
	return nil
}

// CheckEmail godoc
// @Summary      Check whether an e-mail address is free
// @Tags         auth
// @Produce      json
// @Param        email  query     string  true  "E-mail address"
// @Success      200    {object}  model.AvailabilityResponse
// @Failure      400    {object}  common.AppError
// @Router       /auth/check-email [get]
func (h *AuthHandler) CheckEmail(w http.ResponseWriter, r *http.Request) *common.AppError {
	email := r.URL.Query().Get("email")
	if err := common.ValidateVar(email, "required,email"); err != nil {
		return common.NewAppError(http.StatusBadRequest, "A valid email query parameter is required", nil)
	}

	available, err := h.accounts.CheckEmailAvailability(r.Context(), email)
	if err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Could not check email", err)
	}
	common.WriteJSON(w, http.StatusOK, model.AvailabilityResponse{Available: available})
	return nil
}

// CheckUsername godoc
// @Summary      Check whether a username is free
// @Tags         auth
// @Produce      json
// @Param        username  query     string  true  "Username"
// @Success      200       {object}  model.AvailabilityResponse
// @Failure      400       {object}  common.AppError
// @Router       /auth/check-username [get]
func (h *AuthHandler) CheckUsername(w http.ResponseWriter, r *http.Request) *common.AppError {
	username := r.URL.Query().Get("username")
	if err := common.ValidateVar(username, "required,min=3,max=30,alphanum"); err != nil {
		return common.NewAppError(http.StatusBadRequest, "A valid username query parameter is required", nil)
	}

	available, err := h.accounts.CheckUsernameAvailability(r.Context(), username)
	if err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Could not check username", err)
	}
	common.WriteJSON(w, http.StatusOK, model.AvailabilityResponse{Available: available})
	return nil
}

// Login godoc
// @Summary      Log in
// @Description  Authenticates a user and sets the access_token and refresh_token cookies
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials  body      model.LoginRequest  true  "User credentials"
// @Success      200          {object}  model.LoginResult
// @Failure      400          {object}  common.AppError
// @Failure      401          {object}  common.AppError
// @Failure      503          {object}  common.AppError
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	result, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrAuthenticationFailed) {
			return common.NewAppError(http.StatusUnauthorized, "Invalid email or password", nil)
		}
		return h.backendError(w, "Could not log in", err)
	}

	h.cookies.setSessionCookies(w, result.Tokens.AccessToken, result.Tokens.RefreshToken)
	common.WriteJSON(w, http.StatusOK, result)
	return nil
}

// Refresh godoc
// @Summary      Rotate the refresh token
// @Description  Exchanges the live refresh token (cookie, bearer header or JSON body) for a new token pair.
// @Description  Presenting a stale token revokes the session.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      model.RefreshRequest  false  "Refresh token for clients without cookies"
// @Success      200   {object}  model.TokenPair
// @Failure      401   {object}  common.AppError
// @Failure      403   {object}  common.AppError
// @Failure      503   {object}  common.AppError
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	pair, err := h.sessions.Refresh(r.Context(), presentedRefreshToken(r))
	if err != nil {
		var status int
		switch {
		case errors.Is(err, service.ErrMissingToken),
			errors.Is(err, service.ErrInvalidOrExpiredToken),
			errors.Is(err, service.ErrTokenRevoked):
			status = http.StatusUnauthorized
		case errors.Is(err, service.ErrAccessDenied):
			status = http.StatusForbidden
		default:
			return h.backendError(w, "Could not refresh session", err)
		}
		h.cookies.clearSessionCookies(w)
		return common.NewAppError(status, err.Error(), nil)
	}

	h.cookies.setSessionCookies(w, pair.AccessToken, pair.RefreshToken)
	common.WriteJSON(w, http.StatusOK, pair)
	return nil
}

// Logout godoc
// @Summary      Log out
// @Description  Deletes the session record of the current user and clears the session cookies
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.LogoutResponse
// @Failure      401  {object}  common.AppError
// @Failure      503  {object}  common.AppError
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, ok := userIDFromContext(r)
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Invalid user ID in token", nil)
	}

	n, err := h.sessions.Logout(r.Context(), userID)
	if err != nil {
		return h.backendError(w, "Could not log out", err)
	}

	h.cookies.clearSessionCookies(w)
	common.WriteJSON(w, http.StatusOK, model.LogoutResponse{TokensRevoked: n})
	return nil
}

// backendError maps an unexpected service error. Store outages become a
// retriable 503 and leave the client's cookies alone.
func (h *AuthHandler) backendError(w http.ResponseWriter, message string, err error) *common.AppError {
	if errors.Is(err, service.ErrStoreUnavailable) {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		return common.NewAppError(http.StatusServiceUnavailable, "Service temporarily unavailable, try again later", err)
	}
	return common.NewAppError(http.StatusInternalServerError, message, err)
}

// presentedRefreshToken looks for the refresh token in the refresh_token
// cookie, then the Authorization header, then a JSON body.
func presentedRefreshToken(r *http.Request) string {
	if c, err := r.Cookie(RefreshTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if token := bearerToken(r); token != "" {
		return token
	}
	if r.Body == nil {
		return ""
	}

	var req model.RefreshRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 16<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Log.WithFields(logrus.Fields{
			"path":  r.URL.Path,
			"error": err.Error(),
		}).Debug("Ignoring undecodable refresh request body")
	}
	return req.RefreshToken
}
