package users

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/princekumarofficial/winsome-service/internal/http/middleware"
	"github.com/princekumarofficial/winsome-service/internal/store/social"
	"github.com/princekumarofficial/winsome-service/internal/types/users"
	"github.com/princekumarofficial/winsome-service/internal/utils/jwt"
	"github.com/princekumarofficial/winsome-service/internal/utils/password"
	"github.com/princekumarofficial/winsome-service/internal/utils/response"
)

// SignUp handles user registration
// @Summary Register a new user
// @Description Register a new user with up to 5 interest tags
// @Tags users
// @Accept json
// @Produce json
// @Param user body users.SignUpRequest true "User registration details"
// @Success 201 {object} map[string]string "User created successfully"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 409 {object} response.Response "Username already taken"
// @Router /signup [post]
func SignUp(store *social.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var signupReq users.SignUpRequest

		err := json.NewDecoder(r.Body).Decode(&signupReq)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
			return
		} else if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// Validate request
		validate := validator.New()
		err = validate.Struct(signupReq)
		if err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		salt, err := password.NewSalt()
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to generate salt")))
			return
		}
		digest := password.Hash(signupReq.Password, salt)

		if err := store.Register(signupReq.Username, digest, salt, signupReq.Tags); err != nil {
			response.StoreError(w, err)
			return
		}
		slog.Info("User registered", slog.String("username", signupReq.Username))

		response.WriteJSON(w, http.StatusCreated, map[string]string{
			"username": signupReq.Username,
		})
	}
}

// Login handles user authentication
// @Summary Authenticate a user
// @Description Two-phase login: the salt is fetched for the user, the digest computed and checked, and a session token bound to a fresh connection id is returned together with the notification multicast coordinates
// @Tags users
// @Accept json
// @Produce json
// @Param user body users.LoginRequest true "User login details"
// @Success 200 {object} users.LoginResponse "User authenticated successfully"
// @Failure 401 {object} response.Response "Wrong credentials"
// @Failure 409 {object} response.Response "Already logged in"
// @Router /login [post]
func Login(store *social.Store, jwtSecret, multicast string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var loginReq users.LoginRequest

		err := json.NewDecoder(r.Body).Decode(&loginReq)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		validate := validator.New()
		err = validate.Struct(loginReq)
		if err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		salt, err := store.BeginLogin(loginReq.Username)
		if err != nil {
			response.StoreError(w, err)
			return
		}
		digest := password.Hash(loginReq.Password, salt)

		connectionID := uuid.NewString()
		username, err := store.Login(loginReq.Username, connectionID, digest)
		if err != nil {
			response.StoreError(w, err)
			return
		}

		// The token carries the canonical username, so every downstream
		// store and the notification hub see one identity per user no
		// matter how the client spelled the name.
		token, err := jwt.CreateToken(username, connectionID, jwtSecret)
		if err != nil {
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(errors.New("failed to generate token")))
			return
		}
		slog.Info("User logged in", slog.String("username", username))

		response.WriteJSON(w, http.StatusOK, users.LoginResponse{
			Token:     token,
			Multicast: multicast,
		})
	}
}

// Logout releases the session bound to the caller's connection id.
func Logout(store *social.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := middleware.GetUsernameFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}
		connectionID, _ := middleware.GetConnectionIDFromContext(r.Context())

		if err := store.Logout(username, connectionID); err != nil {
			response.StoreError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Logged out successfully", nil))
	}
}

// ListUsers returns every other user sharing at least one interest tag
// with the caller.
// @Summary List users with shared interests
// @Tags users
// @Security BearerAuth
// @Router /users [get]
func ListUsers(store *social.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := middleware.GetUsernameFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		shared, err := store.UsersWithSharedInterest(username)
		if err != nil {
			response.StoreError(w, err)
			return
		}

		infos := make([]users.UserInfo, 0, len(shared))
		for _, name := range shared {
			tags, err := store.TagsOf(name)
			if err != nil {
				continue
			}
			infos = append(infos, users.UserInfo{Username: name, Tags: tags})
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Users fetched successfully", infos))
	}
}

// FollowUser handles following a user
// @Summary Follow a user
// @Tags users
// @Security BearerAuth
// @Param username path string true "Username to follow"
// @Router /follow/{username} [post]
func FollowUser(store *social.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		follower, ok := middleware.GetUsernameFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		followed := r.PathValue("username")
		if followed == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("username is required")))
			return
		}

		created, err := store.Follow(follower, followed)
		if err != nil {
			response.StoreError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("User followed successfully", map[string]bool{
			"created": created,
		}))
	}
}

// UnfollowUser handles unfollowing a user
// @Summary Unfollow a user
// @Tags users
// @Security BearerAuth
// @Param username path string true "Username to unfollow"
// @Router /follow/{username} [delete]
func UnfollowUser(store *social.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		follower, ok := middleware.GetUsernameFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		followed := r.PathValue("username")
		if followed == "" {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("username is required")))
			return
		}

		removed, err := store.Unfollow(follower, followed)
		if err != nil {
			response.StoreError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("User unfollowed successfully", map[string]bool{
			"removed": removed,
		}))
	}
}

// Following lists the users the caller follows.
func Following(store *social.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := middleware.GetUsernameFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		following, err := store.Following(username)
		if err != nil {
			response.StoreError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Following fetched successfully", following))
	}
}

// Followers lists the users following the caller.
func Followers(store *social.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := middleware.GetUsernameFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		followers, err := store.Followers(username)
		if err != nil {
			response.StoreError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Followers fetched successfully", followers))
	}
}

// Wallet returns the caller's balance and transaction history
// @Summary Get wallet
// @Tags users
// @Security BearerAuth
// @Router /wallet [get]
func Wallet(store *social.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := middleware.GetUsernameFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		wallet, err := store.WalletOf(username)
		if err != nil {
			slog.Error("Failed to get wallet", slog.String("error", err.Error()), slog.String("username", username))
			response.StoreError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, wallet)
	}
}
