package posts

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/princekumarofficial/winsome-service/internal/http/middleware"
	"github.com/princekumarofficial/winsome-service/internal/store/content"
	"github.com/princekumarofficial/winsome-service/internal/types"
	"github.com/princekumarofficial/winsome-service/internal/utils/response"
)

// CreatePost handles publishing a new post
// @Summary Create a new post
// @Description Publish a post with a title of at most 20 characters and contents of at most 500
// @Tags posts
// @Accept json
// @Produce json
// @Param post body types.PostCreateRequest true "Post content"
// @Success 201 {object} map[string]int64 "Post created successfully"
// @Failure 400 {object} response.Response "Bad request"
// @Failure 401 {object} response.Response "Unauthorized"
// @Security BearerAuth
// @Router /posts [post]
func CreatePost(store *content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := middleware.GetUsernameFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		var req types.PostCreateRequest

		err := json.NewDecoder(r.Body).Decode(&req)
		if errors.Is(err, io.EOF) {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("request body cannot be empty")))
			return
		} else if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// Validate request
		validate := validator.New()
		err = validate.Struct(req)
		if err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		id, err := store.CreatePost(username, req.Title, req.Contents)
		if err != nil {
			response.StoreError(w, err)
			return
		}
		slog.Info("Post created", slog.Int64("post_id", id), slog.String("author", username))

		response.WriteJSON(w, http.StatusCreated, map[string]int64{"id": id})
	}
}

// Feed handles the posts feed endpoint
// @Summary Get the feed
// @Description Posts authored or rewon by every followed user
// @Tags posts
// @Security BearerAuth
// @Router /feed [get]
func Feed(store *content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := middleware.GetUsernameFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		feed, err := store.Feed(username)
		if err != nil {
			response.StoreError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Feed fetched successfully", feed))
	}
}

// Blog returns the caller's blog, or another user's when the path carries a
// username.
func Blog(store *content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := middleware.GetUsernameFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		if owner := r.PathValue("username"); owner != "" {
			username = owner
		}

		blog := store.Blog(username)
		response.WriteJSON(w, http.StatusOK, response.RequestOK("Blog fetched successfully", blog))
	}
}

// GetPost returns the full detail of one post.
func GetPost(store *content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := postID(w, r)
		if !ok {
			return
		}

		detail, err := store.GetPost(id)
		if err != nil {
			response.StoreError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, detail)
	}
}

// DeletePost removes a post; only the author may delete it.
// @Summary Delete a post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Router /posts/{id} [delete]
func DeletePost(store *content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := middleware.GetUsernameFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		id, ok := postID(w, r)
		if !ok {
			return
		}

		deleted, err := store.DeletePost(username, id)
		if err != nil {
			response.StoreError(w, err)
			return
		}
		if !deleted {
			response.WriteJSON(w, http.StatusForbidden, response.GeneralError(errors.New("only the author can delete a post")))
			return
		}
		slog.Info("Post deleted", slog.Int64("post_id", id), slog.String("author", username))

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Post deleted successfully", nil))
	}
}

// Rewin re-shares a post from the caller's feed onto their blog.
func Rewin(store *content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := middleware.GetUsernameFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		id, ok := postID(w, r)
		if !ok {
			return
		}

		created, err := store.Rewin(username, id)
		if err != nil {
			response.StoreError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Rewin processed", map[string]bool{
			"created": created,
		}))
	}
}

// Vote casts an up or down vote on a post in the caller's feed
// @Summary Vote on a post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param vote body types.VoteRequest true "Vote direction"
// @Router /posts/{id}/vote [post]
func Vote(store *content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := middleware.GetUsernameFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		id, ok := postID(w, r)
		if !ok {
			return
		}

		var req types.VoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		validate := validator.New()
		if err := validate.Struct(req); err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := store.Vote(username, id, req.Vote == types.VoteUp); err != nil {
			response.StoreError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Vote recorded successfully", nil))
	}
}

// Comment appends a comment to a post in the caller's feed.
func Comment(store *content.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := middleware.GetUsernameFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("user not authenticated")))
			return
		}

		id, ok := postID(w, r)
		if !ok {
			return
		}

		var req types.CommentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		validate := validator.New()
		if err := validate.Struct(req); err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(ve))
				return
			}
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		if err := store.Comment(username, id, req.Contents); err != nil {
			response.StoreError(w, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, response.RequestOK("Comment added successfully", nil))
	}
}

func postID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	if raw == "" {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("post ID is required")))
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(errors.New("post ID must be an integer")))
		return 0, false
	}
	return id, true
}
