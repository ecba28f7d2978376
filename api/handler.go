// Package api exposes the request-path operations through an API Gateway
// proxy Lambda. Routing here is deliberately thin: identity is already
// verified by the gateway authorizer, and request bodies get only presence
// checks before reaching the domain layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/natterhq/natter/social"
)

// Handler routes API Gateway proxy requests to the social service.
type Handler struct {
	svc *social.Service
	log *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc *social.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, log: logger}
}

type postBody struct {
	Body string `json:"body"`
}

type avatarBody struct {
	AvatarURL string `json:"avatarUrl"`
}

type markReadBody struct {
	IDs []string `json:"ids"`
}

// Handle is the Lambda entrypoint.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	segments := splitPath(req.Path)
	method := req.HTTPMethod

	switch {
	case method == http.MethodGet && matches(segments, "posts"):
		posts, err := h.svc.ListPosts(ctx)
		return h.respond(posts, err)

	case method == http.MethodPost && matches(segments, "posts"):
		actor, resp, ok := h.requireActor(req)
		if !ok {
			return resp, nil
		}
		body, resp, ok := h.requireBody(req)
		if !ok {
			return resp, nil
		}
		post, err := h.svc.CreatePost(ctx, actor, body)
		return h.respond(post, err)

	case method == http.MethodGet && matches(segments, "posts", "*"):
		detail, err := h.svc.GetPost(ctx, segments[1])
		return h.respond(detail, err)

	case method == http.MethodDelete && matches(segments, "posts", "*"):
		actor, resp, ok := h.requireActor(req)
		if !ok {
			return resp, nil
		}
		err := h.svc.DeletePost(ctx, segments[1], actor)
		return h.respond(map[string]string{"message": "post deleted"}, err)

	case method == http.MethodPost && matches(segments, "posts", "*", "comments"):
		actor, resp, ok := h.requireActor(req)
		if !ok {
			return resp, nil
		}
		body, resp, ok := h.requireBody(req)
		if !ok {
			return resp, nil
		}
		comment, err := h.svc.CreateComment(ctx, segments[1], actor, body)
		return h.respond(comment, err)

	case method == http.MethodPost && matches(segments, "posts", "*", "like"):
		actor, resp, ok := h.requireActor(req)
		if !ok {
			return resp, nil
		}
		post, err := h.svc.LikePost(ctx, segments[1], actor)
		return h.respond(post, err)

	case method == http.MethodDelete && matches(segments, "posts", "*", "like"):
		actor, resp, ok := h.requireActor(req)
		if !ok {
			return resp, nil
		}
		post, err := h.svc.UnlikePost(ctx, segments[1], actor)
		return h.respond(post, err)

	case method == http.MethodGet && matches(segments, "users", "*"):
		profile, err := h.svc.GetUser(ctx, segments[1])
		return h.respond(profile, err)

	case method == http.MethodPost && matches(segments, "profile"):
		actor, resp, ok := h.requireActor(req)
		if !ok {
			return resp, nil
		}
		var update social.ProfileUpdate
		if err := json.Unmarshal([]byte(req.Body), &update); err != nil {
			return h.clientError(http.StatusBadRequest, "malformed body"), nil
		}
		user, err := h.svc.UpdateProfile(ctx, actor.Handle, update)
		return h.respond(user, err)

	case method == http.MethodPut && matches(segments, "profile", "avatar"):
		actor, resp, ok := h.requireActor(req)
		if !ok {
			return resp, nil
		}
		var body avatarBody
		if err := json.Unmarshal([]byte(req.Body), &body); err != nil || strings.TrimSpace(body.AvatarURL) == "" {
			return h.clientError(http.StatusBadRequest, "avatarUrl must not be empty"), nil
		}
		user, err := h.svc.UpdateAvatar(ctx, actor.Handle, body.AvatarURL)
		return h.respond(user, err)

	case method == http.MethodGet && matches(segments, "notifications"):
		actor, resp, ok := h.requireActor(req)
		if !ok {
			return resp, nil
		}
		notifications, err := h.svc.ListNotifications(ctx, actor.Handle)
		return h.respond(notifications, err)

	case method == http.MethodPost && matches(segments, "notifications", "read"):
		actor, resp, ok := h.requireActor(req)
		if !ok {
			return resp, nil
		}
		var body markReadBody
		if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
			return h.clientError(http.StatusBadRequest, "malformed body"), nil
		}
		err := h.svc.MarkNotificationsRead(ctx, actor.Handle, body.IDs)
		return h.respond(map[string]string{"message": "notifications marked read"}, err)
	}

	return h.clientError(http.StatusNotFound, "no such route"), nil
}

// requireActor extracts the verified identity from the authorizer context.
func (h *Handler) requireActor(req events.APIGatewayProxyRequest) (social.Identity, events.APIGatewayProxyResponse, bool) {
	auth := req.RequestContext.Authorizer
	handle, _ := auth["handle"].(string)
	avatar, _ := auth["avatarUrl"].(string)
	if handle == "" {
		return social.Identity{}, h.clientError(http.StatusUnauthorized, "unauthorized"), false
	}
	return social.Identity{Handle: handle, AvatarURL: avatar}, events.APIGatewayProxyResponse{}, true
}

// requireBody parses a {"body": ...} payload and rejects empty text.
func (h *Handler) requireBody(req events.APIGatewayProxyRequest) (string, events.APIGatewayProxyResponse, bool) {
	var body postBody
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return "", h.clientError(http.StatusBadRequest, "malformed body"), false
	}
	text := strings.TrimSpace(body.Body)
	if text == "" {
		return "", h.clientError(http.StatusBadRequest, "body must not be empty"), false
	}
	return text, events.APIGatewayProxyResponse{}, true
}

func (h *Handler) respond(payload any, err error) (events.APIGatewayProxyResponse, error) {
	if err != nil {
		return h.errorResponse(err), nil
	}
	return jsonResponse(http.StatusOK, payload), nil
}

// errorResponse maps the domain error taxonomy to HTTP statuses. Anything
// outside the taxonomy is a store or I/O failure and stays opaque to the
// caller.
func (h *Handler) errorResponse(err error) events.APIGatewayProxyResponse {
	switch {
	case errors.Is(err, social.ErrNotFound):
		return h.clientError(http.StatusNotFound, "not found")
	case errors.Is(err, social.ErrConflict):
		return h.clientError(http.StatusConflict, "conflict")
	case errors.Is(err, social.ErrForbidden):
		return h.clientError(http.StatusForbidden, "forbidden")
	default:
		h.log.Error("request failed", "error", err)
		return jsonResponse(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *Handler) clientError(status int, message string) events.APIGatewayProxyResponse {
	return jsonResponse(status, map[string]string{"error": message})
}

func jsonResponse(status int, payload any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(payload)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"error":"internal error"}`,
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func splitPath(path string) []string {
	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// matches checks path segments against a pattern where "*" matches any
// single segment.
func matches(segments []string, pattern ...string) bool {
	if len(segments) != len(pattern) {
		return false
	}
	for i, p := range pattern {
		if p != "*" && segments[i] != p {
			return false
		}
	}
	return true
}
