package handlers

import (
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"
	config "github.com/socialdeck/socialdeck/configs"
	"github.com/socialdeck/socialdeck/internal/service"
)

type CredentialHandler struct {
	s   service.CredentialService
	cfg *config.Config
}

func NewCredentialHandler(cfg *config.Config, service service.CredentialService) *CredentialHandler {
	return &CredentialHandler{s: service, cfg: cfg}
}

// Connect starts the OAuth flow for the platform in the route. The frontend
// opens the returned redirectUrl in a popup.
func (h *CredentialHandler) Connect(c *fiber.Ctx) error {
	userID := GetUserID(c)
	platform := c.Params("platform")

	redirectURL, err := h.s.AuthURL(c.Context(), userID, platform)
	if err != nil {
		slog.Info(err.Error())
		code := service.FlowErrorCode(err)
		if code == service.CodeWorkspaceNotReady {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"code":    service.CodeWorkspaceNotReady,
				"message": "please wait while we initialize workspace",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"code":    code,
			"message": "unable to start authorization",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"redirectUrl": redirectURL,
	})
}

// ConnectTwitter is the OAuth 1.0a variant of Connect. Twitter keeps its own
// route because the request-token dance has no state parameter.
func (h *CredentialHandler) ConnectTwitter(c *fiber.Ctx) error {
	userID := GetUserID(c)

	redirectURL, err := h.s.AuthURL(c.Context(), userID, "twitter")
	if err != nil {
		slog.Info(err.Error())
		code := service.FlowErrorCode(err)
		if code == service.CodeWorkspaceNotReady {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"code":    service.CodeWorkspaceNotReady,
				"message": "please wait while we initialize workspace",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"code":    code,
			"message": "unable to start authorization",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"redirectUrl": redirectURL,
	})
}

// Callback lands the provider redirect and sends the browser back to the
// frontend with oauth_success or oauth_error in the query string.
func (h *CredentialHandler) Callback(c *fiber.Ctx) error {
	platform := c.Params("platform")
	sessionUserID := GetUserID(c)

	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return c.Redirect(h.redirectError(platform, service.CodeCallbackError), fiber.StatusTemporaryRedirect)
	}

	_, err = h.s.Callback(c.Context(), platform, query, sessionUserID)
	if err != nil {
		slog.Info(err.Error())
		return c.Redirect(h.redirectError(platform, service.FlowErrorCode(err)), fiber.StatusTemporaryRedirect)
	}

	params := url.Values{}
	params.Set("oauth_success", platform)
	return c.Redirect(h.cfg.FrontendURL+"?"+params.Encode(), fiber.StatusTemporaryRedirect)
}

func (h *CredentialHandler) redirectError(platform, code string) string {
	params := url.Values{}
	params.Set("oauth_error", code)
	params.Set("platform", platform)
	return h.cfg.FrontendURL + "?" + params.Encode()
}

// Status reports every platform's connection state in one map.
func (h *CredentialHandler) Status(c *fiber.Ctx) error {
	userID := GetUserID(c)

	status, err := h.s.Status(c.Context(), userID)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unable to load connection status",
		})
	}

	return c.Status(fiber.StatusOK).JSON(status)
}

func (h *CredentialHandler) Disconnect(c *fiber.Ctx) error {
	userID := GetUserID(c)
	platform := c.Params("platform")

	err := h.s.Disconnect(c.Context(), userID, platform)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": err.Error(),
		})
	}

	status, err := h.s.Status(c.Context(), userID)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unable to load connection status",
		})
	}

	return c.Status(fiber.StatusOK).JSON(status)
}
