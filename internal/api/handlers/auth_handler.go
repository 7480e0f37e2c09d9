package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	config "github.com/socialdeck/socialdeck/configs"
	"github.com/socialdeck/socialdeck/internal/queue"
	"github.com/socialdeck/socialdeck/internal/service"
	"github.com/socialdeck/socialdeck/pkg/utils"
)

type AuthHandler struct {
	s           service.AuthService
	cfg         *config.Config
	AsynqClient *asynq.Client
}

func NewAuthHandler(cfg *config.Config, service service.AuthService, asynqClient *asynq.Client) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg, AsynqClient: asynqClient}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	return c.Redirect(h.s.LoginURL("secureRandomState"))
}

func (h *AuthHandler) LoginCallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")

	userID, created, err := h.s.LoginCallback(c.Context(), code)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	if created {
		err = queue.EnqueueWorkspaceProvision(h.AsynqClient, queue.ProvisionWorkspacePayload{UserID: userID})
		if err != nil {
			slog.Info(err.Error())
		}
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, fmt.Sprintf("%d", userID), 24*time.Hour)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   false,
		SameSite: fiber.CookieSameSiteNoneMode,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
	})

	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}
