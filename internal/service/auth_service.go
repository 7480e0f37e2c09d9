package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	config "github.com/socialdeck/socialdeck/configs"
	"github.com/socialdeck/socialdeck/internal/models"
	"github.com/socialdeck/socialdeck/internal/repository"
	"github.com/socialdeck/socialdeck/internal/transfer"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type AuthService interface {
	LoginURL(state string) string
	LoginCallback(ctx context.Context, code string) (userID int64, created bool, err error)
}

type authService struct {
	cfg *config.Config
	u   repository.UserRepository
}

func NewAuthService(cfg *config.Config, u repository.UserRepository) AuthService {
	return &authService{
		cfg: cfg,
		u:   u,
	}
}

func (s *authService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.GoogleClientID,
		ClientSecret: s.cfg.GoogleClientSecret,
		RedirectURL:  s.cfg.GoogleLoginRedirect,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

func (s *authService) LoginURL(state string) string {
	return s.oauthConfig().AuthCodeURL(state)
}

// LoginCallback exchanges the Google code, upserting the user. created is
// true for first-time signups, whose workspace still has to be provisioned
// by the queue worker.
func (s *authService) LoginCallback(ctx context.Context, code string) (userID int64, created bool, err error) {
	if code == "" {
		err = errors.New("code is empty")
		slog.Info(err.Error())
		return 0, false, err
	}

	oauth2Config := s.oauthConfig()
	if oauth2Config.ClientID == "" || oauth2Config.ClientSecret == "" || oauth2Config.RedirectURL == "" {
		err = errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return 0, false, err
	}

	token, err := oauth2Config.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return 0, false, err
	}

	client := oauth2Config.Client(ctx, token)
	userInfo, err := GetUserInfo(client)
	if err != nil {
		return 0, false, err
	}

	user, isExist, err := s.u.GetByEmail(ctx, userInfo.Email)
	if err != nil {
		return 0, false, err
	}

	if !isExist || user.GoogleID == "" {
		userID, err = s.u.Create(ctx, nil, &models.User{
			GoogleID:       userInfo.ID,
			Email:          userInfo.Email,
			Name:           userInfo.Name,
			ProfilePicture: userInfo.Picture,
		})
		if err != nil {
			slog.Info(err.Error())
			return 0, false, err
		}
		return userID, true, nil
	}

	return user.ID, false, nil
}

func GetUserInfo(client *http.Client) (*transfer.GoogleUserInfo, error) {
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	var userInfo transfer.GoogleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &userInfo, nil
}
