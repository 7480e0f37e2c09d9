package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	config "github.com/socialdeck/socialdeck/configs"
	"github.com/socialdeck/socialdeck/internal/models"
	"github.com/socialdeck/socialdeck/internal/platforms"
	"github.com/socialdeck/socialdeck/internal/repository"
	"github.com/socialdeck/socialdeck/internal/transfer"
	"github.com/socialdeck/socialdeck/pkg/utils"
)

// revoker is implemented by adapters that can invalidate a token at the
// provider on disconnect.
type revoker interface {
	Revoke(ctx context.Context, creds platforms.Credentials) error
}

type CredentialService interface {
	AuthURL(ctx context.Context, userID int64, platform string) (string, error)
	Callback(ctx context.Context, platform string, query url.Values, sessionUserID int64) (userID int64, err error)
	Status(ctx context.Context, userID int64) (map[string]transfer.ConnectionStatus, error)
	Disconnect(ctx context.Context, userID int64, platform string) error
	Refresh(ctx context.Context, pc *models.PlatformCredential) error
	Credentials(ctx context.Context, userID int64, platform string) (platforms.Credentials, error)
}

type credentialService struct {
	cfg      *config.Config
	registry *platforms.Registry
	u        repository.UserRepository
	cr       repository.CredentialRepository
}

func NewCredentialService(
	cfg *config.Config,
	registry *platforms.Registry,
	u repository.UserRepository,
	cr repository.CredentialRepository) CredentialService {
	return &credentialService{
		cfg:      cfg,
		registry: registry,
		u:        u,
		cr:       cr,
	}
}

// AuthURL starts a connect attempt: verifies the workspace, signs the state
// and builds the provider authorize URL. Twitter needs a request token first;
// it rides inside the signed state next to the nonce.
func (s *credentialService) AuthURL(ctx context.Context, userID int64, platform string) (string, error) {
	p, ok := platforms.Parse(platform)
	if !ok {
		return "", flowError(CodeMissingParams, fmt.Errorf("unsupported platform %q", platform))
	}

	user, found, err := s.u.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", flowError(CodeNoWorkspace, errors.New("user not found"))
	}
	if !user.WorkspaceReady {
		return "", flowError(CodeWorkspaceNotReady, errors.New("please wait while we initialize workspace"))
	}

	adapter, ok := s.registry.Get(p)
	if !ok {
		return "", flowError(CodeConfigMissing, fmt.Errorf("no adapter configured for %s", p))
	}

	state, err := utils.GenerateStateToken(s.cfg.SecretKey, strconv.FormatInt(userID, 10), platform)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	if p == platforms.Twitter {
		tw, ok := adapter.(*platforms.TwitterAdapter)
		if !ok {
			return "", flowError(CodeConfigMissing, errors.New("twitter adapter misconfigured"))
		}
		requestToken, err := tw.RequestToken(ctx)
		if err != nil {
			slog.Info(err.Error())
			return "", flowError(CodeTokenExchangeFailed, err)
		}
		return adapter.AuthorizationURL(requestToken, ""), nil
	}

	return adapter.AuthorizationURL(state, ""), nil
}

// Callback finishes the dance: CSRF check, code exchange, account fetch,
// encrypted save. Every failure carries a structured code the handler turns
// into an oauth_error redirect.
func (s *credentialService) Callback(ctx context.Context, platform string, query url.Values, sessionUserID int64) (int64, error) {
	p, ok := platforms.Parse(platform)
	if !ok {
		return 0, flowError(CodeMissingParams, fmt.Errorf("unsupported platform %q", platform))
	}

	if denied := query.Get("error"); denied != "" {
		if denied == "access_denied" || denied == "user_denied" {
			return 0, flowError(CodeUserDenied, errors.New(denied))
		}
		return 0, flowError(CodeCallbackError, errors.New(denied))
	}

	adapter, ok := s.registry.Get(p)
	if !ok {
		return 0, flowError(CodeConfigMissing, fmt.Errorf("no adapter configured for %s", p))
	}

	if p == platforms.Twitter {
		return s.twitterCallback(ctx, adapter, query, sessionUserID)
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		return 0, flowError(CodeMissingParams, errors.New("code or state missing"))
	}

	claims, err := utils.ValidateStateToken(s.cfg.SecretKey, state)
	if err != nil {
		return 0, flowError(CodeCSRFCheckFailed, err)
	}
	if claims.Platform != platform {
		return 0, flowError(CodeCSRFCheckFailed, fmt.Errorf("state was issued for %s", claims.Platform))
	}
	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return 0, flowError(CodeCSRFCheckFailed, err)
	}

	token, err := adapter.ExchangeCode(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return 0, flowError(CodeTokenExchangeFailed, err)
	}

	if p == platforms.Facebook {
		return userID, s.saveFacebookPages(ctx, adapter, userID, token)
	}

	profile, err := adapter.UserProfile(ctx, s.profileToken(p, token))
	if err != nil {
		slog.Info(err.Error())
		return 0, flowError(CodeGetAccountFailed, err)
	}
	if profile.ID == "" {
		return 0, flowError(CodeNoAccountFound, errors.New("provider returned no account"))
	}

	if err := s.save(ctx, userID, p, token, profile); err != nil {
		return 0, err
	}
	return userID, nil
}

// twitterCallback handles the 1.0a shape: oauth_token plus oauth_verifier
// instead of code plus state. There is no state to validate, so the session
// cookie on the callback request identifies the user.
func (s *credentialService) twitterCallback(ctx context.Context, adapter platforms.Adapter, query url.Values, userID int64) (int64, error) {
	oauthToken := query.Get("oauth_token")
	verifier := query.Get("oauth_verifier")
	if oauthToken == "" {
		return 0, flowError(CodeMissingParams, errors.New("oauth_token missing"))
	}
	if verifier == "" {
		return 0, flowError(CodeMissingVerifier, errors.New("oauth_verifier missing"))
	}
	if userID == 0 {
		return 0, flowError(CodeOAuthUnauthorized, errors.New("no session on callback"))
	}

	token, err := adapter.ExchangeCode(ctx, oauthToken+"|"+verifier)
	if err != nil {
		slog.Info(err.Error())
		return 0, flowError(CodeTokenExchangeFailed, err)
	}

	profile, err := adapter.UserProfile(ctx, token.AccessToken+"|"+token.TokenSecret)
	if err != nil {
		slog.Info(err.Error())
		return 0, flowError(CodeGetAccountFailed, err)
	}
	if profile.ID == "" {
		return 0, flowError(CodeNoAccountFound, errors.New("provider returned no account"))
	}

	if err := s.save(ctx, userID, platforms.Twitter, token, profile); err != nil {
		return 0, err
	}
	return userID, nil
}

// saveFacebookPages stores the first managed page's token as the credential.
func (s *credentialService) saveFacebookPages(ctx context.Context, adapter platforms.Adapter, userID int64, token *platforms.TokenResponse) error {
	fb, ok := adapter.(*platforms.FacebookAdapter)
	if !ok {
		return flowError(CodeConfigMissing, errors.New("facebook adapter misconfigured"))
	}

	pages, err := fb.ListPages(ctx, token.AccessToken)
	if err != nil {
		slog.Info(err.Error())
		return flowError(CodeGetPagesFailed, err)
	}
	if len(pages) == 0 {
		return flowError(CodeNoPagesFound, errors.New("no managed pages on this account"))
	}

	page := pages[0]
	pageToken := &platforms.TokenResponse{
		AccessToken: page.AccessToken,
		// The long-lived user token refreshes future page tokens.
		RefreshToken: token.AccessToken,
		ExpiresIn:    token.ExpiresIn,
	}
	profile := &platforms.Profile{
		ID:       page.ID,
		Name:     page.Name,
		Username: page.Category,
	}
	return s.save(ctx, userID, platforms.Facebook, pageToken, profile)
}

func (s *credentialService) profileToken(p platforms.Platform, token *platforms.TokenResponse) string {
	if p == platforms.Twitter {
		return token.AccessToken + "|" + token.TokenSecret
	}
	return token.AccessToken
}

func (s *credentialService) save(ctx context.Context, userID int64, p platforms.Platform, token *platforms.TokenResponse, profile *platforms.Profile) error {
	encryptedAccess, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return flowError(CodeSaveFailed, err)
	}

	var encryptedSecret, encryptedRefresh string
	if token.TokenSecret != "" {
		encryptedSecret, err = utils.Encrypt([]byte(token.TokenSecret), []byte(s.cfg.SecretKey))
		if err != nil {
			return flowError(CodeSaveFailed, err)
		}
	}
	if token.RefreshToken != "" {
		encryptedRefresh, err = utils.Encrypt([]byte(token.RefreshToken), []byte(s.cfg.SecretKey))
		if err != nil {
			return flowError(CodeSaveFailed, err)
		}
	}

	credential := &models.PlatformCredential{
		UserID:          userID,
		Platform:        p.String(),
		AccountID:       profile.ID,
		AccountName:     profile.Name,
		AccountUsername: profile.Username,
		ProfilePicture:  profile.ProfileImageURL,
		AccessToken:     encryptedAccess,
		TokenSecret:     encryptedSecret,
		RefreshToken:    encryptedRefresh,
		TokenExpiresAt:  token.ExpiresAt(),
	}

	if _, err := s.cr.Upsert(ctx, nil, credential); err != nil {
		slog.Info(err.Error())
		return flowError(CodeSaveFailed, err)
	}
	return nil
}

// Status projects every supported platform into the map, connected or not,
// so the response shape is stable regardless of what the user has linked.
func (s *credentialService) Status(ctx context.Context, userID int64) (map[string]transfer.ConnectionStatus, error) {
	credentials, err := s.cr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := make(map[string]transfer.ConnectionStatus, len(platforms.All))
	for _, p := range platforms.All {
		status[p.String()] = transfer.ConnectionStatus{}
	}

	for _, pc := range credentials {
		if pc.Status == models.CredentialStatusRevoked {
			continue
		}
		entry := transfer.ConnectionStatus{
			Connected:   true,
			AccountID:   pc.AccountID,
			AccountName: pc.AccountName,
			IsExpired:   pc.IsExpired(),
		}
		connectedAt := pc.CreatedAt
		if !connectedAt.IsZero() {
			entry.ConnectedAt = &connectedAt
		}
		if !pc.TokenExpiresAt.IsZero() {
			expiresAt := pc.TokenExpiresAt
			entry.ExpiresAt = &expiresAt
		}
		status[pc.Platform] = entry
	}

	return status, nil
}

// Disconnect revokes the token at the provider when the adapter supports it,
// then deletes the stored credential. Revocation failures do not block the
// local delete.
func (s *credentialService) Disconnect(ctx context.Context, userID int64, platform string) error {
	p, ok := platforms.Parse(platform)
	if !ok {
		return fmt.Errorf("unsupported platform %q", platform)
	}

	pc, found, err := s.cr.GetByUserAndPlatform(ctx, userID, platform)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no %s connection to disconnect", platform)
	}

	if adapter, ok := s.registry.Get(p); ok {
		if rv, ok := adapter.(revoker); ok {
			creds, err := s.decrypt(pc)
			if err == nil {
				if err := rv.Revoke(ctx, creds); err != nil {
					slog.Info(err.Error())
				}
			}
		}
	}

	return s.cr.Remove(ctx, userID, platform)
}

// Refresh rotates an expiring credential in place. Used by the cron job.
func (s *credentialService) Refresh(ctx context.Context, pc *models.PlatformCredential) error {
	p, ok := platforms.Parse(pc.Platform)
	if !ok {
		return fmt.Errorf("unsupported platform %q", pc.Platform)
	}
	adapter, ok := s.registry.Get(p)
	if !ok {
		return fmt.Errorf("no adapter configured for %s", p)
	}

	refreshToken, err := utils.Decrypt(pc.RefreshToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	token, err := adapter.RefreshToken(ctx, refreshToken)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	encryptedAccess, err := utils.Encrypt([]byte(token.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	newRefresh := token.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	encryptedRefresh, err := utils.Encrypt([]byte(newRefresh), []byte(s.cfg.SecretKey))
	if err != nil {
		return err
	}

	expiresAt := token.ExpiresAt()
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(365 * 24 * time.Hour)
	}

	return s.cr.SetToken(ctx, pc.ID, encryptedAccess, pc.TokenSecret, encryptedRefresh, expiresAt)
}

// Credentials loads and decrypts the stored credential for one platform.
func (s *credentialService) Credentials(ctx context.Context, userID int64, platform string) (platforms.Credentials, error) {
	pc, found, err := s.cr.GetByUserAndPlatform(ctx, userID, platform)
	if err != nil {
		return platforms.Credentials{}, err
	}
	if !found {
		return platforms.Credentials{}, fmt.Errorf("%s is not connected", platform)
	}
	return s.decrypt(pc)
}

// Decrypt unpacks stored ciphertext into usable adapter credentials.
func (s *credentialService) decrypt(pc *models.PlatformCredential) (platforms.Credentials, error) {
	accessToken, err := utils.Decrypt(pc.AccessToken, []byte(s.cfg.SecretKey))
	if err != nil {
		return platforms.Credentials{}, err
	}

	creds := platforms.Credentials{
		AccessToken: accessToken,
		AccountID:   pc.AccountID,
		ExpiresAt:   pc.TokenExpiresAt,
	}
	if pc.TokenSecret != "" {
		creds.TokenSecret, err = utils.Decrypt(pc.TokenSecret, []byte(s.cfg.SecretKey))
		if err != nil {
			return platforms.Credentials{}, err
		}
	}
	if pc.RefreshToken != "" {
		creds.RefreshToken, err = utils.Decrypt(pc.RefreshToken, []byte(s.cfg.SecretKey))
		if err != nil {
			return platforms.Credentials{}, err
		}
	}
	return creds, nil
}
