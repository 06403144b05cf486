package delivery

import (
	"context"
	"net/http"

	accountdomain "mailbrief-backend/internal/account/domain"
	accountdto "mailbrief-backend/internal/account/dto"
	"mailbrief-backend/internal/account/repository"
	"mailbrief-backend/pkg/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

// GoogleConnector exchanges an authorization code for tokens and the
// mailbox address the grant covers. Implemented by the Gmail service.
type GoogleConnector interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (*oauth2.Token, string, error)
}

// AccountHandler handles connected-account endpoints
type AccountHandler struct {
	accountRepo repository.AccountRepository
	google      GoogleConnector
	config      *config.Config
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountRepo repository.AccountRepository, google GoogleConnector, cfg *config.Config) *AccountHandler {
	return &AccountHandler{
		accountRepo: accountRepo,
		google:      google,
		config:      cfg,
	}
}

// List handles GET /api/accounts
func (h *AccountHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	accounts, err := h.accountRepo.FindByUserID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list accounts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// ConnectGoogle handles POST /api/accounts/google. The frontend completes
// the consent screen and posts the authorization code here; the account
// only exists once the exchange succeeds.
func (h *AccountHandler) ConnectGoogle(c *gin.Context) {
	userID := c.GetString("userID")

	var req accountdto.ConnectGoogleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	redirectURI := req.RedirectURI
	if redirectURI == "" {
		redirectURI = h.config.GoogleRedirectURI
	}

	token, email, err := h.google.ExchangeCode(c.Request.Context(), req.Code, redirectURI)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization code exchange failed"})
		return
	}

	// Reconnecting an already-linked mailbox refreshes its credentials
	// instead of creating a second row.
	existing, err := h.findUserAccount(userID, email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up accounts"})
		return
	}
	if existing != nil {
		existing.AccessToken = token.AccessToken
		existing.TokenExpiresAt = token.Expiry
		existing.Status = accountdomain.StatusActive
		// Google only returns a refresh token on first consent; keep the
		// stored one unless the exchange produced a new grant.
		if token.RefreshToken != "" {
			existing.RefreshToken = token.RefreshToken
		}
		if err := h.accountRepo.Update(existing); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update account"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"account": existing})
		return
	}

	account := &accountdomain.Account{
		UserID:         userID,
		Email:          email,
		Provider:       accountdomain.ProviderGoogle,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: token.Expiry,
		Status:         accountdomain.StatusActive,
	}

	if err := h.accountRepo.Create(account); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save account"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": account})
}

// ConnectIMAP handles POST /api/accounts/imap
func (h *AccountHandler) ConnectIMAP(c *gin.Context) {
	userID := c.GetString("userID")

	var req accountdto.ConnectIMAPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.findUserAccount(userID, req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up accounts"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "account already connected"})
		return
	}

	account := &accountdomain.Account{
		UserID:       userID,
		Email:        req.Email,
		Provider:     accountdomain.ProviderIMAP,
		IMAPHost:     req.Host,
		IMAPUsername: req.Username,
		IMAPPassword: req.Password,
		Status:       accountdomain.StatusActive,
	}

	if err := h.accountRepo.Create(account); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save account"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": account})
}

// Disconnect handles DELETE /api/accounts/:id
func (h *AccountHandler) Disconnect(c *gin.Context) {
	userID := c.GetString("userID")
	accountID := c.Param("id")

	account, err := h.accountRepo.FindByID(accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to look up account"})
		return
	}
	if account == nil || account.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}

	if err := h.accountRepo.Delete(accountID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to disconnect account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "account disconnected"})
}

func (h *AccountHandler) findUserAccount(userID, email string) (*accountdomain.Account, error) {
	accounts, err := h.accountRepo.FindByUserID(userID)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].Email == email {
			return &accounts[i], nil
		}
	}
	return nil, nil
}
