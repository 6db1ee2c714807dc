package httpserver

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/listellodavide/onion-factory/internal/auth"
	usersvc "github.com/listellodavide/onion-factory/internal/service/user"
)

const stateCookie = "oauth_state"

type authHandlers struct {
	oauth    *auth.OAuth
	sessions *auth.Sessions
	users    *usersvc.Service
	logger   *log.Logger
}

// login redirects the browser to the provider's consent page. The state is
// pinned in a short-lived cookie and checked again on callback.
func (h *authHandlers) login(c *gin.Context) {
	state, err := auth.NewState()
	if err != nil {
		respondError(c, err)
		return
	}
	url, err := h.oauth.AuthURL(c.Param("provider"), state)
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetCookie(stateCookie, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, url)
}

// callback completes the code flow: exchange, provision the local user, and
// hand back a signed session token.
func (h *authHandlers) callback(c *gin.Context) {
	state, err := c.Cookie(stateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "state mismatch"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code required"})
		return
	}

	provider := c.Param("provider")
	profile, err := h.oauth.Exchange(c.Request.Context(), provider, code)
	if err != nil {
		h.logger.Printf("auth: exchange failed provider=%s err=%v", provider, err)
		respondError(c, err)
		return
	}

	user, err := h.users.EnsureFromProfile(c.Request.Context(), profile.Email, profile.Name, profile.Picture)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.sessions.Mint(user, provider)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
