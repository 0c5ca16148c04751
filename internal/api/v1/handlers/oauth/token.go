package oauth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/formpilot/gateway/internal/services/oauth"
	"github.com/formpilot/gateway/pkg/httpext"
)

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

type ClientCredentialsRequest struct {
	GrantType    string `json:"grant_type" validate:"required,eq=client_credentials"`
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
	// Scope is a space separated subset of the client's scopes
	Scope string `json:"scope,omitempty"`
}

// HandleToken issues dashboard tokens for the client_credentials grant
func HandleToken(w http.ResponseWriter, r *http.Request) {
	var req ClientCredentialsRequest
	if err := httpext.DecodeJSON(r, &req); err != nil {
		if req.GrantType != "" && req.GrantType != oauth.GrantClientCredentials {
			httpext.JsonErrorWithDetails(w, http.StatusBadRequest, httpext.ErrorResponse{
				Error:            "unsupported_grant_type",
				ErrorDescription: "Only client_credentials is supported",
			})
			return
		}
		httpext.BadRequest(w, err)
		return
	}

	issued, err := oauth.IssueClientToken(req.ClientID, req.ClientSecret, strings.Fields(req.Scope))
	switch {
	case errors.Is(err, oauth.ErrInvalidClient):
		log.Warn().Str("client_id", req.ClientID).Msg("Rejected client credentials")
		httpext.JsonError(w, "Invalid client credentials", http.StatusUnauthorized)
		return
	case errors.Is(err, oauth.ErrInvalidScope):
		httpext.JsonErrorWithDetails(w, http.StatusBadRequest, httpext.ErrorResponse{
			Error:            "invalid_scope",
			ErrorDescription: err.Error(),
		})
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to issue token")
		httpext.JsonError(w, "Error creating token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	httpext.JsonResponse(w, http.StatusOK, TokenResponse{
		AccessToken: issued.AccessToken,
		TokenType:   issued.TokenType,
		ExpiresIn:   issued.ExpiresIn,
		Scope:       strings.Join(issued.Scopes, " "),
	})
}
