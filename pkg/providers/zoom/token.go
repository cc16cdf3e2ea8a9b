package zoom

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	boterrors "github.com/ethcatherders/acdbot/pkg/errors"
)

// accountTokenSource obtains server-to-server tokens with the
// account_credentials grant, which the stock clientcredentials flow
// cannot issue because it pins grant_type.
type accountTokenSource struct {
	tokenURL     string
	accountID    string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

func (s *accountTokenSource) Token() (*oauth2.Token, error) {
	form := url.Values{
		"grant_type": {"account_credentials"},
		"account_id": {s.accountID},
	}
	req, err := http.NewRequest(http.MethodPost, s.tokenURL+"?"+form.Encode(), nil)
	if err != nil {
		return nil, boterrors.NewProviderError("zoom", "token", err)
	}
	req.SetBasicAuth(s.clientID, s.clientSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, boterrors.NewProviderError("zoom", "token", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, boterrors.NewProviderStatusError("zoom", "token", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, boterrors.NewProviderError("zoom", "token", err)
	}
	if body.AccessToken == "" {
		return nil, boterrors.NewProviderError("zoom", "token", fmt.Errorf("empty access token"))
	}
	return &oauth2.Token{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
		Expiry:      time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}
