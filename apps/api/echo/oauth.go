package echoapi

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

const oauthStateCookieName = "oauthstate"

var errOAuthStateMismatch = echo.NewHTTPError(http.StatusBadRequest, "invalid oauth state")

// oauthApi runs the "Continue with <provider>" consent flow: redirect out
// with a random state, exchange the returned code, pull the user's profile
// and start a session.
type oauthApi struct {
	userApi *userApi
	conf    core.OAuthConfig
	oauth   *oauth2.Config
}

func registerOAuthAPI(g *echo.Group, userApi *userApi) {
	conf := userApi.conf.OAuth
	api := oauthApi{
		userApi: userApi,
		conf:    conf,
		oauth: &oauth2.Config{
			ClientID:     conf.ClientID,
			ClientSecret: conf.ClientSecret,
			RedirectURL:  conf.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  conf.AuthURL,
				TokenURL: conf.TokenURL,
			},
			Scopes: conf.Scopes,
		},
	}

	ag := g.Group("/auth/" + conf.ProviderName)
	ag.GET("", api.redirect)
	ag.GET("/callback", api.callback)
}

func generateState() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return base64.URLEncoding.EncodeToString([]byte(time.Now().String()))
	}
	return base64.URLEncoding.EncodeToString(b)
}

func (api *oauthApi) redirect(ctx echo.Context) error {
	state := generateState()
	ctx.SetCookie(&http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return ctx.Redirect(http.StatusTemporaryRedirect, api.oauth.AuthCodeURL(state))
}

func (api *oauthApi) callback(ctx echo.Context) error {
	stateCookie, err := ctx.Cookie(oauthStateCookieName)
	if err != nil || stateCookie.Value == "" || ctx.QueryParam("state") != stateCookie.Value {
		return errOAuthStateMismatch
	}

	token, err := api.oauth.Exchange(ctx.Request().Context(), ctx.QueryParam("code"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "code exchange failed")
	}

	acct, err := api.fetchAccount(ctx, token)
	if err != nil {
		return errors.Wrap(err, "fetching provider account")
	}

	usr, err := api.userApi.svc.GetOrCreateFromProvider(acct)
	if err != nil {
		return errors.Wrap(err, "resolving provider account")
	}

	sessionToken, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	api.userApi.sessions.Persist(ctx, sessionToken, usr.ID, false /* refreshed */)

	// back into the app; the profile form comes first for new accounts
	target := "/dashboard"
	if !usr.HasProfile() {
		target = "/dashboard/profile"
	}
	return ctx.Redirect(http.StatusFound, target)
}

func (api *oauthApi) fetchAccount(ctx echo.Context, token *oauth2.Token) (user.ProviderAccount, error) {
	client := api.oauth.Client(ctx.Request().Context(), token)
	res, err := client.Get(api.conf.UserInfoURL)
	if err != nil {
		return user.ProviderAccount{}, errors.Wrap(err, "requesting userinfo")
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		return user.ProviderAccount{}, errors.Errorf("userinfo status %d", res.StatusCode)
	}

	var info struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err = json.NewDecoder(res.Body).Decode(&info); err != nil {
		return user.ProviderAccount{}, errors.Wrap(err, "decoding userinfo")
	}

	return user.ProviderAccount{
		Provider:  api.conf.ProviderName,
		Email:     info.Email,
		FullName:  info.Name,
		AvatarURL: info.Picture,
	}, nil
}
