package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/classroom"
	"github.com/darasahq/darasa/core/user"
)

type dashboardApi struct {
	usrSvc   user.Service
	clsSvc   classroom.Service
	sessions *SessionStore
	validate *validator.Validate
}

func registerDashboardAPI(g *echo.Group, auth echo.MiddlewareFunc, s *server) {
	api := dashboardApi{
		usrSvc:   s.deps.UserSvc,
		clsSvc:   s.deps.ClassroomSvc,
		sessions: s.deps.Sessions,
		validate: s.validate,
	}

	g.GET("/dashboard", api.retrieve, auth)
	g.POST("/dashboard", api.createProfile, auth)
	g.GET("/username/:name", api.checkUsername)
}

// Handlers

// retrieve returns the caller's full dashboard aggregate; a fresh fetch fully
// replaces whatever the client held before. Accounts that never completed the
// profile form get the distinguished "profile incomplete" status so the
// client can route to the profile page.
func (api *dashboardApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	agg, err := api.clsSvc.Dashboard(usr)
	if err != nil {
		return mapDomainError(err)
	}
	return ctx.JSON(http.StatusOK, agg)
}

func (api *dashboardApi) createProfile(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.Profile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Profile")
	}
	if err = data.Validate(api.validate, api.usrSvc); err != nil {
		return err
	}

	usr, err = api.usrSvc.CompleteProfile(usr, data)
	if err != nil {
		return mapDomainError(err)
	}

	// re-issue the token so it carries the profile flag
	return api.restartSession(ctx, usr)
}

func (api *dashboardApi) restartSession(ctx echo.Context, usr user.User) error {
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	api.sessions.Persist(ctx, token, usr.ID, true /* refreshed */)
	return ctx.JSON(http.StatusCreated, LoginResponse{Token: token, HasProfile: true})
}

// checkUsername reports whether a username is still available; used by the
// profile form as the user types.
func (api *dashboardApi) checkUsername(ctx echo.Context) error {
	name := ctx.Param("name")
	err := api.usrSvc.CheckUsernameUniqueness(name)
	return ctx.JSON(http.StatusOK, UsernameAvailability{
		UserName:  name,
		Available: err == nil,
	})
}

type UsernameAvailability struct {
	UserName  string `json:"userName"`
	Available bool   `json:"available"`
}
