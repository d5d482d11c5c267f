package echoapi

import (
	"mime/multipart"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/classroom"
	"github.com/darasahq/darasa/core/user"
)

type classroomApi struct {
	usrSvc   user.Service
	svc      classroom.Service
	validate *validator.Validate
}

func registerClassroomAPI(g *echo.Group, auth echo.MiddlewareFunc, s *server) {
	api := classroomApi{
		usrSvc:   s.deps.UserSvc,
		svc:      s.deps.ClassroomSvc,
		validate: s.validate,
	}

	g.POST("/addclass", api.create, auth)

	cg := g.Group("/classroom/:id", auth)
	cg.GET("", api.retrieve)
	cg.POST("/add-admin", api.addAdmin)
	cg.POST("/add-student", api.addStudent)
	cg.DELETE("/delete-student/:studentID", api.deleteStudent)
	cg.POST("/work", api.createWork)
	cg.POST("/blog", api.createBlog)
}

// Handlers

func (api *classroomApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data classroom.NewClassroom
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassroom")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	summary, err := api.svc.CreateClassroom(usr, data)
	if err != nil {
		return mapDomainError(err)
	}
	return ctx.JSON(http.StatusCreated, summary)
}

// retrieve returns the full classroom record: the member rosters, every
// content item newest first, and the deadlines still ahead. The response is a
// complete replacement for any previously fetched detail.
func (api *classroomApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	detail, role, err := api.svc.Detail(ctx.Param("id"), usr)
	if err != nil {
		return mapDomainError(err)
	}
	return ctx.JSON(http.StatusOK, ClassroomDetailResponse{Detail: detail, Role: role})
}

func (api *classroomApi) addMember(ctx echo.Context, role string) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data classroom.AddMember
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AddMember")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	member, err := api.svc.AddMember(ctx.Param("id"), usr, role, data)
	if err != nil {
		return mapDomainError(err)
	}
	return ctx.JSON(http.StatusCreated, member)
}

func (api *classroomApi) addAdmin(ctx echo.Context) error {
	return api.addMember(ctx, classroom.RoleAdmin)
}

func (api *classroomApi) addStudent(ctx echo.Context) error {
	return api.addMember(ctx, classroom.RoleStudent)
}

func (api *classroomApi) deleteStudent(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.RemoveStudent(ctx.Param("id"), usr, ctx.Param("studentID")); err != nil {
		return mapDomainError(err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) createWork(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data classroom.NewWork
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewWork")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	files, closeFiles, err := formUploads(ctx)
	if err != nil {
		return err
	}
	defer closeFiles()

	item, err := api.svc.CreateWork(ctx.Param("id"), usr, data, files)
	if err != nil {
		return mapDomainError(err)
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *classroomApi) createBlog(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data classroom.NewBlog
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBlog")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	files, closeFiles, err := formUploads(ctx)
	if err != nil {
		return err
	}
	defer closeFiles()

	item, err := api.svc.CreateBlog(ctx.Param("id"), usr, data, files)
	if err != nil {
		return mapDomainError(err)
	}
	return ctx.JSON(http.StatusCreated, item)
}

// formUploads collects the multipart "files" parts. Requests without a
// multipart body simply yield no uploads.
func formUploads(ctx echo.Context) ([]classroom.Upload, func(), error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, func() {}, nil
	}

	var opened []multipart.File
	closeFiles := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	var uploads []classroom.Upload
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			closeFiles()
			return nil, func() {}, errors.Wrap(err, "opening upload")
		}
		opened = append(opened, f)
		uploads = append(uploads, classroom.Upload{Name: fh.Filename, Content: f})
	}
	return uploads, closeFiles, nil
}

type ClassroomDetailResponse struct {
	classroom.Detail
	Role string `json:"role"`
}
