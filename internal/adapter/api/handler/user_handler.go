package handler

import (
	"mime/multipart"

	"github.com/labstack/echo/v4"

	"nocturne/internal/usecase"
	"nocturne/pkg/response"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

func (h *UserHandler) GetMe(c echo.Context) error {
	userID := c.Get("uid").(string)

	user, err := h.userUseCase.GetProfile(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

// UpdateMe merges profile fields from a multipart form; "avatar" is an
// optional image file.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	userID := c.Get("uid").(string)

	input := usecase.UpdateProfileInput{
		Name:        c.FormValue("name"),
		Gender:      c.FormValue("gender"),
		DateOfBirth: c.FormValue("date_of_birth"),
	}

	var file multipart.File
	fileHeader, err := c.FormFile("avatar")
	if err == nil {
		file, err = fileHeader.Open()
		if err != nil {
			return response.Error(c, err)
		}
		defer file.Close()
		input.Avatar = file
		input.AvatarContentType = fileHeader.Header.Get("Content-Type")
	}

	user, err := h.userUseCase.UpdateProfile(c.Request().Context(), userID, input)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}
