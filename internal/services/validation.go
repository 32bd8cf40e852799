package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/blogsphere/backend/internal/apperrors"
	"github.com/blogsphere/backend/internal/media"
	"github.com/blogsphere/backend/internal/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct's validate tags and reports the first failure as a validation error.
func validateStruct(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.Validation("Invalid request payload")
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return apperrors.Validation(fmt.Sprintf("%s is required", fe.Field()))
	case "email":
		return apperrors.Validation(fmt.Sprintf("%s must be a valid email", fe.Field()))
	case "max":
		return apperrors.Validation(fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
	case "oneof":
		return apperrors.Validation(fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
	default:
		return apperrors.Validation(fmt.Sprintf("%s is invalid", fe.Field()))
	}
}

func checkImage(upload *models.ImageUpload) error {
	switch err := media.CheckImage(upload.ContentType, upload.Size); {
	case errors.Is(err, media.ErrUnsupportedType):
		return apperrors.Validation("Only jpg, jpeg, png allowed")
	case errors.Is(err, media.ErrTooLarge):
		return apperrors.Validation("Image size must be < 5MB")
	}
	return nil
}

// parseID turns a path parameter into an ObjectID, naming what kind of id was malformed.
func parseID(hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperrors.Validation("Invalid " + what + " id")
	}
	return id, nil
}
