package controller

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/ikkim/marketplace-backend/internal/app/service"
	apperrors "github.com/ikkim/marketplace-backend/internal/errors"
	"github.com/ikkim/marketplace-backend/pkg/logger"
)

// Report binding failures under their JSON names.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// respondServiceError maps service errors onto HTTP responses. Anything
// unrecognised is logged and reported as a generic 500.
func respondServiceError(c *gin.Context, log *logger.Logger, err error, context string, fields map[string]interface{}) {
	var validationErr *service.ValidationError
	switch {
	case stderrors.As(err, &validationErr):
		log.Warn("Validation failed: "+context, mergeFields(fields, map[string]interface{}{
			"fields": validationErr.Fields,
		}))
		apperrors.RespondWithValidationError(c, validationErr.Fields)
	case stderrors.Is(err, service.ErrProductNotFound):
		log.Warn("Product not found", fields)
		apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
	case stderrors.Is(err, service.ErrCartItemNotFound):
		log.Warn("Cart item not found", fields)
		apperrors.NotFound(c, apperrors.CartItemNotFound, "Cart item not found")
	case stderrors.Is(err, service.ErrUserNotFound):
		log.Warn("User not found", fields)
		apperrors.NotFound(c, apperrors.ResourceNotFound, "User not found")
	default:
		log.Error("Failed to "+context, err, fields)
		apperrors.InternalError(c, "")
	}
}

// respondBindError reports a request body that could not be decoded or
// failed its binding rules.
func respondBindError(c *gin.Context, log *logger.Logger, err error, context string) {
	var validationErrs validator.ValidationErrors
	if stderrors.As(err, &validationErrs) {
		fields := bindingFields(validationErrs)
		log.Warn("Validation failed: "+context, map[string]interface{}{
			"fields": fields,
		})
		apperrors.RespondWithValidationError(c, fields)
		return
	}

	log.Warn("Invalid request body: "+context, map[string]interface{}{
		"error": err.Error(),
	})
	apperrors.BadRequest(c, apperrors.ValidationInvalidFormat, "Invalid request data")
}

var indexPattern = regexp.MustCompile(`\[\d+\]`)

// bindingFields keys each failure by its JSON path without the request type
// or slice indexes, e.g. "reviews.rating".
func bindingFields(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		path := fe.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		path = indexPattern.ReplaceAllString(path, "")
		if _, exists := fields[path]; !exists {
			fields[path] = bindingMessage(fe)
		}
	}
	return fields
}

func bindingMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		if fe.Param() == "0" {
			return "must be a positive integer"
		}
		return "must be greater than " + fe.Param()
	case "gte":
		if fe.Param() == "0" {
			return "must not be negative"
		}
		return "must be at least " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

func mergeFields(base, extra map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
