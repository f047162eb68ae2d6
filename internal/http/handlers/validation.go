package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	usernameRE   = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	registerOnce sync.Once
)

// RegisterValidators installs the forum's custom rules on gin's binding
// engine. It is safe to call more than once.
//
//   - username: letters, digits and @ . + - _ only
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameRE.MatchString(strings.TrimSpace(fl.Field().String()))
		})
	})
}

// bind decodes the form or JSON body into dst. Binding failures become a
// 400 validation envelope keyed by the form field names.
func bind(c *gin.Context, dst any, kind string) bool {
	err := c.ShouldBind(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[formName(fe.Field())] = ruleMessage(fe)
		}
		failFields(c, http.StatusBadRequest, ErrCodeValidation, kind, fields)
		return false
	}
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed request body")
	return false
}

// formName maps a struct field name to its form key.
func formName(field string) string {
	return strings.ToLower(field)
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "enter a valid email address"
	case "username":
		return "may contain only letters, numbers and @/./+/-/_ characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "eqfield":
		return "the two password fields didn't match"
	default:
		return "is invalid"
	}
}
