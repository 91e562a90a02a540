package helper

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"foodgram-api/apperrors"
	"foodgram-api/models"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	textOk = `success`
)

var codeTypes = map[apperrors.Code]string{
	apperrors.CodeValidation:   "validationError",
	apperrors.CodeNotFound:     "notFound",
	apperrors.CodeConflict:     "conflict",
	apperrors.CodeForbidden:    "forbidden",
	apperrors.CodeSelfRelation: "selfRelation",
	apperrors.CodeUnauthorized: "unAuthorized",
	apperrors.CodeRateLimited:  "rateLimited",
	apperrors.CodeInternal:     "internalError",
}

// HTTPHelper renders every JSON response in the {code, code_type, code_message, data} envelope.
type HTTPHelper struct {
	Validate   *validator.Validate
	Translator ut.Translator
	Log        *slog.Logger
}

var (
	setupOnce  sync.Once
	setupErr   error
	translator ut.Translator
)

// NewHTTPHelper registers the custom binding rules and English messages on gin's validator.
func NewHTTPHelper(log *slog.Logger) (*HTTPHelper, error) {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil, errors.New("gin validator engine is not validator/v10")
	}

	setupOnce.Do(func() { setupErr = registerValidations(v) })
	if setupErr != nil {
		return nil, setupErr
	}

	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HTTPHelper{Validate: v, Translator: translator, Log: log}, nil
}

func registerValidations(v *validator.Validate) error {
	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")

	if err := en_translations.RegisterDefaultTranslations(v, translator); err != nil {
		return err
	}

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})

	rules := []struct {
		tag     string
		pattern interface{ MatchString(string) bool }
		message string
	}{
		{"slug", models.SlugPattern, "{0} may contain only letters, digits, hyphens and underscores"},
		{"username", models.UsernamePattern, "{0} may contain only letters, digits and @/./+/-/_"},
	}
	for _, rule := range rules {
		pattern := rule.pattern
		if err := v.RegisterValidation(rule.tag, func(fl validator.FieldLevel) bool {
			return pattern.MatchString(fl.Field().String())
		}); err != nil {
			return err
		}

		tag, message := rule.tag, rule.message
		err := v.RegisterTranslation(tag, translator,
			func(trans ut.Translator) error { return trans.Add(tag, message, true) },
			func(trans ut.Translator, fe validator.FieldError) string {
				text, _ := trans.T(tag, fe.Field())
				return text
			},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (u *HTTPHelper) send(c *gin.Context, status int, codeType string, message any, data any) {
	c.JSON(status, map[string]interface{}{
		"code":         status,
		"code_type":    codeType,
		"code_message": message,
		"data":         data,
	})
}

// SendSuccess ...
// Send success response to consumers.
func (u *HTTPHelper) SendSuccess(c *gin.Context, message string, data interface{}) {
	if message == "" {
		message = textOk
	}
	u.send(c, http.StatusOK, `success`, message, data)
}

// SendCreated ...
// Send created response to consumers.
func (u *HTTPHelper) SendCreated(c *gin.Context, message string, data interface{}) {
	u.send(c, http.StatusCreated, `created`, message, data)
}

func (u *HTTPHelper) SendNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// SendError ...
// Map a domain error onto its status and envelope. Unexpected errors are logged and hidden.
func (u *HTTPHelper) SendError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !apperrors.As(err, &appErr) {
		u.Log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		u.send(c, http.StatusInternalServerError, codeTypes[apperrors.CodeInternal], "internal server error", u.EmptyJsonMap())
		return
	}

	status := appErr.HTTPStatus()
	message := appErr.Message
	if status >= http.StatusInternalServerError {
		u.Log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		message = "internal server error"
	}

	data := u.EmptyJsonMap()
	if appErr.Field != "" {
		data[appErr.Field] = []string{appErr.Message}
	}
	if appErr.Details != nil {
		data["details"] = appErr.Details
	}
	u.send(c, status, codeTypes[appErr.Code], message, data)
}

func (u *HTTPHelper) SendAbort(c *gin.Context, err error) {
	u.SendError(c, err)
	c.Abort()
}

// SendBindError ...
// Send a request binding failure. Field rule violations are listed per field.
func (u *HTTPHelper) SendBindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		u.SendValidationError(c, validationErrors)
		return
	}
	u.send(c, http.StatusBadRequest, `badRequest`, "malformed request: "+err.Error(), u.EmptyJsonMap())
}

// SendValidationError ...
// Send validation error response to consumers.
func (u *HTTPHelper) SendValidationError(c *gin.Context, validationErrors validator.ValidationErrors) {
	errorResponse := map[string][]string{}
	errorTranslation := validationErrors.Translate(u.Translator)
	for _, err := range validationErrors {
		errKey := err.Field()
		errorResponse[errKey] = append(errorResponse[errKey], errorTranslation[err.Namespace()])
	}

	u.send(c, http.StatusBadRequest, codeTypes[apperrors.CodeValidation], "validation failed", errorResponse)
}

func (u *HTTPHelper) EmptyJsonMap() map[string]interface{} {
	return make(map[string]interface{})
}

// ParseID reads a positive numeric path parameter.
func (u *HTTPHelper) ParseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.Validationf(name, "invalid %s", name)
	}
	return uint(id), nil
}

// GetPagingUrl builds the current URL with limit and offset replaced.
func (u *HTTPHelper) GetPagingUrl(c *gin.Context, limit, offset int) string {
	r := c.Request
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	query := url.Values{}
	for key, values := range r.URL.Query() {
		query[key] = values
	}
	query.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	} else {
		query.Del("offset")
	}
	return scheme + "://" + r.Host + r.URL.Path + "?" + query.Encode()
}

// SetPageLinks fills next and previous for a limit/offset page.
func SetPageLinks[T any](u *HTTPHelper, c *gin.Context, page *models.Page[T], limit, offset int) {
	if int64(offset+limit) < page.Count {
		next := u.GetPagingUrl(c, limit, offset+limit)
		page.Next = &next
	}
	if offset > 0 {
		prevOffset := offset - limit
		if prevOffset < 0 {
			prevOffset = 0
		}
		prev := u.GetPagingUrl(c, limit, prevOffset)
		page.Previous = &prev
	}
}
