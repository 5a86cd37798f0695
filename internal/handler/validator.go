package handler

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator plugs go-playground/validator into echo. Field names in
// errors are the JSON names clients sent.
type RequestValidator struct {
	v *validator.Validate
}

var _ echo.Validator = (*RequestValidator)(nil)

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return &RequestValidator{v: v}
}

// maxBytes limits the encoded length of a string. bcrypt rejects passwords
// longer than 72 bytes, which max (a rune count) does not catch.
func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

// Validate returns a *ValidationError listing every failing field.
func (rv *RequestValidator) Validate(i any) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return err
	}
	items := make([]ErrorItem, 0, len(fes))
	for _, fe := range fes {
		items = append(items, ErrorItem{
			Type:     "field",
			Msg:      fieldMessage(fe),
			Path:     fe.Field(),
			Location: "body",
		})
	}
	return &ValidationError{Items: items}
}

// fieldMessage turns a failed tag into a sentence. Messages follow the
// field's label, e.g. "Email is required".
func fieldMessage(fe validator.FieldError) string {
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return label + " should be a valid email"
	case "min":
		return label + " should be at least " + fe.Param() + " characters"
	case "max":
		return label + " can not be more than " + fe.Param() + " characters"
	case "maxbytes":
		return label + " can not be more than " + fe.Param() + " bytes"
	case "oneof":
		return label + " should be one of " + fe.Param()
	}
	return label + " is invalid"
}

var fieldLabels = map[string]string{
	"firstName": "First name",
	"lastName":  "Last name",
	"email":     "Email",
	"password":  "Password",
	"name":      "Tenant name",
	"address":   "Address",
	"tenantId":  "Tenant id",
	"role":      "Role",
}

// bindAndValidate binds the request body into dst, trims its string
// fields and runs the validator.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return badRequest("Invalid request body")
	}
	trimStrings(dst)
	return c.Validate(dst)
}

// trimStrings trims every exported string field of the struct dst points to.
// Passwords are left as typed.
func trimStrings(dst any) {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return
	}
	rv = rv.Elem()
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if f.Kind() != reflect.String || !f.CanSet() || rt.Field(i).Name == "Password" {
			continue
		}
		f.SetString(strings.TrimSpace(f.String()))
	}
}
