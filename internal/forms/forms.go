// Package forms declares the typed HTML forms accepted by warbler and
// validates them.
//
// Each form is a plain struct. The `form` tag names the submitted field and
// the `validate` tag lists its validators in order, e.g.
// `validate:"required,email"`. Validate returns the failures keyed by form
// field name, so handlers can re-render the page next to the inputs.
package forms

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

type SignupForm struct {
	Username string `form:"username" validate:"required"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"min=6"`
	ImageURL string `form:"image_url"`
}

type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"min=6"`
}

type MessageForm struct {
	Text string `form:"text" validate:"required,max=140"`
}

type EditProfileForm struct {
	Username       string `form:"username" validate:"required"`
	Email          string `form:"email" validate:"required,email"`
	Password       string `form:"password" validate:"min=6"`
	ImageURL       string `form:"image_url"`
	HeaderImageURL string `form:"header_image_url"`
	Bio            string `form:"bio"`
	Location       string `form:"location"`
}

type ChangePasswordForm struct {
	Current         string `form:"current" validate:"min=6"`
	NewPassword     string `form:"new_password" validate:"min=6"`
	ConfirmPassword string `form:"confirm_password" validate:"min=6"`
}

// Errors maps a form field name to its validation messages.
type Errors map[string][]string

func (e Errors) Has(field string) bool { return len(e[field]) > 0 }

// Get returns the first message for field, or "".
func (e Errors) Get(field string) string {
	if len(e[field]) == 0 {
		return ""
	}
	return e[field][0]
}

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e Errors) Valid() bool { return len(e) == 0 }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("form")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks form against its validate tags. A nil or empty result
// means the form is valid.
func Validate(form any) Errors {
	errs := Errors{}

	err := validate.Struct(form)
	if err == nil {
		return errs
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs.Add("_form", err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	default:
		return fmt.Sprintf("Failed %s validation.", fe.Tag())
	}
}

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.SetAliasTag("form")
	d.IgnoreUnknownKeys(true)
	// a submitted empty input clears the field instead of keeping a prefill
	d.ZeroEmpty(true)
	return d
}

// Decode fills dst, a pointer to a form struct, from values matched by the
// `form` tag. Fields absent from values keep their current contents.
// Values are whitespace-trimmed afterwards except for secret fields.
func Decode(values url.Values, dst any) error {
	if err := decoder.Decode(dst, values); err != nil {
		return fmt.Errorf("decode form: %w", err)
	}
	trimFields(dst)
	return nil
}

// trimFields trims every non-secret string field of the struct dst points to.
func trimFields(dst any) {
	rv := reflect.ValueOf(dst).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name := f.Tag.Get("form")
		if name == "" || isSecret(name) || f.Type.Kind() != reflect.String {
			continue
		}
		rv.Field(i).SetString(strings.TrimSpace(rv.Field(i).String()))
	}
}

// isSecret reports whether the field holds a password, which is kept verbatim.
func isSecret(name string) bool {
	return strings.Contains(name, "password") || name == "current"
}
