package actions

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(formName)
	})
	return validate
}

// bind decodes form into dst using its form tags and validates it. The returned message
// lists every failing field in declaration order: messages for one field are joined
// with ", " and fields with ". ". A value that cannot be decoded into its field fails
// that field with the "type" message.
func bind(form url.Values, dst any) (string, bool) {
	t := reflect.TypeOf(dst).Elem()

	var undecodable map[string]string
	if err := binding.MapFormWithTag(dst, form, "form"); err != nil {
		form, undecodable = splitUndecodable(t, form)
		reflect.ValueOf(dst).Elem().Set(reflect.Zero(t))
		if err := binding.MapFormWithTag(dst, form, "form"); err != nil {
			return "Invalid form input.", false
		}
	}

	var verrs validator.ValidationErrors
	if err := validatorInstance().Struct(dst); err != nil && !errors.As(err, &verrs) {
		return "Invalid form input.", false
	}
	if len(verrs) == 0 && len(undecodable) == 0 {
		return "", true
	}

	return fieldMessages(t, undecodable, verrs), false
}

// splitUndecodable returns form without the values that cannot be decoded into their
// field, along with the message for each such field keyed by struct field name.
func splitUndecodable(t reflect.Type, form url.Values) (url.Values, map[string]string) {
	valid := url.Values{}
	for k, v := range form {
		valid[k] = v
	}

	failed := map[string]string{}
	for i := range t.NumField() {
		f := t.Field(i)
		name := formName(f)
		values, ok := form[name]
		if name == "" || !ok {
			continue
		}

		scratch := reflect.New(t).Interface()
		if err := binding.MapFormWithTag(scratch, url.Values{name: values}, "form"); err != nil {
			failed[f.Name] = ruleMessage(f, "type")
			delete(valid, name)
		}
	}
	return valid, failed
}

func fieldMessages(t reflect.Type, undecodable map[string]string, verrs validator.ValidationErrors) string {
	byName := map[string][]string{}
	for _, fe := range verrs {
		byName[fe.StructField()] = append(byName[fe.StructField()], messageFor(t, fe))
	}

	var parts []string
	for i := range t.NumField() {
		f := t.Field(i)
		if msg, ok := undecodable[f.Name]; ok {
			parts = append(parts, msg)
			continue
		}
		if msgs := byName[f.Name]; len(msgs) > 0 {
			parts = append(parts, strings.Join(msgs, ", "))
		}
	}
	return strings.Join(parts, ". ")
}

// messageFor reads the human message for a failed rule from the field's msg tag.
func messageFor(t reflect.Type, fe validator.FieldError) string {
	if f, ok := t.FieldByName(fe.StructField()); ok {
		return ruleMessage(f, fe.Tag())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// ruleMessage looks rule up in the msg tag, which has the form
// "rule=message|rule=message".
func ruleMessage(f reflect.StructField, rule string) string {
	for _, entry := range strings.Split(f.Tag.Get("msg"), "|") {
		r, msg, found := strings.Cut(entry, "=")
		if found && r == rule {
			return msg
		}
	}
	return fmt.Sprintf("%s is invalid", formName(f))
}

func formName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
	if name == "-" {
		return ""
	}
	return name
}

type signupForm struct {
	Username  string `form:"username" validate:"min=3" msg:"min=Username must be at least 3 characters"`
	FirstName string `form:"firstName" validate:"min=1" msg:"min=First name is required"`
	LastName  string `form:"lastName" validate:"min=1" msg:"min=Last name is required"`
	Email     string `form:"email" validate:"email" msg:"email=Please enter a valid email"`
	Password  string `form:"password" validate:"min=6" msg:"min=Password must be at least 6 characters"`
}

type loginForm struct {
	Email    string `form:"email" validate:"email" msg:"email=Please enter a valid email"`
	Password string `form:"password" validate:"min=1" msg:"min=Password is required"`
}

type postForm struct {
	Title            string `form:"title" validate:"min=3" msg:"min=Title must be at least 3 characters"`
	Content          string `form:"content" validate:"min=10" msg:"min=Content must be at least 10 characters"`
	Status           string `form:"status" validate:"oneof=DRAFT PUBLISHED" msg:"oneof=Status must be DRAFT or PUBLISHED"`
	FeaturedImageURL string `form:"featuredImageUrl" validate:"omitempty,url" msg:"url=Featured image must be a valid URL"`
}

type ideasForm struct {
	Topic    string `form:"topic" validate:"min=3" msg:"min=Topic must be at least 3 characters"`
	Keywords string `form:"keywords" validate:"min=3" msg:"min=Keywords must be at least 3 characters"`
	Count    int    `form:"count" validate:"omitempty,min=1,max=10" msg:"min=Count must be between 1 and 10|max=Count must be between 1 and 10|type=Count must be a number"`
}

type profileForm struct {
	FirstName string `form:"firstName" validate:"omitempty,min=1"`
	LastName  string `form:"lastName" validate:"omitempty,min=1"`
	Username  string `form:"username" validate:"omitempty,min=3" msg:"min=Username must be at least 3 characters"`
	AvatarURL string `form:"avatarUrl" validate:"omitempty,url" msg:"url=Avatar must be a valid URL"`
}
