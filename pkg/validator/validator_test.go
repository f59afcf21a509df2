package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type sendPayload struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type checkPayload struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"notblank,max=32"`
}

func TestValidateStructAcceptsValidPayload(t *testing.T) {
	require.NoError(t, ValidateStruct(sendPayload{Email: "alice@gmail.com"}))
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	err := ValidateStruct(checkPayload{Email: "invalid", Code: "   "})

	var vErrs ValidationErrors
	require.True(t, errors.As(err, &vErrs), "expected ValidationErrors, got %T", err)
	require.Len(t, vErrs, 2)

	tags := map[string]string{}
	for _, v := range vErrs {
		tags[v.Field] = v.Tag
	}
	require.Equal(t, "email", tags["email"])
	require.Equal(t, "notblank", tags["code"])
}

func TestValidationErrorsRendering(t *testing.T) {
	errs := ValidationErrors{
		{Field: "code", Tag: "max", Param: "32"},
		{Field: "email", Tag: "required"},
		{Field: "some_field", Tag: "oneof", Param: "a b"},
	}

	require.Equal(t, "code failed on max=32; email failed on required; some_field failed on oneof=a b", errs.Error())
	require.Equal(t,
		"code must be at most 32 characters; email is required; some field failed validation: oneof=a b",
		errs.Message(),
	)
	require.Equal(t, "validation failed", ValidationErrors{}.Error())
	require.Equal(t, "field is required", ValidationError{Tag: "notblank"}.Message())
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("storefront", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "storefront"
	})
	require.NoError(t, err)

	type custom struct {
		Value string `validate:"storefront"`
	}

	require.NoError(t, ValidateStruct(custom{Value: "storefront"}))
	require.Error(t, ValidateStruct(custom{Value: "other"}))
}
