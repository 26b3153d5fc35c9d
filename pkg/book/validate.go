package book

import (
	"bytes"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"
)

const yearMessage = "O campo ano deve ser um número inteiro maior ou igual a 1000"

var validate = newValidator()

// jsonInteger matches a JSON number without fraction or exponent.
var jsonInteger = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their wire names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks f as a creation payload: every attribute present, a
// non-empty title and a year no earlier than 1000. Only the first failing
// field is reported.
func (f Fields) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return fmt.Errorf("validate book: %w", err)
	}
	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Message: message(fe)}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Campo obrigatório ausente: " + fe.Field()
	case "min":
		return fmt.Sprintf("O campo %s não pode ser vazio", fe.Field())
	case "gte":
		return yearMessage
	default:
		return fmt.Sprintf("O campo %s é inválido", fe.Field())
	}
}

type wireFields struct {
	Title  *string         `json:"titulo"`
	Author *string         `json:"autor"`
	Year   json.RawMessage `json:"ano"`
	ISBN   *string         `json:"isbn"`
}

// DecodeFields parses a JSON request body. Unknown keys are ignored and
// null values count as absent. A present "ano" that is not a JSON integer
// yields a *ValidationError; anything that is not a JSON object yields
// ErrMalformedBody.
func DecodeFields(data []byte) (Fields, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Fields{}, ErrMalformedBody
	}
	var w wireFields
	if err := json.Unmarshal(data, &w); err != nil {
		return Fields{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	f := Fields{Title: w.Title, Author: w.Author, ISBN: w.ISBN}
	raw := bytes.TrimSpace(w.Year)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if !jsonInteger.Match(raw) {
			return Fields{}, &ValidationError{Field: "ano", Message: yearMessage}
		}
		year, err := strconv.Atoi(string(raw))
		if err != nil {
			return Fields{}, &ValidationError{Field: "ano", Message: yearMessage}
		}
		f.Year = &year
	}
	return f, nil
}
