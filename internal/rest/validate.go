package rest

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const maxBodyBytes = 1 << 20

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// jsonFieldName reports fields by their JSON name in error messages
func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// SearchRequest is the query string of a catalog search
type SearchRequest struct {
	Query string `json:"query" validate:"required"`
}

// LoginRequest is the body of a login
type LoginRequest struct {
	NumeroCuenta string `json:"numeroCuenta" validate:"required,numeric,max=11"`
	Password     string `json:"password" validate:"required,max=72"`
}

// ReserveRequest is the body of a reserve creation
type ReserveRequest struct {
	IDBook uint `json:"idBook" validate:"required,gt=0"`
}

var messageTemplates = map[string]string{
	"required": "%s is required",
	"numeric":  "%s must be numeric",
	"max":      "%s must be at most %s characters",
	"gt":       "%s must be greater than %s",
}

// validateRequest returns an error describing the first invalid field
func validateRequest(req interface{}) error {
	err := getValidator().Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	template, ok := messageTemplates[fe.Tag()]
	if !ok {
		return fmt.Errorf("%s is invalid", fe.Field())
	}
	if fe.Param() != "" {
		return fmt.Errorf(template, fe.Field(), fe.Param())
	}
	return fmt.Errorf(template, fe.Field())
}

// decodeJSON reads a size-limited JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("request body could not be read")
	}
	return nil
}
