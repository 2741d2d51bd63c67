package validate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aussiebroadwan/splitsub/pkg/apperr"
)

// Part names the request section a rule applies to.
type Part string

const (
	PartBody   Part = "body"
	PartQuery  Part = "query"
	PartParams Part = "params"
)

// Rule binds and checks one request part. A successful rule stores the
// typed value on the returned request's context.
type Rule interface {
	Part() Part
	Apply(r *http.Request, v *Validator) (*http.Request, error)
}

type partKey struct{ part Part }

// Body decodes the JSON body into T and validates it. Unknown keys are
// ignored.
func Body[T any]() Rule { return bodyRule[T]{} }

// Query binds the query string into T using `query` and `default` tags.
func Query[T any]() Rule { return valuesRule[T]{part: PartQuery} }

// Params binds path parameters into T using `path` tags.
func Params[T any]() Rule { return valuesRule[T]{part: PartParams} }

type bodyRule[T any] struct{}

func (bodyRule[T]) Part() Part { return PartBody }

func (bodyRule[T]) Apply(r *http.Request, v *Validator) (*http.Request, error) {
	var dst T
	if r.Body != nil {
		err := json.NewDecoder(r.Body).Decode(&dst)
		switch {
		case err == nil, errors.Is(err, io.EOF):
		default:
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				return nil, Failed([]FieldError{{
					Field:   typeErr.Field,
					Message: fmt.Sprintf("Expected %s, received %s", typeErr.Type, typeErr.Value),
					Code:    "invalid_type",
				}})
			}
			return nil, apperr.Validation("Invalid JSON format").WithCode("INVALID_INPUT_FORMAT").Wrap(err)
		}
	}

	if errs := v.Struct(&dst); len(errs) > 0 {
		return nil, Failed(errs)
	}
	return r.WithContext(context.WithValue(r.Context(), partKey{PartBody}, dst)), nil
}

type valuesRule[T any] struct{ part Part }

func (rule valuesRule[T]) Part() Part { return rule.part }

func (rule valuesRule[T]) Apply(r *http.Request, v *Validator) (*http.Request, error) {
	var (
		dst  T
		errs []FieldError
	)

	switch rule.part {
	case PartQuery:
		q := r.URL.Query()
		errs = bind(&dst, "query", func(name string) (string, bool) {
			if !q.Has(name) {
				return "", false
			}
			return q.Get(name), true
		})
	case PartParams:
		errs = bind(&dst, "path", func(name string) (string, bool) {
			val := r.PathValue(name)
			return val, val != ""
		})
	}
	if len(errs) > 0 {
		return nil, Failed(errs)
	}

	if errs := v.Struct(&dst); len(errs) > 0 {
		return nil, Failed(errs)
	}
	return r.WithContext(context.WithValue(r.Context(), partKey{rule.part}, dst)), nil
}

// BodyFrom returns the body bound by Body[T].
func BodyFrom[T any](ctx context.Context) (T, bool) { return from[T](ctx, PartBody) }

// QueryFrom returns the query bound by Query[T].
func QueryFrom[T any](ctx context.Context) (T, bool) { return from[T](ctx, PartQuery) }

// ParamsFrom returns the path parameters bound by Params[T].
func ParamsFrom[T any](ctx context.Context) (T, bool) { return from[T](ctx, PartParams) }

func from[T any](ctx context.Context, part Part) (T, bool) {
	v, ok := ctx.Value(partKey{part}).(T)
	return v, ok
}
