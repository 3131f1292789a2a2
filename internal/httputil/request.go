package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/thriftline/marketplace/internal/errors"
)

// MaxBodyBytes bounds request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

var (
	validate       = newValidator()
	customMessages = map[string]string{}
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// RegisterValidation adds a custom validation tag usable on request structs.
// message is reported for failing fields. Call during init, before any
// request is decoded.
func RegisterValidation(tag string, fn validator.Func, message string) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
	customMessages[tag] = message
}

// DecodeJSON reads the body into dst, rejecting unknown fields, and runs the
// struct's validate tags. Failures are returned as a validation ServiceError
// carrying one Issue per field.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apperrors.BadRequest("Request body is required")
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return decodeError(err, nil)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err, body)
	}
	if dec.More() {
		return apperrors.BadRequest("Request body must contain a single JSON object")
	}
	return Validate(dst)
}

// Validate runs validate tags on v.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.Internal("Validation failed", err)
	}

	issues := make([]apperrors.Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, apperrors.Issue{
			Path:    issuePath(fe.Namespace()),
			Code:    fe.Tag(),
			Message: issueMessage(fe),
		})
	}
	return apperrors.Validation("Invalid request data", issues)
}

func decodeError(err error, body []byte) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, io.EOF):
		return apperrors.BadRequest("Request body is required")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return apperrors.BadRequest("Request body is not valid JSON")
	case errors.As(err, &typeErr):
		path := valuePath(body, typeErr.Offset)
		if path == nil {
			path = issuePath("body." + typeErr.Field)
		}
		return apperrors.Validation("Invalid request data", []apperrors.Issue{{
			Path:    path,
			Code:    "invalid_type",
			Message: fmt.Sprintf("Expected %s", typeErr.Type.String()),
		}})
	case errors.As(err, &maxErr):
		return apperrors.BadRequest("Request body is too large")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return apperrors.Validation("Invalid request data", []apperrors.Issue{{
			Path:    []string{field},
			Code:    "unrecognized_key",
			Message: fmt.Sprintf("Unrecognized key %q", field),
		}})
	default:
		return apperrors.Validation("Invalid request data", []apperrors.Issue{{
			Path:    []string{},
			Code:    "invalid_type",
			Message: err.Error(),
		}})
	}
}

type jsonFrame struct {
	array bool
	index int
	key   string
}

// valuePath walks body to the value the decoder was reading at offset and
// returns its path, array indices included. The decoder reports offset just
// past a scalar or just past the opening delimiter of an object or array.
// It returns nil when body cannot be walked that far.
func valuePath(body []byte, offset int64) []string {
	if body == nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	var stack []*jsonFrame
	expectKey := false
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		if d, ok := tok.(json.Delim); ok && (d == '}' || d == ']') {
			stack = stack[:len(stack)-1]
			expectKey = len(stack) > 0 && !stack[len(stack)-1].array
			continue
		}
		if expectKey {
			stack[len(stack)-1].key, _ = tok.(string)
			expectKey = false
			continue
		}

		if n := len(stack); n > 0 && stack[n-1].array {
			stack[n-1].index++
		}
		if dec.InputOffset() >= offset {
			path := make([]string, 0, len(stack))
			for _, f := range stack {
				if f.array {
					path = append(path, strconv.Itoa(f.index))
				} else {
					path = append(path, f.key)
				}
			}
			return path
		}

		if d, ok := tok.(json.Delim); ok {
			stack = append(stack, &jsonFrame{array: d == '[', index: -1})
			expectKey = d == '{'
			continue
		}
		expectKey = len(stack) > 0 && !stack[len(stack)-1].array
	}
}

// issuePath turns "dto.items[0].price" into ["items", "0", "price"]. The
// leading struct name is dropped.
func issuePath(namespace string) []string {
	parts := strings.FieldsFunc(namespace, func(r rune) bool {
		return r == '.' || r == '[' || r == ']'
	})
	if len(parts) <= 1 {
		return []string{}
	}
	return parts[1:]
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "email":
		return "Invalid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must contain at least %s character(s)", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("Must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must contain at most %s character(s)", fe.Param())
		}
		return fmt.Sprintf("Must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return "Invalid url"
	default:
		if msg, ok := customMessages[fe.Tag()]; ok {
			return msg
		}
		return fmt.Sprintf("Failed %q check", fe.Tag())
	}
}
