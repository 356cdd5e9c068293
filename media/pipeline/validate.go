package pipeline

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/leeforge/imgpipe/errors"
)

// Result is the outcome of static descriptor validation.
type Result struct {
	Valid      bool
	Violations []string
}

// Err converts an invalid result into a validation AppError.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return apperrors.NewValidation("invalid pipeline descriptor", r.Violations...)
}

var (
	fieldValidator     *validator.Validate
	fieldValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	fieldValidatorOnce.Do(func() {
		fieldValidator = validator.New(validator.WithRequiredStructEnabled())
		fieldValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return fieldValidator
}

// Validate checks the descriptor without touching any image. Every problem is
// reported, in operation order.
func Validate(d Descriptor) Result {
	var violations []string

	if len(d.Operations) == 0 {
		violations = append(violations, "pipeline must contain at least one operation")
	}

	for i, op := range d.Operations {
		for _, msg := range validateOperation(op) {
			violations = append(violations, fmt.Sprintf("pipeline[%d] (%s): %s", i, opLabel(op), msg))
		}
	}

	return Result{Valid: len(violations) == 0, Violations: violations}
}

func opLabel(op Operation) string {
	if op == nil || op.Kind() == "" {
		return "?"
	}
	return string(op.Kind())
}

func validateOperation(op Operation) []string {
	var msgs []string

	switch v := op.(type) {
	case nil:
		return []string{"missing operation"}
	case Unknown:
		if v.Tag == "" {
			return []string{"missing op tag"}
		}
		return []string{fmt.Sprintf("unrecognized operation %q", v.Tag)}
	case Resize:
		msgs = append(msgs, validateResize(v)...)
	case Crop:
		msgs = append(msgs, validateCrop(v)...)
	case Convert:
		msgs = append(msgs, validateConvert(v)...)
	case Metadata:
	}

	return append(msgs, fieldViolations(op)...)
}

func validateResize(op Resize) []string {
	var msgs []string
	if op.Mode == "" {
		return append(msgs, "mode is required")
	}
	if op.Mode.NeedsWidth() && op.Width == nil {
		msgs = append(msgs, fmt.Sprintf("mode %q requires width", op.Mode))
	}
	if op.Mode.NeedsHeight() && op.Height == nil {
		msgs = append(msgs, fmt.Sprintf("mode %q requires height", op.Mode))
	}
	if op.Width != nil && *op.Width <= 0 {
		msgs = append(msgs, "width must be positive")
	}
	if op.Height != nil && *op.Height <= 0 {
		msgs = append(msgs, "height must be positive")
	}
	return msgs
}

func validateCrop(op Crop) []string {
	var msgs []string
	if op.PixelValue != nil && *op.PixelValue < 0 {
		msgs = append(msgs, "pixelValue must not be negative")
	}
	if op.PercentValue != nil && (*op.PercentValue < 0 || *op.PercentValue > 100) {
		msgs = append(msgs, "percentValue must be between 0 and 100")
	}
	if op.Left != nil && *op.Left < 0 {
		msgs = append(msgs, "left must not be negative")
	}
	if op.Top != nil && *op.Top < 0 {
		msgs = append(msgs, "top must not be negative")
	}
	if op.Width != nil && *op.Width <= 0 {
		msgs = append(msgs, "width must be positive")
	}
	if op.Height != nil && *op.Height <= 0 {
		msgs = append(msgs, "height must be positive")
	}
	return msgs
}

func validateConvert(op Convert) []string {
	var msgs []string
	if op.Format == "" {
		msgs = append(msgs, "format is required")
	}
	if op.CQLevel != nil && (*op.CQLevel < 0 || *op.CQLevel > 63) {
		msgs = append(msgs, "cqLevel must be between 0 and 63")
	}
	if op.Speed != nil && (*op.Speed < 0 || *op.Speed > 10) {
		msgs = append(msgs, "speed must be between 0 and 10")
	}
	return msgs
}

// fieldViolations runs the struct tag rules (enums, quality range).
func fieldViolations(op Operation) []string {
	err := getValidator().Struct(op)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, fieldMessage(fe))
	}
	return msgs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s %q must be one of [%s]", fe.Field(), fmt.Sprint(fe.Value()), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
