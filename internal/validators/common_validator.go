package validators

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"vipclub/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Register custom validation functions
	validate.RegisterValidation("tier", validateTier)
	validate.RegisterValidation("coupon_status", validateCouponStatus)
	validate.RegisterValidation("rfc3339", validateRFC3339)
	validate.RegisterStructValidation(validateStoredCouponUsage, StoredCouponRecord{})
}

// Common validation errors
var (
	ErrInvalidTier         = errors.New("invalid tier")
	ErrDuplicateInstanceID = errors.New("duplicate coupon instance id")
)

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// ValidateStruct validates a struct and returns detailed errors
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "", Tag: "invalid", Message: err.Error()}}
	}

	for _, fieldErr := range fieldErrors {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldErr.Field(),
			Tag:     fieldErr.Tag(),
			Value:   fmt.Sprintf("%v", fieldErr.Value()),
			Message: getErrorMessage(fieldErr),
		})
	}

	return validationErrors
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "tier":
		return "Invalid tier"
	case "coupon_status":
		return "Invalid coupon status"
	case "rfc3339":
		return "Timestamp must be RFC 3339"
	case "used_at_required":
		return "usedAt is required when status is used"
	case "used_at_forbidden":
		return "usedAt is only allowed when status is used"
	default:
		return fmt.Sprintf("Validation failed for %s", err.Field())
	}
}

// Custom validation functions
func validateTier(fl validator.FieldLevel) bool {
	return models.Tier(fl.Field().String()).Valid()
}

func validateCouponStatus(fl validator.FieldLevel) bool {
	switch models.CouponStatus(fl.Field().String()) {
	case models.CouponStatusAvailable, models.CouponStatusUsed, models.CouponStatusExpired:
		return true
	}
	return false
}

func validateRFC3339(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.RFC3339, fl.Field().String())
	return err == nil
}

// Helper functions for common validations
func IsValidTier(tier string) bool {
	return models.Tier(tier).Valid()
}
