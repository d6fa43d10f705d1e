package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	"github.com/smallbiznis/clubhouse/internal/authorization"
	billingdomain "github.com/smallbiznis/clubhouse/internal/billing/domain"
	captaindomain "github.com/smallbiznis/clubhouse/internal/captain/domain"
	draftdomain "github.com/smallbiznis/clubhouse/internal/draft/domain"
	financedomain "github.com/smallbiznis/clubhouse/internal/finance/domain"
	gamedomain "github.com/smallbiznis/clubhouse/internal/game/domain"
	guestdomain "github.com/smallbiznis/clubhouse/internal/guest/domain"
	ledgerdomain "github.com/smallbiznis/clubhouse/internal/ledger/domain"
	organizationdomain "github.com/smallbiznis/clubhouse/internal/organization/domain"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrTooManyRequests    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// bindingError turns a gin binding failure into field level errors.
func bindingError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return invalidRequestError()
	}

	out := &ValidationErrors{Errors: make([]ValidationError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		field := fe.Field()
		code := "invalid_" + field
		message := fmt.Sprintf("invalid %s", field)
		switch fe.Tag() {
		case "required":
			code = "required"
			message = fmt.Sprintf("%s is required", field)
		case "oneof":
			message = fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
		case "min", "gte", "gt":
			message = fmt.Sprintf("%s is below the minimum %s", field, fe.Param())
		case "max", "lte", "lt":
			message = fmt.Sprintf("%s is above the maximum %s", field, fe.Param())
		}
		out.Errors = append(out.Errors, ValidationError{Field: field, Code: code, Message: message})
	}
	return out
}

var registerTagNameOnce sync.Once

// useJSONFieldNames makes validator report json names instead of Go names.
func useJSONFieldNames() {
	registerTagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})
	})
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isForbiddenError(err):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog reports the payload type and a stable code for the
// request log line.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if payload.Type != "internal_error" && err != nil {
		code = err.Error()
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationErrors = []error{
	ErrInvalidRequest,

	organizationdomain.ErrInvalidName,
	organizationdomain.ErrInvalidUser,
	organizationdomain.ErrInvalidOrganization,
	organizationdomain.ErrInvalidRole,
	organizationdomain.ErrInvalidMemberType,
	organizationdomain.ErrInvalidMember,
	organizationdomain.ErrCannotChangeSelf,
	organizationdomain.ErrCannotRemoveSelf,
	organizationdomain.ErrLastOwner,

	guestdomain.ErrInvalidOrganization,
	guestdomain.ErrInvalidName,
	guestdomain.ErrInvalidPhone,
	guestdomain.ErrInvalidGuest,

	gamedomain.ErrInvalidOrganization,
	gamedomain.ErrInvalidTitle,
	gamedomain.ErrInvalidStartAt,
	gamedomain.ErrInvalidGame,
	gamedomain.ErrInvalidMember,
	gamedomain.ErrInvalidAttendance,

	teamdomain.ErrInvalidOrganization,
	teamdomain.ErrInvalidTarget,
	teamdomain.ErrInvalidTeamSide,
	teamdomain.ErrMemberNotGoing,
	teamdomain.ErrGuestNotInGame,

	draftdomain.ErrInvalidOrganization,
	captaindomain.ErrInvalidMode,

	billingdomain.ErrInvalidOrganization,
	billingdomain.ErrInvalidCycleKey,
	billingdomain.ErrInvalidCycleType,
	billingdomain.ErrInvalidCycleWeeks,
	billingdomain.ErrInvalidBillingMode,
	billingdomain.ErrInvalidDueDay,
	billingdomain.ErrInvalidAnchorDate,
	billingdomain.ErrInvalidAmount,
	billingdomain.ErrInvalidStatus,
	billingdomain.ErrInvalidCharge,

	ledgerdomain.ErrInvalidOrganization,
	ledgerdomain.ErrInvalidType,
	ledgerdomain.ErrInvalidAmount,
	ledgerdomain.ErrInvalidMember,

	financedomain.ErrInvalidOrganization,

	auditdomain.ErrInvalidOrganization,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
}

func isValidationError(err error) bool {
	return matchesAny(err, validationErrors)
}

func isForbiddenError(err error) bool {
	return matchesAny(err, []error{
		ErrForbidden,
		authorization.ErrForbidden,
		organizationdomain.ErrForbidden,
		organizationdomain.ErrNotMember,
		guestdomain.ErrForbidden,
		guestdomain.ErrNotMember,
	})
}

func isNotFoundError(err error) bool {
	return matchesAny(err, []error{
		ErrNotFound,
		organizationdomain.ErrOrganizationNotFound,
		organizationdomain.ErrMemberNotFound,
		guestdomain.ErrGuestNotFound,
		guestdomain.ErrGameGuestNotFound,
		gamedomain.ErrGameNotFound,
		billingdomain.ErrChargeNotFound,
		gorm.ErrRecordNotFound,
	})
}

var conflictErrors = []error{
	ErrConflict,

	draftdomain.ErrDraftNotStarted,
	draftdomain.ErrDraftFinished,
	draftdomain.ErrDraftNotInProgress,
	draftdomain.ErrNotYourTurn,
	draftdomain.ErrAlreadyPicked,
	draftdomain.ErrPickConflict,

	captaindomain.ErrDuplicateCaptain,
	captaindomain.ErrNotEnoughCandidates,

	organizationdomain.ErrMemberExists,

	guestdomain.ErrDuplicatePhone,
	guestdomain.ErrGuestInUse,
	guestdomain.ErrGuestAlreadyAdded,

	billingdomain.ErrChargeAlreadyPaid,
	billingdomain.ErrChargeVoided,
	billingdomain.ErrInvalidTransition,
	billingdomain.ErrChargeNotPaid,

	gorm.ErrDuplicatedKey,
}

func isConflictError(err error) bool {
	return matchesAny(err, conflictErrors)
}

// conflictMessage exposes the rule that was violated so clients can re-read
// state and retry.
func conflictMessage(err error) string {
	for _, target := range conflictErrors {
		if target == ErrConflict || target == gorm.ErrDuplicatedKey {
			continue
		}
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "conflict"
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func validationErrorCode(err error) string {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "member_not_going":
		return "member is not going to this game"
	case "guest_not_in_game":
		return "guest is not part of this game"
	case "last_owner":
		return "organization must keep at least one owner"
	case "cannot_change_own_role":
		return "cannot change your own role"
	case "cannot_remove_self":
		return "cannot remove yourself"
	default:
		return "invalid value"
	}
}
