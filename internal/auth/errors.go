package auth

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
)

type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindValidation
	KindUserExists
	KindUserNotConfirmed
	KindCodeMismatch
	KindCodeExpired
	KindInvalidPassword
	KindInvalidEmail
	KindUserNotFound
	KindNotAuthorized
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindValidation:
		return "validation"
	case KindUserExists:
		return "user_exists"
	case KindUserNotConfirmed:
		return "user_not_confirmed"
	case KindCodeMismatch:
		return "code_mismatch"
	case KindCodeExpired:
		return "code_expired"
	case KindInvalidPassword:
		return "invalid_password"
	case KindInvalidEmail:
		return "invalid_email"
	case KindUserNotFound:
		return "user_not_found"
	case KindNotAuthorized:
		return "not_authorized"
	default:
		return "unknown"
	}
}

var kindMessages = map[ErrorKind]string{
	KindUserExists:       "Username already exists.",
	KindUserNotConfirmed: "User is not confirmed. Please check your email.",
	KindCodeMismatch:     "Invalid confirmation code.",
	KindCodeExpired:      "Confirmation code has expired.",
	KindInvalidPassword:  "Password does not meet the requirements.",
	KindInvalidEmail:     "Invalid email address.",
	KindUserNotFound:     "Username or email not found.",
	KindNotAuthorized:    "Incorrect username/email or password.",
}

// expected lists the provider errors each operation translates. Anything
// else is reported with its raw description.
type expected []ErrorKind

func (e expected) has(k ErrorKind) bool {
	for _, kind := range e {
		if kind == k {
			return true
		}
	}
	return false
}

// classify maps a Cognito error to its kind and user-facing message.
func classify(err error, allowed expected) (ErrorKind, string) {
	kind := kindOf(err)
	if kind != KindUnknown && allowed.has(kind) {
		return kind, kindMessages[kind]
	}
	return KindUnknown, "Error: " + describe(err)
}

func kindOf(err error) ErrorKind {
	var (
		userExists     *types.UsernameExistsException
		notConfirmed   *types.UserNotConfirmedException
		codeMismatch   *types.CodeMismatchException
		codeExpired    *types.ExpiredCodeException
		invalidPass    *types.InvalidPasswordException
		lambdaValidate *types.UserLambdaValidationException
		notFound       *types.UserNotFoundException
		notAuthorized  *types.NotAuthorizedException
	)

	switch {
	case errors.As(err, &userExists):
		return KindUserExists
	case errors.As(err, &notConfirmed):
		return KindUserNotConfirmed
	case errors.As(err, &codeMismatch):
		return KindCodeMismatch
	case errors.As(err, &codeExpired):
		return KindCodeExpired
	case errors.As(err, &invalidPass):
		return KindInvalidPassword
	case errors.As(err, &lambdaValidate):
		return KindInvalidEmail
	case errors.As(err, &notFound):
		return KindUserNotFound
	case errors.As(err, &notAuthorized):
		return KindNotAuthorized
	default:
		return KindUnknown
	}
}

func describe(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorMessage() != "" {
		return apiErr.ErrorMessage()
	}
	return err.Error()
}
