package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"go.uber.org/zap"

	"github.com/lewas-lab/chatbot/internal/metrics"
	"github.com/lewas-lab/chatbot/pkg/logger"
	"github.com/lewas-lab/chatbot/pkg/utils"
)

// CognitoAPI is the subset of the Cognito user pool client the gateway uses.
type CognitoAPI interface {
	SignUp(ctx context.Context, params *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	ResendConfirmationCode(ctx context.Context, params *cip.ResendConfirmationCodeInput, optFns ...func(*cip.Options)) (*cip.ResendConfirmationCodeOutput, error)
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	ForgotPassword(ctx context.Context, params *cip.ForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, params *cip.ConfirmForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error)
}

type Tokens struct {
	AccessToken string
	IDToken     string
}

// Result is the outcome of one gateway operation. Message is always set and
// ready to show to the user.
type Result struct {
	Kind    ErrorKind
	Message string
	Tokens  *Tokens
}

func (r Result) OK() bool {
	return r.Kind == KindNone
}

type SignUpInput struct {
	Username        string
	Email           string
	Name            string
	Password        string
	ConfirmPassword string
}

type ResetInput struct {
	Username        string
	Code            string
	Password        string
	ConfirmPassword string
}

// Gateway is a stateless pass-through to a Cognito user pool app client.
type Gateway struct {
	client       CognitoAPI
	clientID     string
	clientSecret string
}

func NewGateway(client CognitoAPI, clientID, clientSecret string) *Gateway {
	logger.Info("Auth gateway initialized", zap.Bool("secret_hash", clientSecret != ""))
	return &Gateway{
		client:       client,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (g *Gateway) SignUp(ctx context.Context, in SignUpInput) Result {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if in.Username == "" {
		return invalid("Username is required.")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return invalid("Please enter a valid email address.")
	}
	if res, ok := validateNewPassword(in.Password, in.ConfirmPassword); !ok {
		return res
	}

	_, err := g.client.SignUp(ctx, &cip.SignUpInput{
		ClientId:   aws.String(g.clientID),
		Username:   aws.String(in.Username),
		Password:   aws.String(in.Password),
		SecretHash: g.secretHash(in.Username),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("preferred_username"), Value: aws.String(in.Username)},
			{Name: aws.String("email"), Value: aws.String(in.Email)},
			{Name: aws.String("name"), Value: aws.String(strings.TrimSpace(in.Name))},
		},
	})
	return g.finish("sign_up", in.Username, err,
		"Sign-up successful! Please check your email to confirm your account.",
		expected{KindUserExists, KindInvalidPassword, KindInvalidEmail})
}

func (g *Gateway) ConfirmSignUp(ctx context.Context, username, code string) Result {
	username, code = strings.TrimSpace(username), strings.TrimSpace(code)
	if username == "" || code == "" {
		return invalid("Username and confirmation code are required.")
	}

	_, err := g.client.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(g.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
		SecretHash:       g.secretHash(username),
	})
	return g.finish("confirm_sign_up", username, err,
		"Account confirmed! You can now log in.",
		expected{KindCodeMismatch, KindCodeExpired, KindUserNotFound})
}

func (g *Gateway) ResendConfirmation(ctx context.Context, username string) Result {
	username = strings.TrimSpace(username)
	if username == "" {
		return invalid("Username is required.")
	}

	_, err := g.client.ResendConfirmationCode(ctx, &cip.ResendConfirmationCodeInput{
		ClientId:   aws.String(g.clientID),
		Username:   aws.String(username),
		SecretHash: g.secretHash(username),
	})
	return g.finish("resend_confirmation", username, err,
		"A new confirmation code has been sent to your email.",
		expected{KindUserNotFound})
}

// Login runs USER_PASSWORD_AUTH. On success the result carries both tokens.
func (g *Gateway) Login(ctx context.Context, username, password string) Result {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return invalid("Username/email and password are required.")
	}

	params := map[string]string{
		"USERNAME": username,
		"PASSWORD": password,
	}
	if hash := g.secretHash(username); hash != nil {
		params["SECRET_HASH"] = *hash
	}

	out, err := g.client.InitiateAuth(ctx, &cip.InitiateAuthInput{
		ClientId:       aws.String(g.clientID),
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		AuthParameters: params,
	})
	if err == nil && (out == nil || out.AuthenticationResult == nil) {
		challenge := ""
		if out != nil {
			challenge = string(out.ChallengeName)
		}
		err = fmt.Errorf("login requires an unsupported challenge %q", challenge)
	}

	res := g.finish("login", username, err,
		"You are logged in!",
		expected{KindNotAuthorized, KindUserNotConfirmed})
	if res.OK() {
		res.Tokens = &Tokens{
			AccessToken: aws.ToString(out.AuthenticationResult.AccessToken),
			IDToken:     aws.ToString(out.AuthenticationResult.IdToken),
		}
	}
	return res
}

func (g *Gateway) ForgotPassword(ctx context.Context, username string) Result {
	username = strings.TrimSpace(username)
	if username == "" {
		return invalid("Username or email is required.")
	}

	_, err := g.client.ForgotPassword(ctx, &cip.ForgotPasswordInput{
		ClientId:   aws.String(g.clientID),
		Username:   aws.String(username),
		SecretHash: g.secretHash(username),
	})
	return g.finish("forgot_password", username, err,
		"Password reset requested. Please check your email for the confirmation code.",
		expected{KindUserNotFound})
}

func (g *Gateway) ConfirmForgotPassword(ctx context.Context, in ResetInput) Result {
	in.Username, in.Code = strings.TrimSpace(in.Username), strings.TrimSpace(in.Code)
	if in.Username == "" || in.Code == "" {
		return invalid("Username and confirmation code are required.")
	}
	if res, ok := validateNewPassword(in.Password, in.ConfirmPassword); !ok {
		return res
	}

	_, err := g.client.ConfirmForgotPassword(ctx, &cip.ConfirmForgotPasswordInput{
		ClientId:         aws.String(g.clientID),
		Username:         aws.String(in.Username),
		ConfirmationCode: aws.String(in.Code),
		Password:         aws.String(in.Password),
		SecretHash:       g.secretHash(in.Username),
	})
	return g.finish("confirm_forgot_password", in.Username, err,
		"Password reset successful! You can now log in with your new password.",
		expected{KindCodeMismatch, KindCodeExpired, KindInvalidPassword})
}

func (g *Gateway) finish(operation, username string, err error, success string, allowed expected) Result {
	if err == nil {
		metrics.AuthOperations.WithLabelValues(operation, KindNone.String()).Inc()
		logger.Info("Auth operation succeeded",
			zap.String("operation", operation),
			zap.String("user", utils.HashString(username)),
		)
		return Result{Kind: KindNone, Message: success}
	}

	kind, message := classify(err, allowed)
	metrics.AuthOperations.WithLabelValues(operation, kind.String()).Inc()

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("user", utils.HashString(username)),
		zap.String("kind", kind.String()),
	}
	if kind == KindUnknown {
		logger.Error("Auth operation failed", append(fields, zap.Error(err))...)
	} else {
		logger.Info("Auth operation rejected", fields...)
	}

	return Result{Kind: kind, Message: message}
}

// secretHash is required by app clients that have a client secret.
func (g *Gateway) secretHash(username string) *string {
	if g.clientSecret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(g.clientSecret))
	mac.Write([]byte(username + g.clientID))
	return aws.String(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

func validateNewPassword(password, confirm string) (Result, bool) {
	if password != confirm {
		return invalid("Passwords do not match."), false
	}
	if unmet := unmetRules(CheckPassword(password)); len(unmet) > 0 {
		return invalid("Password does not meet the requirements: " + strings.Join(unmet, ", ") + "."), false
	}
	return Result{}, true
}

func invalid(message string) Result {
	return Result{Kind: KindValidation, Message: message}
}
