package http

import (
	"github.com/otp-auth-api/internal/infrastructure/dynamo"
	googleinfra "github.com/otp-auth-api/internal/infrastructure/google"
	jwtinfra "github.com/otp-auth-api/internal/infrastructure/jwt"
	s3infra "github.com/otp-auth-api/internal/infrastructure/s3"
	"github.com/otp-auth-api/internal/infrastructure/smtp"
	"github.com/otp-auth-api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	SessionRepo      *dynamo.SessionRepo
	VerificationRepo *dynamo.VerificationRepo
	S3Store          *s3infra.Store
	Mailer           smtp.Mailer
	SMSSender        sns.SMSSender
	Codec            *jwtinfra.Codec
	GoogleVerifier   *googleinfra.Verifier
}
