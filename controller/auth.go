package controller

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"lise-messenger/middleware"
	"lise-messenger/model"
	"lise-messenger/utils"
)

type AuthSignupInput struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginInput struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type AuthRenewTokenInput struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthOtpSecretInput struct {
	Password string `json:"password"`
}

type AuthOtpVerifyInput struct {
	Token string `json:"token"`
}

type AuthOtpValidateInput struct {
	Token string `json:"token"`
}

type AuthOtpDisableInput struct {
	Password string `json:"password"`
	Token    string `json:"token"`
}

// RefreshStore keeps the one valid refresh token per profile.
type RefreshStore interface {
	SaveRefresh(ctx context.Context, profileID, token string, ttl time.Duration) error
	Refresh(ctx context.Context, profileID string) (string, error)
}

// RoleGranter assigns a profile to an RBAC role.
type RoleGranter interface {
	AddGroupingPolicy(params ...interface{}) (bool, error)
}

const defaultRole = "user"

type Auth struct {
	db         *gorm.DB
	store      RefreshStore
	roles      RoleGranter
	tokens     utils.TokenConfig
	otpIssuer  string
	bcryptCost int
	log        zerolog.Logger
}

func NewAuth(db *gorm.DB, store RefreshStore, roles RoleGranter, tokens utils.TokenConfig, otpIssuer string, log zerolog.Logger) *Auth {
	return &Auth{
		db:         db,
		store:      store,
		roles:      roles,
		tokens:     tokens,
		otpIssuer:  otpIssuer,
		bcryptCost: 14,
		log:        log.With().Str("component", "auth").Logger(),
	}
}

// WithBcryptCost lowers the hashing cost, for tests.
func (a *Auth) WithBcryptCost(cost int) *Auth {
	a.bcryptCost = cost
	return a
}

func (a *Auth) profile(c *fiber.Ctx) (*model.Profile, error) {
	profile := new(model.Profile)
	err := a.db.WithContext(c.UserContext()).Where("id = ?", middleware.ClaimID(c)).First(profile).Error
	return profile, err
}

// issue generates a token pair and stores the refresh token.
func (a *Auth) issue(ctx context.Context, profileID string, otp bool) (*utils.Tokens, error) {
	tokens, err := utils.GenerateTokens(a.tokens, profileID, otp)
	if err != nil {
		return nil, err
	}
	if err := a.store.SaveRefresh(ctx, profileID, tokens.Refresh, a.tokens.RefreshExpire); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (a *Auth) Signup(c *fiber.Ctx) error {
	input := new(AuthSignupInput)
	if err := c.BodyParser(input); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if input.Username == "" || input.Password == "" {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}

	db := a.db.WithContext(c.UserContext())

	// If existed email is found, return error
	if count := db.Where(&model.Profile{Email: input.Email}).Limit(1).Find(&[]model.Profile{}).RowsAffected; count > 0 {
		return failure(c, fiber.StatusBadRequest, "Email is already registered")
	}

	// If existed username is found, return error
	if count := db.Where(&model.Profile{Username: input.Username}).Limit(1).Find(&[]model.Profile{}).RowsAffected; count > 0 {
		return failure(c, fiber.StatusBadRequest, "Username is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), a.bcryptCost)
	if err != nil {
		return internalError(c)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      a.otpIssuer,
		AccountName: input.Email,
		SecretSize:  15,
	})
	if err != nil {
		return internalError(c)
	}

	profile := &model.Profile{
		Username:  input.Username,
		FullName:  strings.TrimSpace(input.FullName),
		Email:     input.Email,
		Password:  string(hash),
		Role:      defaultRole,
		OtpSecret: key.Secret(),
	}
	if err := db.Create(profile).Error; err != nil {
		a.log.Error().Err(err).Msg("auth.signup_failed")
		return internalError(c)
	}

	if _, err := a.roles.AddGroupingPolicy(profile.ID, profile.Role); err != nil {
		a.log.Warn().Err(err).Str("profile_id", profile.ID).Msg("auth.role_grant_failed")
	}

	a.log.Info().Str("profile_id", profile.ID).Msg("auth.signup")
	return success(c, fiber.Map{
		"id": profile.ID,
	})
}

func (a *Auth) Signin(c *fiber.Ctx) error {
	input := new(AuthLoginInput)
	if err := c.BodyParser(input); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}

	profile := new(model.Profile)
	db := a.db.WithContext(c.UserContext())

	var err error
	if _, errParse := mail.ParseAddress(input.Login); errParse == nil {
		err = db.Where(&model.Profile{Email: input.Login}).First(profile).Error
	} else {
		err = db.Where(&model.Profile{Username: input.Login}).First(profile).Error
	}
	if err != nil {
		return failure(c, fiber.StatusUnauthorized, "Invalid login or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(input.Password)); err != nil {
		return failure(c, fiber.StatusUnauthorized, "Invalid login or password")
	}

	tokens, err := a.issue(c.UserContext(), profile.ID, profile.OtpEnabled)
	if err != nil {
		a.log.Error().Err(err).Msg("auth.issue_failed")
		return internalError(c)
	}

	return success(c, fiber.Map{
		"access":  tokens.Access,
		"refresh": tokens.Refresh,
		"2fa":     profile.OtpEnabled,
	})
}

func (a *Auth) TokenRenew(c *fiber.Ctx) error {
	renew := new(AuthRenewTokenInput)
	if err := c.BodyParser(renew); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}

	claims, err := utils.CheckAndExtractTokenMetadata(renew.RefreshToken, a.tokens.RefreshKey)
	if err != nil {
		return failure(c, fiber.StatusUnauthorized, "Invalid token")
	}

	stored, err := a.store.Refresh(c.UserContext(), claims.Id)
	if err != nil || stored != renew.RefreshToken {
		return failure(c, fiber.StatusUnauthorized, "Unauthorized, your refresh token was already used")
	}

	tokens, err := a.issue(c.UserContext(), claims.Id, claims.Otp)
	if err != nil {
		return internalError(c)
	}

	return success(c, fiber.Map{
		"access":  tokens.Access,
		"refresh": tokens.Refresh,
		"2fa":     claims.Otp,
	})
}

func (a *Auth) OtpSecret(c *fiber.Ctx) error {
	secret := new(AuthOtpSecretInput)
	if err := c.BodyParser(secret); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}

	profile, err := a.profile(c)
	if err != nil {
		return internalError(c)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(secret.Password)); err != nil {
		return failure(c, fiber.StatusUnauthorized, "Invalid password")
	}

	return success(c, fiber.Map{
		"secret": profile.OtpSecret,
		"url": fmt.Sprintf("otpauth://totp/%s:%s?algorithm=SHA1&digits=6&issuer=%s&period=30&secret=%s",
			a.otpIssuer,
			profile.Email,
			a.otpIssuer,
			profile.OtpSecret,
		),
	})
}

func (a *Auth) OtpVerify(c *fiber.Ctx) error {
	verify := new(AuthOtpVerifyInput)
	if err := c.BodyParser(verify); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}

	profile, err := a.profile(c)
	if err != nil {
		return internalError(c)
	}

	if profile.OtpEnabled {
		return failure(c, fiber.StatusConflict, "Verification has already been performed earlier")
	}

	if !totp.Validate(verify.Token, profile.OtpSecret) {
		return failure(c, fiber.StatusUnauthorized, "Invalid token")
	}

	if err := a.setOtp(c, profile.ID, true); err != nil {
		return internalError(c)
	}
	return success(c, nil)
}

func (a *Auth) OtpValidate(c *fiber.Ctx) error {
	validate := new(AuthOtpValidateInput)
	if err := c.BodyParser(validate); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}

	profile, err := a.profile(c)
	if err != nil {
		return internalError(c)
	}

	if !profile.OtpEnabled {
		return failure(c, fiber.StatusConflict, "2FA has been disabled")
	}

	if !totp.Validate(validate.Token, profile.OtpSecret) {
		return failure(c, fiber.StatusUnauthorized, "Invalid token")
	}

	tokens, err := a.issue(c.UserContext(), profile.ID, false)
	if err != nil {
		return internalError(c)
	}

	return success(c, fiber.Map{
		"access":  tokens.Access,
		"refresh": tokens.Refresh,
	})
}

func (a *Auth) OtpDisable(c *fiber.Ctx) error {
	disable := new(AuthOtpDisableInput)
	if err := c.BodyParser(disable); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}

	profile, err := a.profile(c)
	if err != nil {
		return internalError(c)
	}

	if !profile.OtpEnabled {
		return failure(c, fiber.StatusConflict, "2fa not enabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(disable.Password)); err != nil {
		return failure(c, fiber.StatusUnauthorized, "Invalid password")
	}

	if !totp.Validate(disable.Token, profile.OtpSecret) {
		return failure(c, fiber.StatusUnauthorized, "Invalid token")
	}

	if err := a.setOtp(c, profile.ID, false); err != nil {
		return internalError(c)
	}
	return success(c, nil)
}

func (a *Auth) setOtp(c *fiber.Ctx, profileID string, enabled bool) error {
	err := a.db.WithContext(c.UserContext()).Model(&model.Profile{}).
		Where("id = ?", profileID).
		Update("otp_enabled", enabled).Error
	if err != nil {
		a.log.Error().Err(err).Str("profile_id", profileID).Msg("auth.otp_update_failed")
	}
	return err
}
