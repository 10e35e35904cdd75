package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace-iam/internal/security"
	tenantdomain "marketplace-iam/internal/tenant/domain"
	tenantrepo "marketplace-iam/internal/tenant/repository"
	tokendomain "marketplace-iam/internal/token/domain"
	tokenrepo "marketplace-iam/internal/token/repository"
	userdomain "marketplace-iam/internal/user/domain"
	userrepo "marketplace-iam/internal/user/repository"
)

// Sentinel errors for the auth service; the handler maps them to HTTP codes.
var (
	ErrBadCredentials = errors.New("bad credentials")
	ErrInvalidTenant  = errors.New("unknown or inactive tenant")
	ErrTenantRequired = errors.New("tenant id required for this role")
	ErrValidation     = errors.New("validation failed")
)

// RegisterInput carries a registration request. Exactly one of Email/Phone is
// required; TenantID is optional depending on Role.
type RegisterInput struct {
	Email    string
	Phone    string
	Password string
	TenantID string
	Role     string
}

// LoginInput carries a login request with one identifier and a password.
type LoginInput struct {
	Email    string
	Phone    string
	Password string
}

// AuthResult is the outcome of Register and Login: a token pair plus the
// identity it was issued for. RefreshToken is cleartext and returned exactly
// once.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
	TenantID     string
	Roles        []userdomain.Role
}

// RefreshResult is the outcome of Refresh: a new access token only, since the
// refresh token is not rotated.
type RefreshResult struct {
	AccessToken string
	ExpiresAt   time.Time
}

// UserRepo is the minimal user repository needed by the auth service outside
// of the registration transaction.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetByPhone(ctx context.Context, phone string) (*userdomain.User, error)
	ListRoles(ctx context.Context, userID string) ([]userdomain.Role, error)
}

// TokenRepo is the minimal refresh-token repository needed by the auth service.
type TokenRepo interface {
	Create(ctx context.Context, t *tokendomain.RefreshToken) error
	GetByHash(ctx context.Context, hash string) (*tokendomain.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

// KeyProvider resolves the current signing key and the verification key set.
type KeyProvider interface {
	Primary(ctx context.Context, at time.Time) (security.SigningKeyRef, error)
	KeySet(ctx context.Context, at time.Time) (security.StaticKeySet, error)
}

// Revoker records token and user revocations in the revocation index.
type Revoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	SetUserEpoch(ctx context.Context, userID string, t time.Time) error
}

// AuditLogger records auth events best-effort. Implementations must never
// fail the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, tenantID, userID, action, resource, metadata string)
}

// AuthService implements register, login, refresh, logout and logout-all.
// Registration runs in a single database transaction; db is used to open it
// and the repositories inside join it.
type AuthService struct {
	db       *sql.DB
	userRepo UserRepo
	tokens   TokenRepo
	keys     KeyProvider
	revoker  Revoker
	hasher   *security.Hasher
	minter   *security.TokenMinter
	audit    AuditLogger
}

// NewAuthService returns an AuthService with the given dependencies.
// audit may be nil; then no audit events are recorded.
func NewAuthService(
	db *sql.DB,
	userRepo UserRepo,
	tokens TokenRepo,
	keys KeyProvider,
	revoker Revoker,
	hasher *security.Hasher,
	minter *security.TokenMinter,
	audit AuditLogger,
) *AuthService {
	return &AuthService{
		db:       db,
		userRepo: userRepo,
		tokens:   tokens,
		keys:     keys,
		revoker:  revoker,
		hasher:   hasher,
		minter:   minter,
		audit:    audit,
	}
}

// Register creates a user, its role grant and, when the role calls for it, a
// new tenant, then issues a token pair. All writes and the token issuance
// commit in one transaction; a minting failure rolls everything back.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	role, err := userdomain.ParseRole(in.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	tenants := tenantrepo.NewPostgresRepository(tx)
	users := userrepo.NewPostgresRepository(tx)
	refreshTokens := tokenrepo.NewPostgresRepository(tx)

	tenantID, err := s.resolveTenant(ctx, tenants, in, role)
	if err != nil {
		return nil, err
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password, salt)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hash,
		Salt:         salt,
		TenantID:     tenantID,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := users.GrantRole(ctx, user.ID, role); err != nil {
		return nil, err
	}

	result, err := s.issueTokens(ctx, refreshTokens, user.ID, tenantID, []userdomain.Role{role})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.logEvent(ctx, tenantID, user.ID, "auth.register", "user", string(role))
	return result, nil
}

// Login authenticates by email or phone and password and issues a token pair.
// Every precondition failure surfaces as ErrBadCredentials so responses do
// not reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Password == "" || (in.Email == "" && in.Phone == "") {
		return nil, ErrBadCredentials
	}

	var (
		user *userdomain.User
		err  error
	)
	if in.Email != "" {
		user, err = s.userRepo.GetByEmail(ctx, in.Email)
	} else {
		user, err = s.userRepo.GetByPhone(ctx, in.Phone)
	}
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Enabled {
		s.logEvent(ctx, "", "", "auth.login_failure", "user", in.Email+in.Phone)
		return nil, ErrBadCredentials
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash, user.Salt) {
		s.logEvent(ctx, user.TenantID, user.ID, "auth.login_failure", "user", "")
		return nil, ErrBadCredentials
	}

	roles, err := s.userRepo.ListRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	result, err := s.issueTokens(ctx, s.tokens, user.ID, user.TenantID, roles)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.TenantID, user.ID, "auth.login", "user", "")
	return result, nil
}

// Refresh exchanges a live refresh token for a new access token. The refresh
// token itself is not rotated. When accessToken is non-empty and parseable its
// subject must match the refresh token's user; an unparseable access token is
// ignored since clients commonly send an expired one.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, accessToken string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, ErrBadCredentials
	}
	record, err := s.tokens.GetByHash(ctx, s.hasher.HashRefreshToken(refreshToken))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if record == nil || !record.ActiveAt(now) {
		return nil, ErrBadCredentials
	}
	user, err := s.userRepo.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.Enabled {
		return nil, ErrBadCredentials
	}
	if accessToken != "" {
		if claims, perr := s.minter.ParseUnverified(accessToken); perr == nil {
			if claims.Subject != user.ID {
				return nil, ErrBadCredentials
			}
		}
	}

	roles, err := s.userRepo.ListRoles(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	key, err := s.keys.Primary(ctx, now)
	if err != nil {
		return nil, err
	}
	access, _, expiresAt, err := s.minter.MintAccess(key, user.ID, user.TenantID, roleStrings(roles))
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.TenantID, user.ID, "auth.refresh", "token", "")
	return &RefreshResult{AccessToken: access, ExpiresAt: expiresAt}, nil
}

// Logout revokes the refresh token named by its cleartext and blacklists the
// presented access token for its remaining life. The access token must verify
// and both tokens must belong to the same user.
func (s *AuthService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	claims, err := s.verifyAccess(ctx, accessToken)
	if err != nil {
		return err
	}
	record, err := s.tokens.GetByHash(ctx, s.hasher.HashRefreshToken(refreshToken))
	if err != nil {
		return err
	}
	if record == nil || record.UserID != claims.Subject || record.Revoked {
		return ErrBadCredentials
	}
	if err := s.tokens.Revoke(ctx, record.ID); err != nil {
		return err
	}
	if err := s.revoker.RevokeToken(ctx, claims.ID, security.RemainingTTL(claims, time.Now().UTC())); err != nil {
		return err
	}
	s.logEvent(ctx, claims.TenantID, claims.Subject, "auth.logout", "token", "")
	return nil
}

// LogoutAll revokes every live refresh token of the calling user, moves the
// user's revocation epoch to now and blacklists the calling access token.
// Access tokens issued at or before the epoch stop verifying everywhere.
func (s *AuthService) LogoutAll(ctx context.Context, accessToken string) error {
	claims, err := s.verifyAccess(ctx, accessToken)
	if err != nil {
		return err
	}
	if _, err := s.tokens.RevokeAllForUser(ctx, claims.Subject); err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := s.revoker.SetUserEpoch(ctx, claims.Subject, now); err != nil {
		return err
	}
	if err := s.revoker.RevokeToken(ctx, claims.ID, security.RemainingTTL(claims, now)); err != nil {
		return err
	}
	s.logEvent(ctx, claims.TenantID, claims.Subject, "auth.logout_all", "user", "")
	return nil
}

// resolveTenant applies the role-dependent tenant rules: an explicit tenant
// must exist and be active; CUSTOMER falls back to the default tenant; SELLER
// gets a fresh tenant named after the registrant; every other role must name
// its tenant explicitly.
func (s *AuthService) resolveTenant(ctx context.Context, tenants tenantrepo.Repository, in RegisterInput, role userdomain.Role) (string, error) {
	if in.TenantID != "" {
		t, err := tenants.GetByID(ctx, in.TenantID)
		if err != nil {
			return "", err
		}
		if t == nil || t.Status != tenantdomain.TenantStatusActive {
			return "", ErrInvalidTenant
		}
		return t.ID, nil
	}
	switch role {
	case userdomain.RoleCustomer:
		t, err := tenants.GetByID(ctx, tenantdomain.DefaultTenantID)
		if err != nil {
			return "", err
		}
		if t == nil {
			return "", ErrInvalidTenant
		}
		return t.ID, nil
	case userdomain.RoleSeller:
		name := in.Email
		if name == "" {
			name = in.Phone
		}
		now := time.Now().UTC()
		t := &tenantdomain.Tenant{
			ID:        uuid.New().String(),
			Name:      name,
			Status:    tenantdomain.TenantStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tenants.Create(ctx, t); err != nil {
			return "", err
		}
		return t.ID, nil
	default:
		return "", ErrTenantRequired
	}
}

// issueTokens mints the access token with the current primary key, mints a
// refresh token and persists its hash via repo.
func (s *AuthService) issueTokens(ctx context.Context, repo TokenRepo, userID, tenantID string, roles []userdomain.Role) (*AuthResult, error) {
	now := time.Now().UTC()
	key, err := s.keys.Primary(ctx, now)
	if err != nil {
		return nil, err
	}
	access, _, expiresAt, err := s.minter.MintAccess(key, userID, tenantID, roleStrings(roles))
	if err != nil {
		return nil, err
	}
	refresh, err := s.minter.MintRefresh()
	if err != nil {
		return nil, err
	}
	record := &tokendomain.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: s.hasher.HashRefreshToken(refresh),
		ExpiresAt: now.Add(s.minter.RefreshTTL()),
		CreatedAt: now,
	}
	if err := repo.Create(ctx, record); err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		UserID:       userID,
		TenantID:     tenantID,
		Roles:        roles,
	}, nil
}

func (s *AuthService) verifyAccess(ctx context.Context, accessToken string) (*security.AccessClaims, error) {
	if accessToken == "" {
		return nil, ErrBadCredentials
	}
	keys, err := s.keys.KeySet(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return s.minter.Verify(accessToken, keys, time.Now().UTC())
}

func (s *AuthService) logEvent(ctx context.Context, tenantID, userID, action, resource, metadata string) {
	if s.audit == nil {
		return
	}
	s.audit.LogEvent(ctx, tenantID, userID, action, resource, metadata)
}

func roleStrings(roles []userdomain.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func validatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
