package service

import (
	"context"
	"crypto/subtle"
	"io"
	"log/slog"
	"strings"
	"time"

	"purpaws/internal/cache"
	"purpaws/internal/config"
	"purpaws/internal/database"
	"purpaws/internal/middleware"
	"purpaws/internal/models"
	"purpaws/internal/repository"
	"purpaws/internal/storage"
	"purpaws/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// RegisterInput is the registration form.
type RegisterInput struct {
	Username            string
	Email               string
	Password            string
	PasswordConfirm     string
	Age                 *int
	City                string
	Phone               string
	IsAdminRegistration bool
	AdminPasscode       string
}

// ProfileInput carries the profile fields to change; nil fields are left alone.
type ProfileInput struct {
	Age   *int
	City  *string
	Phone *string
}

// LoginResult is a signed access token for an authenticated user.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// AccountService handles registration, credentials, sessions and profiles.
type AccountService struct {
	repos          *repository.Repositories
	blobs          storage.Store
	now            Clock
	jwtSecret      string
	tokenTTL       time.Duration
	adminPasscode  string
	maxStaffAdmins int
	maxImageBytes  int64
	bcryptCost     int
}

// NewAccountService wires the service from configuration.
func NewAccountService(repos *repository.Repositories, blobs storage.Store, cfg *config.Config, now Clock) *AccountService {
	return &AccountService{
		repos:          repos,
		blobs:          blobs,
		now:            now,
		jwtSecret:      cfg.JWTSecret,
		tokenTTL:       cfg.JWTTTL(),
		adminPasscode:  cfg.AdminRegistrationPasscode,
		maxStaffAdmins: cfg.MaxStaffAdmins,
		maxImageBytes:  cfg.ImageMaxUploadBytes(),
		bcryptCost:     bcrypt.DefaultCost,
	}
}

// Register validates the form and creates the user and profile together. Admin
// registration needs the configured passcode and a free admin slot.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.First(
		validation.ValidateUsername(in.Username),
		validation.ValidateEmail(in.Email),
		validation.ValidatePassword(in.Password),
		validation.ValidatePasswordConfirmation(in.Password, in.PasswordConfirm),
		validation.ValidateProfileFields(in.Age, in.City, in.Phone),
	); err != nil {
		return nil, err
	}
	if in.IsAdminRegistration {
		if s.adminPasscode == "" {
			return nil, models.NewFieldError("admin_passcode", "Admin registration is disabled")
		}
		if subtle.ConstantTimeCompare([]byte(in.AdminPasscode), []byte(s.adminPasscode)) != 1 {
			return nil, models.NewFieldError("admin_passcode", "Invalid admin passcode")
		}
	}

	if existing, err := s.repos.Users.GetByUsername(ctx, in.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewFieldError("username", "A user with that username already exists")
	}
	if existing, err := s.repos.Users.GetByEmail(ctx, in.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewFieldError("email", "A user with that email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hash),
		IsStaff:  in.IsAdminRegistration,
	}
	role := models.ProfileRoleUser
	if in.IsAdminRegistration {
		role = models.ProfileRoleAdmin
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if in.IsAdminRegistration {
			if err := checkAdminCap(ctx, tx, s.maxStaffAdmins); err != nil {
				return err
			}
		}
		if err := tx.Users.Create(ctx, user); err != nil {
			return err
		}
		profile := &models.Profile{UserID: user.ID, Role: role, Age: in.Age, City: in.City, Phone: in.Phone}
		if err := tx.Users.CreateProfile(ctx, profile); err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "user registered",
		slog.Uint64("registered_user_id", uint64(user.ID)),
		slog.Bool("admin", in.IsAdminRegistration),
	)
	return user, nil
}

// checkAdminCap serializes cap checks across transactions and fails when the cap is
// reached. It must run inside the transaction that creates or promotes the admin.
func checkAdminCap(ctx context.Context, tx *repository.Repositories, limit int) error {
	if err := database.AdvisoryXactLock(tx.DB().WithContext(ctx), database.LockStaffAdmins); err != nil {
		return models.NewInternalError(err)
	}
	n, err := tx.Users.CountStaffAdmins(ctx)
	if err != nil {
		return err
	}
	if n >= int64(limit) {
		return models.NewCapacityExceededError("The maximum number of admin accounts has been reached")
	}
	return nil
}

// Authenticate checks a username and password against the stored hash.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repos.Users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("Invalid username or password")
	}
	return user, nil
}

// Login authenticates and issues an access token.
func (s *AccountService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	token, claims, err := middleware.IssueToken(s.jwtSecret, user.ID, user.Username, s.tokenTTL, s.now())
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	middleware.Logger.InfoContext(middleware.WithUserID(ctx, user.ID), "user logged in")
	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt, User: user}, nil
}

// Logout revokes the token until it would have expired.
func (s *AccountService) Logout(ctx context.Context, claims *middleware.TokenClaims) error {
	ttl := claims.ExpiresAt.Sub(s.now())
	if err := cache.RevokeToken(ctx, claims.JTI, ttl); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetProfile returns the user with their profile.
func (s *AccountService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	return s.repos.Users.GetWithProfile(ctx, userID)
}

// UpdateProfile writes the provided profile fields.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	city, phone := "", ""
	if in.City != nil {
		city = strings.TrimSpace(*in.City)
	}
	if in.Phone != nil {
		phone = strings.TrimSpace(*in.Phone)
	}
	if err := validation.ValidateProfileFields(in.Age, city, phone); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Age != nil {
		fields["age"] = *in.Age
	}
	if in.City != nil {
		fields["city"] = city
	}
	if in.Phone != nil {
		fields["phone"] = phone
	}
	if err := s.repos.Users.UpdateProfile(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.repos.Users.GetWithProfile(ctx, userID)
}

// UploadProfilePicture stores a new picture and releases the previous one.
func (s *AccountService) UploadProfilePicture(ctx context.Context, userID uint, r io.Reader) (*models.User, error) {
	img, err := storage.ReadImage("profile_picture", r, s.maxImageBytes)
	if err != nil {
		return nil, err
	}
	user, err := s.repos.Users.GetWithProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	var previous string
	if user.Profile != nil {
		previous = user.Profile.ProfilePicture
	}

	key, err := s.blobs.Put(ctx, storage.PrefixProfilePics, img.Reader(), img.Size(), img.ContentType)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.repos.Users.UpdateProfile(ctx, userID, map[string]any{"profile_picture": key}); err != nil {
		releaseBlobs(ctx, s.blobs, key)
		return nil, err
	}
	releaseBlobs(ctx, s.blobs, previous)
	return s.repos.Users.GetWithProfile(ctx, userID)
}
