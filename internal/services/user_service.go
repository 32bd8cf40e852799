package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/blogsphere/backend/internal/apperrors"
	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/internal/repository"
	jwtutil "github.com/blogsphere/backend/pkg/jwt"
	"github.com/sirupsen/logrus"
)

const userPhotoFolder = "Blog_user_photos"

// UserService encapsulates the business logic for user operations.
type UserService struct {
	users       UserStore
	images      ImageStore
	mailer      Mailer
	revoker     TokenRevoker
	jwtSecret   string
	tokenExpiry time.Duration
}

// NewUserService creates a new instance of UserService. mailer and revoker may be nil.
func NewUserService(users UserStore, images ImageStore, mailer Mailer, revoker TokenRevoker, jwtSecret string, tokenExpiry time.Duration) *UserService {
	return &UserService{
		users:       users,
		images:      images,
		mailer:      mailer,
		revoker:     revoker,
		jwtSecret:   jwtSecret,
		tokenExpiry: tokenExpiry,
	}
}

// TokenExpiry is how long issued tokens (and the auth cookie) stay valid.
func (s *UserService) TokenExpiry() time.Duration {
	return s.tokenExpiry
}

// Register creates an account with a profile photo and returns it with a fresh session token.
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest, photo *models.ImageUpload) (*models.User, string, error) {
	logrus.Info("Registering new user")

	if photo == nil {
		return nil, "", apperrors.Validation("Photo is required")
	}
	if err := checkImage(photo); err != nil {
		return nil, "", err
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, "", err
	}

	existing, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, "", apperrors.Internal("failed to check email", err)
	}
	if existing != nil {
		logrus.WithField("email", req.Email).Warn("Email already in use")
		return nil, "", apperrors.DuplicateAction("Email already registered")
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperrors.Internal("failed to hash password", err)
	}

	image, err := s.images.Put(ctx, userPhotoFolder, photo.File, photo.Size, photo.ContentType)
	if err != nil {
		return nil, "", apperrors.Internal("failed to upload photo", err)
	}

	user, err := s.users.CreateUser(ctx, &models.User{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Education: req.Education,
		Password:  string(hashedPwd),
		Role:      req.Role,
		Photo:     *image,
	})
	if err != nil {
		s.discardImage(ctx, image.PublicID)
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, "", apperrors.DuplicateAction("Email or phone already registered")
		}
		return nil, "", apperrors.Internal("failed to register user", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}

	if s.mailer != nil {
		go s.sendWelcome(user.Email, user.Name)
	}

	logrus.WithFields(logrus.Fields{
		"userID": user.ID.Hex(),
		"role":   user.Role,
	}).Info("User registered successfully")
	return user, token, nil
}

func (s *UserService) sendWelcome(to, name string) {
	body := fmt.Sprintf("Hi %s,\n\nWelcome to BlogSphere! Your account is ready.", name)
	if err := s.mailer.SendEmail(to, "Welcome to BlogSphere", body); err != nil {
		logrus.WithError(err).WithField("email", to).Warn("Failed to send welcome email")
		return
	}
	logrus.Infof("Sent welcome email to %s", to)
}

// Login verifies the email and password and returns the user with a fresh session token.
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.User, string, error) {
	if err := validateStruct(req); err != nil {
		return nil, "", apperrors.Validation("All fields required")
	}

	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		logrus.WithField("email", req.Email).Warn("Login for unknown email")
		return nil, "", apperrors.Authentication("Invalid credentials")
	}
	if err != nil {
		return nil, "", apperrors.Internal("failed to load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logrus.WithField("email", req.Email).Warn("Invalid credentials")
		return nil, "", apperrors.Authentication("Invalid credentials")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	logrus.WithField("userID", user.ID.Hex()).Info("User authenticated successfully")
	return user, token, nil
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *UserService) Logout(ctx context.Context, claims *jwtutil.Claims) error {
	if s.revoker == nil || claims == nil || claims.ID == "" {
		return nil
	}
	if err := s.revoker.Revoke(ctx, claims.ID, claims.Remaining()); err != nil {
		return apperrors.Internal("failed to revoke token", err)
	}
	return nil
}

func (s *UserService) issueToken(user *models.User) (string, error) {
	token, err := jwtutil.GenerateToken(user.ID.Hex(), s.jwtSecret, s.tokenExpiry)
	if err != nil {
		return "", apperrors.Internal("failed to issue token", err)
	}
	return token, nil
}

// GetUser fetches a user by hex id. what names the id in error messages ("user", "writer").
func (s *UserService) GetUser(ctx context.Context, id, what string) (*models.User, error) {
	objID, err := parseID(id, what)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, objID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound(strings.ToUpper(what[:1]) + what[1:] + " not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get user", err)
	}
	return user, nil
}

// ListByRole returns every user holding role, newest first.
func (s *UserService) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	if !models.ValidRole(role) {
		return nil, apperrors.Validation("Invalid role")
	}
	users, err := s.users.GetUsersByRole(ctx, role)
	if err != nil {
		return nil, apperrors.Internal("failed to list users", err)
	}
	return users, nil
}

func (s *UserService) discardImage(ctx context.Context, publicID string) {
	if err := s.images.Delete(ctx, publicID); err != nil {
		logrus.WithError(err).WithField("publicID", publicID).Warn("Failed to delete orphaned image")
	}
}
