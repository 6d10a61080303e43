package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/stcadmin/fba-backend/internal/model"
)

type stubUserRepo struct {
	users  map[string]*model.User
	tokens map[string]*model.RefreshToken
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		users:  make(map[string]*model.User),
		tokens: make(map[string]*model.RefreshToken),
	}
}

func (r *stubUserRepo) addUser(username, email, password string, shippingClient bool) *model.User {
	hashed, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &model.User{
		ID:             uuid.New(),
		Username:       username,
		Email:          email,
		Password:       string(hashed),
		Role:           model.RoleManager,
		ShippingClient: shippingClient,
	}
	r.users[user.ID.String()] = user
	return user
}

func (r *stubUserRepo) Create(ctx context.Context, user *model.User) error {
	user.ID = uuid.New()
	r.users[user.ID.String()] = user
	return nil
}

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	var out []model.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(r.users)), nil
}

func (r *stubUserRepo) Update(ctx context.Context, user *model.User) error {
	r.users[user.ID.String()] = user
	return nil
}

func (r *stubUserRepo) Delete(ctx context.Context, id string) error {
	delete(r.users, id)
	return nil
}

func (r *stubUserRepo) SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	if user, ok := r.users[token.UserID.String()]; ok {
		token.User = *user
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *stubUserRepo) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	stored, ok := r.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return stored, nil
}

func (r *stubUserRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewUserService(repo)

	resp, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "s3cret!",
		Role:     model.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)

	stored := repo.users[resp.ID.String()]
	require.NotNil(t, stored)
	assert.NotEqual(t, "s3cret!", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("s3cret!")))
}

func TestCreateUserValidation(t *testing.T) {
	repo := newStubUserRepo()
	repo.addUser("bob", "bob@example.com", "pw123456", false)
	svc := NewUserService(repo)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{Username: "x", Email: "x@example.com", Password: "pw123456", Role: "owner"})
	assert.Error(t, err, "unknown role")

	_, err = svc.CreateUser(ctx, CreateUserRequest{Username: "x", Email: "not-an-email", Password: "pw123456", Role: model.RoleManager})
	assert.Error(t, err)

	_, err = svc.CreateUser(ctx, CreateUserRequest{Username: "bob", Email: "other@example.com", Password: "pw123456", Role: model.RoleManager})
	assert.Error(t, err, "duplicate username")

	_, err = svc.CreateUser(ctx, CreateUserRequest{Username: "carol", Email: "bob@example.com", Password: "pw123456", Role: model.RoleManager})
	assert.Error(t, err, "duplicate email")
}

func TestLoginIssuesTokenPair(t *testing.T) {
	repo := newStubUserRepo()
	repo.addUser("alice", "alice@example.com", "s3cret!", false)
	svc := NewUserService(repo)

	resp, err := svc.Login(context.Background(), LoginUserRequest{Email: "alice@example.com", Password: "s3cret!"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.RefreshToken)
	assert.Contains(t, repo.tokens, resp.RefreshToken)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := newStubUserRepo()
	repo.addUser("alice", "alice@example.com", "s3cret!", false)
	svc := NewUserService(repo)

	_, err := svc.Login(context.Background(), LoginUserRequest{Email: "alice@example.com", Password: "wrong"})
	assert.Error(t, err)

	_, err = svc.Login(context.Background(), LoginUserRequest{Email: "nobody@example.com", Password: "s3cret!"})
	assert.Error(t, err)
}

func TestRefreshTokenRotates(t *testing.T) {
	repo := newStubUserRepo()
	repo.addUser("alice", "alice@example.com", "s3cret!", false)
	svc := NewUserService(repo)
	ctx := context.Background()

	first, err := svc.Login(ctx, LoginUserRequest{Email: "alice@example.com", Password: "s3cret!"})
	require.NoError(t, err)

	second, err := svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotContains(t, repo.tokens, first.RefreshToken, "used refresh token is revoked")

	_, err = svc.RefreshToken(ctx, RefreshTokenRequest{RefreshToken: first.RefreshToken})
	assert.Error(t, err, "rotated token cannot be replayed")
}

func TestRefreshTokenExpired(t *testing.T) {
	repo := newStubUserRepo()
	user := repo.addUser("alice", "alice@example.com", "s3cret!", false)
	repo.tokens["stale"] = &model.RefreshToken{
		UserID:    user.ID,
		User:      *user,
		Token:     "stale",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	svc := NewUserService(repo)

	_, err := svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: "stale"})
	assert.Error(t, err)
	assert.NotContains(t, repo.tokens, "stale", "expired token is purged")
}

func TestLogoutRemovesToken(t *testing.T) {
	repo := newStubUserRepo()
	repo.addUser("alice", "alice@example.com", "s3cret!", false)
	svc := NewUserService(repo)
	ctx := context.Background()

	resp, err := svc.Login(ctx, LoginUserRequest{Email: "alice@example.com", Password: "s3cret!"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.RefreshToken))
	assert.Empty(t, repo.tokens)

	assert.NoError(t, svc.Logout(ctx, ""), "empty token is a no-op")
}

func TestUpdateUserMergesFields(t *testing.T) {
	repo := newStubUserRepo()
	user := repo.addUser("alice", "alice@example.com", "s3cret!", false)
	svc := NewUserService(repo)

	shipping := true
	resp, err := svc.UpdateUser(context.Background(), user.ID.String(), UpdateUserRequest{
		Role:           model.RoleFulfillment,
		ShippingClient: &shipping,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleFulfillment, resp.Role)
	assert.True(t, resp.ShippingClient)
	assert.Equal(t, "alice", resp.Username, "unset fields untouched")
}

func TestDeleteUserUnknownID(t *testing.T) {
	svc := NewUserService(newStubUserRepo())
	assert.Error(t, svc.DeleteUser(context.Background(), uuid.NewString()))
}
