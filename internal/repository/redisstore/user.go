package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/authtoken/internal/apperrors"
	"github.com/nkiryanov/authtoken/internal/models"
	"github.com/nkiryanov/authtoken/internal/repository"
)

const defaultPrefix = "authtoken"

// createUserLua atomically checks username and email indexes and stores the user.
// KEYS[1] = username index key
// KEYS[2] = email index key
// KEYS[3] = user hash key
// ARGV[1] = email (may be empty, then email index is not touched)
// ARGV[2] = user id
// ARGV[3] = username
// ARGV[4] = password hash
// ARGV[5] = created at (RFC3339Nano)
var createUserLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return {err='user_exists'}
end
if ARGV[1] ~= '' and redis.call('EXISTS', KEYS[2]) == 1 then
  return {err='user_exists'}
end

redis.call('SET', KEYS[1], ARGV[2])
if ARGV[1] ~= '' then
  redis.call('SET', KEYS[2], ARGV[2])
end
redis.call('HSET', KEYS[3],
  'id', ARGV[2],
  'username', ARGV[3],
  'email', ARGV[1],
  'password_hash', ARGV[4],
  'created_at', ARGV[5],
  'updated_at', ARGV[5])
return 1
`)

// Credential store on top of redis
// Every user is a hash, username and email are unique indexes pointing to user id
type UserRepo struct {
	client redis.UniversalClient
	prefix string
}

func NewUserRepo(client redis.UniversalClient, prefix string) *UserRepo {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &UserRepo{client: client, prefix: prefix}
}

func (r *UserRepo) userKey(id string) string       { return r.prefix + ":user:" + id }
func (r *UserRepo) usernameKey(name string) string { return r.prefix + ":username:" + name }
func (r *UserRepo) emailKey(email string) string   { return r.prefix + ":email:" + email }

func (r *UserRepo) CreateUser(ctx context.Context, params repository.CreateUserParams) (models.User, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := models.User{
		ID:             uuid.New(),
		CreatedAt:      now,
		UpdatedAt:      now,
		Username:       params.Username,
		Email:          params.Email,
		HashedPassword: params.HashedPassword,
	}

	err := createUserLua.Run(ctx, r.client,
		[]string{r.usernameKey(user.Username), r.emailKey(user.Email), r.userKey(user.ID.String())},
		user.Email,
		user.ID.String(),
		user.Username,
		user.HashedPassword,
		now.Format(time.RFC3339Nano),
	).Err()

	switch {
	case err == nil:
		return user, nil
	case err.Error() == "user_exists":
		return models.User{}, apperrors.ErrUserAlreadyExists
	default:
		return models.User{}, fmt.Errorf("redis error: %w", err)
	}
}

func (r *UserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	values, err := r.client.HGetAll(ctx, r.userKey(userID.String())).Result()
	if err != nil {
		return models.User{}, fmt.Errorf("redis error: %w", err)
	}
	if len(values) == 0 {
		return models.User{}, apperrors.ErrUserNotFound
	}

	return hashToUser(values)
}

func (r *UserRepo) GetUserByUsernameOrEmail(ctx context.Context, username string, email string) (models.User, error) {
	id, err := r.lookup(ctx, r.usernameKey(username))
	if errors.Is(err, apperrors.ErrUserNotFound) && email != "" {
		id, err = r.lookup(ctx, r.emailKey(email))
	}
	if err != nil {
		return models.User{}, err
	}

	return r.GetUserByID(ctx, id)
}

func (r *UserRepo) lookup(ctx context.Context, indexKey string) (uuid.UUID, error) {
	value, err := r.client.Get(ctx, indexKey).Result()

	switch {
	case errors.Is(err, redis.Nil):
		return uuid.Nil, apperrors.ErrUserNotFound
	case err != nil:
		return uuid.Nil, fmt.Errorf("redis error: %w", err)
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupted user index %q: %w", indexKey, err)
	}
	return id, nil
}

func hashToUser(values map[string]string) (models.User, error) {
	var (
		u   models.User
		err error
	)

	if u.ID, err = uuid.Parse(values["id"]); err != nil {
		return models.User{}, fmt.Errorf("corrupted user id: %w", err)
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, values["created_at"]); err != nil {
		return models.User{}, fmt.Errorf("corrupted user created_at: %w", err)
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339Nano, values["updated_at"]); err != nil {
		return models.User{}, fmt.Errorf("corrupted user updated_at: %w", err)
	}
	u.Username = values["username"]
	u.Email = values["email"]
	u.HashedPassword = values["password_hash"]

	return u, nil
}
