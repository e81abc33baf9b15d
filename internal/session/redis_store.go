package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one hash per device under "session:<deviceID>", with the
// same keys the web client kept in local storage.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, deviceID string) *RedisStore {
	return &RedisStore{rdb: rdb, key: "session:" + deviceID}
}

func (r *RedisStore) Load(ctx context.Context) (State, error) {
	var st State
	fields, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return st, fmt.Errorf("load session %s: %w", r.key, err)
	}
	st.UserID = fields["userId"]
	st.Token = fields["token"]
	st.FontSize = FontSize(fields["fontSize"])
	st.DarkMode, _ = strconv.ParseBool(fields["darkMode"])
	if raw := fields["user"]; raw != "" {
		var p Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return st, fmt.Errorf("decode session user: %w", err)
		}
		st.User = &p
	}
	return st, nil
}

func (r *RedisStore) Save(ctx context.Context, st State) error {
	user := ""
	if st.User != nil {
		raw, err := json.Marshal(st.User)
		if err != nil {
			return fmt.Errorf("encode session user: %w", err)
		}
		user = string(raw)
	}

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key,
			"darkMode", strconv.FormatBool(st.DarkMode),
			"fontSize", string(st.FontSize),
		)
		if st.UserID == "" {
			pipe.HDel(ctx, r.key, "userId", "user", "token")
			return nil
		}
		pipe.HSet(ctx, r.key, "userId", st.UserID, "user", user, "token", st.Token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session %s: %w", r.key, err)
	}
	return nil
}
