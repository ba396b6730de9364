package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript increments a counter and starts its expiry on the first hit.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Hit records one attempt in the fixed window stored at key and returns the
// attempts seen so far in that window.
func (c *Client) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	if c.rdb == nil {
		return 0, errNotInitialized
	}
	return hitScript.Run(ctx, c.rdb, []string{key}, window.Milliseconds()).Int64()
}
