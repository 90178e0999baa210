package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/talentdex/internal/db"
)

// RunScript executes a Lua script via EVALSHA, loading it on first NOSCRIPT.
// The script must return an array of integers.
func (s *Store) RunScript(ctx context.Context, src string, keys, args []string) ([]int64, error) {
	script, _ := s.scripts.LoadOrStore(src, rueidis.NewLuaScript(src))

	raw, err := script.(*rueidis.Lua).Exec(ctx, s.client, keys, args).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpEval, Err: err}
	}

	out := make([]int64, len(raw))
	for i := range raw {
		v, err := raw[i].AsInt64()
		if err != nil {
			return nil, &db.Error{Op: db.OpEval, Err: fmt.Errorf("result %d: %w", i, err)}
		}
		out[i] = v
	}
	return out, nil
}
