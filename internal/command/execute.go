package command

import (
	"fmt"
	"time"

	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/pkg/resp"
)

// Store is the keyspace a command executes against. *memory.Store
// implements it.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, opts memory.SetOptions) memory.SetResult
	Delete(keys ...string) int
	Exists(keys ...string) int
	ExpireAt(key string, at time.Time) bool
	Persist(key string) bool
	TTL(key string) (time.Duration, memory.TTLState)
	IncrBy(key string, delta int64) (int64, error)
	Len() int
	Flush()
	Now() time.Time
}

var _ Store = (*memory.Store)(nil)

var (
	okFrame   = resp.SimpleFrame("OK")
	pongFrame = resp.SimpleFrame("PONG")
)

// Execute applies cmd to store and returns the reply. It never fails:
// errors become error replies.
func Execute(store Store, cmd Command) resp.Frame {
	switch c := cmd.(type) {
	case Ping:
		if c.HasMessage {
			return resp.BulkFrame(c.Message)
		}
		return pongFrame

	case Echo:
		return resp.BulkFrame(c.Message)

	case Quit:
		return okFrame

	case Get:
		v, ok := store.Get(c.Key)
		if !ok {
			return resp.NullBulk()
		}
		return resp.BulkFrame(v)

	case Set:
		return executeSet(store, c)

	case Del:
		return resp.IntegerFrame(int64(store.Delete(c.Keys...)))

	case Exists:
		return resp.IntegerFrame(int64(store.Exists(c.Keys...)))

	case Expire:
		// A deadline at or before now deletes the key.
		if store.ExpireAt(c.Key, store.Now().Add(c.TTL)) {
			return resp.IntegerFrame(1)
		}
		return resp.IntegerFrame(0)

	case TTL:
		d, state := store.TTL(c.Key)
		switch state {
		case memory.KeyMissing:
			return resp.IntegerFrame(-2)
		case memory.NoExpiry:
			return resp.IntegerFrame(-1)
		}
		ms := d.Milliseconds()
		if c.Millis {
			return resp.IntegerFrame(ms)
		}
		return resp.IntegerFrame((ms + 500) / 1000)

	case Persist:
		if store.Persist(c.Key) {
			return resp.IntegerFrame(1)
		}
		return resp.IntegerFrame(0)

	case IncrBy:
		n, err := store.IncrBy(c.Key, c.Delta)
		if err != nil {
			return ErrorFrame(err)
		}
		return resp.IntegerFrame(n)

	case DBSize:
		return resp.IntegerFrame(int64(store.Len()))

	case Flush:
		store.Flush()
		return okFrame

	case Unknown:
		return ErrorFrame(unknownError(c))

	default:
		return ErrorFrame(fmt.Errorf("unhandled command '%s'", cmd.Name()))
	}
}

func executeSet(store Store, c Set) resp.Frame {
	opts := memory.SetOptions{Condition: c.Condition}
	switch c.Expiry.Kind {
	case ExpireIn:
		opts.ExpireAt = store.Now().Add(c.Expiry.TTL)
	case ExpireAtTime:
		opts.ExpireAt = c.Expiry.At
	case KeepTTL:
		opts.KeepTTL = true
	}

	res := store.Set(c.Key, c.Value, opts)
	if c.ReturnPrevious {
		if !res.HadPrevious {
			return resp.NullBulk()
		}
		return resp.BulkFrame(res.Previous)
	}
	if !res.Stored {
		return resp.NullBulk()
	}
	return okFrame
}
