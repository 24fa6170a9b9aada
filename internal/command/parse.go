package command

import (
	"bytes"
	"strconv"
	"time"

	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/pkg/resp"
)

type parseFunc func(name string, args [][]byte) (Command, error)

// cmdInfo describes one table entry. Arity counts the name itself: a positive
// arity is exact, a negative arity is a minimum. MaxArgs, when set, caps
// the count of a variadic command.
type cmdInfo struct {
	name    string
	arity   int
	maxArgs int
	parse   parseFunc
}

func (s *cmdInfo) arityOK(n int) bool {
	if s.arity >= 0 {
		return n == s.arity
	}
	if n < -s.arity {
		return false
	}
	return s.maxArgs == 0 || n <= s.maxArgs
}

// maxNameLen is the longest command name in the table.
const maxNameLen = 16

var table = map[string]*cmdInfo{
	"PING":     {name: "PING", arity: -1, maxArgs: 2, parse: parsePing},
	"ECHO":     {name: "ECHO", arity: 2, parse: parseEcho},
	"QUIT":     {name: "QUIT", arity: -1, parse: parseQuit},
	"GET":      {name: "GET", arity: 2, parse: parseGet},
	"SET":      {name: "SET", arity: -3, parse: parseSet},
	"DEL":      {name: "DEL", arity: -2, parse: parseDel},
	"EXISTS":   {name: "EXISTS", arity: -2, parse: parseExists},
	"EXPIRE":   {name: "EXPIRE", arity: 3, parse: parseExpire(time.Second)},
	"PEXPIRE":  {name: "PEXPIRE", arity: 3, parse: parseExpire(time.Millisecond)},
	"TTL":      {name: "TTL", arity: 2, parse: parseTTL(false)},
	"PTTL":     {name: "PTTL", arity: 2, parse: parseTTL(true)},
	"PERSIST":  {name: "PERSIST", arity: 2, parse: parsePersist},
	"INCR":     {name: "INCR", arity: 2, parse: parseIncr(1)},
	"DECR":     {name: "DECR", arity: 2, parse: parseIncr(-1)},
	"INCRBY":   {name: "INCRBY", arity: 3, parse: parseIncrBy(false)},
	"DECRBY":   {name: "DECRBY", arity: 3, parse: parseIncrBy(true)},
	"DBSIZE":   {name: "DBSIZE", arity: 1, parse: parseDBSize},
	"FLUSHDB":  {name: "FLUSHDB", arity: -1, maxArgs: 2, parse: parseFlush},
	"FLUSHALL": {name: "FLUSHALL", arity: -1, maxArgs: 2, parse: parseFlush},
}

// Names returns the names of all known commands.
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	return names
}

// lookup finds the table entry for name, ignoring ASCII case.
func lookup(name []byte) (*cmdInfo, bool) {
	if len(name) > maxNameLen {
		return nil, false
	}
	var buf [maxNameLen]byte
	for i, c := range name {
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		buf[i] = c
	}
	s, ok := table[string(buf[:len(name)])]
	return s, ok
}

// Parse validates a request frame and builds the command it names. Keys and
// values are copied, so the frame's buffer may be reused once Parse returns.
func Parse(f resp.Frame) (Command, error) {
	if f.Kind != resp.Array || f.Null {
		return nil, ErrNotArray
	}
	if len(f.Array) == 0 {
		return nil, ErrEmpty
	}

	args := make([][]byte, len(f.Array))
	for i, el := range f.Array {
		if el.Kind != resp.BulkString || el.Null {
			return nil, ErrNotArray
		}
		args[i] = el.Str
	}

	s, ok := lookup(args[0])
	if !ok {
		u := Unknown{Cmd: string(args[0])}
		for _, arg := range args[1:] {
			u.Args = append(u.Args, string(arg))
		}
		return u, nil
	}
	if !s.arityOK(len(args)) {
		return nil, &ArityError{Name: s.name}
	}
	return s.parse(s.name, args[1:])
}

func parsePing(_ string, args [][]byte) (Command, error) {
	if len(args) == 0 {
		return Ping{}, nil
	}
	return Ping{Message: bytes.Clone(args[0]), HasMessage: true}, nil
}

func parseEcho(_ string, args [][]byte) (Command, error) {
	return Echo{Message: bytes.Clone(args[0])}, nil
}

func parseQuit(string, [][]byte) (Command, error) {
	return Quit{}, nil
}

func parseGet(_ string, args [][]byte) (Command, error) {
	return Get{Key: string(args[0])}, nil
}

func parseSet(name string, args [][]byte) (Command, error) {
	cmd := Set{
		Key:   string(args[0]),
		Value: bytes.Clone(args[1]),
	}
	expirySet := false

	for i := 2; i < len(args); i++ {
		opt := args[i]
		switch {
		case equalFold(opt, "NX"):
			if cmd.Condition == memory.IfPresent {
				return nil, ErrSyntax
			}
			cmd.Condition = memory.IfAbsent
		case equalFold(opt, "XX"):
			if cmd.Condition == memory.IfAbsent {
				return nil, ErrSyntax
			}
			cmd.Condition = memory.IfPresent
		case equalFold(opt, "GET"):
			cmd.ReturnPrevious = true
		case equalFold(opt, "KEEPTTL"):
			if expirySet {
				return nil, ErrSyntax
			}
			expirySet = true
			cmd.Expiry = Expiry{Kind: KeepTTL}
		case equalFold(opt, "EX"), equalFold(opt, "PX"),
			equalFold(opt, "EXAT"), equalFold(opt, "PXAT"):
			if expirySet || i+1 >= len(args) {
				return nil, ErrSyntax
			}
			expirySet = true
			i++
			n, err := parseInt(args[i])
			if err != nil {
				return nil, err
			}
			exp, ok := setExpiry(opt, n)
			if !ok {
				return nil, &ExpireError{Name: name}
			}
			cmd.Expiry = exp
		default:
			return nil, ErrSyntax
		}
	}
	return cmd, nil
}

// setExpiry converts a SET expiry option and its positive argument. It
// reports false when n is not positive or the deadline does not fit.
func setExpiry(opt []byte, n int64) (Expiry, bool) {
	if n <= 0 {
		return Expiry{}, false
	}
	switch {
	case equalFold(opt, "EX"):
		d, ok := scaleDuration(n, time.Second)
		return Expiry{Kind: ExpireIn, TTL: d}, ok
	case equalFold(opt, "PX"):
		d, ok := scaleDuration(n, time.Millisecond)
		return Expiry{Kind: ExpireIn, TTL: d}, ok
	case equalFold(opt, "EXAT"):
		if n > maxInt64/1000 {
			return Expiry{}, false
		}
		return Expiry{Kind: ExpireAtTime, At: time.Unix(n, 0)}, true
	default:
		return Expiry{Kind: ExpireAtTime, At: time.UnixMilli(n)}, true
	}
}

func parseDel(_ string, args [][]byte) (Command, error) {
	return Del{Keys: keys(args)}, nil
}

func parseExists(_ string, args [][]byte) (Command, error) {
	return Exists{Keys: keys(args)}, nil
}

func parseExpire(unit time.Duration) parseFunc {
	return func(name string, args [][]byte) (Command, error) {
		n, err := parseInt(args[1])
		if err != nil {
			return nil, err
		}
		d, ok := scaleDuration(n, unit)
		if !ok {
			return nil, &ExpireError{Name: name}
		}
		return Expire{Key: string(args[0]), TTL: d, name: name}, nil
	}
}

func parseTTL(millis bool) parseFunc {
	return func(_ string, args [][]byte) (Command, error) {
		return TTL{Key: string(args[0]), Millis: millis}, nil
	}
}

func parsePersist(_ string, args [][]byte) (Command, error) {
	return Persist{Key: string(args[0])}, nil
}

func parseIncr(delta int64) parseFunc {
	return func(name string, args [][]byte) (Command, error) {
		return IncrBy{Key: string(args[0]), Delta: delta, name: name}, nil
	}
}

func parseIncrBy(negate bool) parseFunc {
	return func(name string, args [][]byte) (Command, error) {
		n, err := parseInt(args[1])
		if err != nil {
			return nil, err
		}
		if negate {
			if n == minInt64 {
				return nil, ErrOverflow
			}
			n = -n
		}
		return IncrBy{Key: string(args[0]), Delta: n, name: name}, nil
	}
}

func parseDBSize(string, [][]byte) (Command, error) {
	return DBSize{}, nil
}

func parseFlush(name string, args [][]byte) (Command, error) {
	if len(args) == 1 && !equalFold(args[0], "ASYNC") && !equalFold(args[0], "SYNC") {
		return nil, ErrSyntax
	}
	return Flush{name: name}, nil
}

func keys(args [][]byte) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = string(a)
	}
	return out
}

const (
	maxInt64 = 1<<63 - 1
	minInt64 = -1 << 63
)

// parseInt accepts an optional minus sign followed by decimal digits.
func parseInt(b []byte) (int64, error) {
	if len(b) == 0 || len(b) > 20 || b[0] == '+' {
		return 0, ErrNotInteger
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	return n, nil
}

// scaleDuration returns n units as a Duration, reporting false on overflow.
func scaleDuration(n int64, unit time.Duration) (time.Duration, bool) {
	u := int64(unit)
	if n > maxInt64/u || n < minInt64/u {
		return 0, false
	}
	return time.Duration(n * u), true
}

// equalFold reports whether b equals the upper-case ASCII word s, ignoring case.
func equalFold(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		c := b[i]
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c != s[i] {
			return false
		}
	}
	return true
}
