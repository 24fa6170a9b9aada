package command

import (
	"time"

	"github.com/yndnr/respkv/internal/storage/memory"
)

// Command is a parsed request. The set of implementations is closed.
type Command interface {
	// Name returns the command name, upper-case for known commands.
	Name() string
	command()
}

// Ping replies PONG, or echoes Message when one was given.
type Ping struct {
	Message    []byte
	HasMessage bool
}

// Echo replies with Message.
type Echo struct {
	Message []byte
}

// Quit replies OK; the caller closes the connection afterwards.
type Quit struct{}

// Get reads a key.
type Get struct {
	Key string
}

// ExpiryKind selects how Set treats the deadline of the key.
type ExpiryKind int

const (
	// NoExpiry clears any deadline.
	NoExpiry ExpiryKind = iota
	// ExpireIn sets a deadline relative to execution time.
	ExpireIn
	// ExpireAtTime sets an absolute deadline.
	ExpireAtTime
	// KeepTTL retains the current deadline.
	KeepTTL
)

// Expiry is the expiration clause of Set.
type Expiry struct {
	Kind ExpiryKind
	// TTL is used with ExpireIn.
	TTL time.Duration
	// At is used with ExpireAtTime.
	At time.Time
}

// Set writes a key.
type Set struct {
	Key       string
	Value     []byte
	Expiry    Expiry
	Condition memory.Condition
	// ReturnPrevious replies with the old value instead of OK.
	ReturnPrevious bool
}

// Del removes keys.
type Del struct {
	Keys []string
}

// Exists counts existing keys.
type Exists struct {
	Keys []string
}

// Expire sets a relative deadline. A non-positive TTL deletes the key.
type Expire struct {
	Key  string
	TTL  time.Duration
	name string
}

// TTL reports the remaining time to live, in seconds or milliseconds.
type TTL struct {
	Key    string
	Millis bool
}

// Persist clears a deadline.
type Persist struct {
	Key string
}

// IncrBy adds Delta to an integer value. INCR, DECR and DECRBY parse to it.
type IncrBy struct {
	Key   string
	Delta int64
	name  string
}

// DBSize counts keys.
type DBSize struct{}

// Flush removes every key.
type Flush struct {
	name string
}

// Unknown is a request whose name is not in the command table.
type Unknown struct {
	Cmd  string
	Args []string
}

func (Ping) Name() string      { return "PING" }
func (Echo) Name() string      { return "ECHO" }
func (Quit) Name() string      { return "QUIT" }
func (Get) Name() string       { return "GET" }
func (Set) Name() string       { return "SET" }
func (Del) Name() string       { return "DEL" }
func (Exists) Name() string    { return "EXISTS" }
func (Persist) Name() string   { return "PERSIST" }
func (DBSize) Name() string    { return "DBSIZE" }
func (c Unknown) Name() string { return c.Cmd }

func (c Expire) Name() string {
	if c.name == "" {
		return "EXPIRE"
	}
	return c.name
}

func (c TTL) Name() string {
	if c.Millis {
		return "PTTL"
	}
	return "TTL"
}

func (c IncrBy) Name() string {
	if c.name == "" {
		return "INCRBY"
	}
	return c.name
}

func (c Flush) Name() string {
	if c.name == "" {
		return "FLUSHDB"
	}
	return c.name
}

func (Ping) command()    {}
func (Echo) command()    {}
func (Quit) command()    {}
func (Get) command()     {}
func (Set) command()     {}
func (Del) command()     {}
func (Exists) command()  {}
func (Expire) command()  {}
func (TTL) command()     {}
func (Persist) command() {}
func (IncrBy) command()  {}
func (DBSize) command()  {}
func (Flush) command()   {}
func (Unknown) command() {}
