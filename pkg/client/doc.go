// Package client is a pooled RESP client for respkv and other servers
// that speak the same protocol.
//
// Connections come from a puddle pool and every round trip runs inside a
// gobreaker circuit breaker. Only transport failures count against the
// breaker; an error reply such as "-ERR syntax error" is a normal answer.
//
//	c, err := client.New(client.Config{Addr: "127.0.0.1:6379"})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
//		return err
//	}
//	v, ok, err := c.Get(ctx, "k")
package client
