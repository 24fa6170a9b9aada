// Package shutdown coordinates graceful process termination.
//
// Components register cleanup hooks; the handler waits for SIGINT,
// SIGTERM, a cancelled context or an explicit Trigger, then runs the
// hooks newest first under one shared timeout:
//
//	h := shutdown.NewHandler(10*time.Second, shutdown.WithLogger(log))
//	h.Register("redis", srv.Shutdown)
//	if err := h.Wait(); err != nil {
//		log.Error("shutdown", "error", err)
//	}
package shutdown
