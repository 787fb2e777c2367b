// Package broadcast fans live activity events out to every open streaming
// connection.
//
// A Hub owns the set of registered connections. Each Connection has a bounded
// send queue filled by Hub.Broadcast and drained by Connection.Serve, which runs
// on the HTTP request goroutine and also writes a periodic heartbeat. A full
// queue or a failed write removes the connection from the hub immediately; the
// other connections are unaffected.
//
// # Basic Usage
//
//	hub := broadcast.NewHub(broadcast.Config{ClientBuffer: 32, HeartbeatInterval: 30 * time.Second}, logger)
//	defer hub.Close()
//
//	conn := hub.NewConnection(broadcast.NewResponseSink(w))
//	if err := hub.Register(conn); err != nil {
//	    return err
//	}
//	return conn.Serve(r.Context())
//
// # Thread Safety
//
// All Hub methods are safe for concurrent use. Broadcast never blocks on a slow
// client.
package broadcast
