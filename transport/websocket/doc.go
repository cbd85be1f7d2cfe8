// Package websocket streams finished solver runs to subscribers.
//
// A central Hub owns every connection. Each client subscribes to one topic
// with the ?puzzle= query parameter: a puzzle ID, or "*" (the default) for
// all puzzles. The Hub implements service.RunNotifier, so registering it
// with the solver service is enough to publish runs as they finish.
//
// Message Protocol:
//
// Outgoing frames are single JSON documents:
//
//	{"topic": "grandmaster_2", "event": "run_finished", "run": {...}}
//
// Incoming frames are read and discarded to keep the connection alive.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	svc := service.NewSolverService(runs, puzzles, service.WithNotifier(hub))
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("puzzle"))
//	})
package websocket
