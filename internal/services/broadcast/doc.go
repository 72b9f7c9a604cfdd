// Package broadcast keeps the registry of live viewer connections and their
// group memberships, and fans named events out to the members of a group.
//
// Membership is a bidirectional index: a connection is listed in a group
// exactly when the group is listed on the connection. Both sides change under
// the member lock followed by the group lock, so observers never see one side
// without the other.
//
// # Delivery
//
// Send never blocks. Each connection owns a bounded outbox drained by a single
// writer goroutine; when the outbox is full the event is dropped for that
// connection and counted. Events from one caller to one group arrive in send
// order on every connection. There is no replay for late joiners.
//
// # Basic Usage
//
//	hub := broadcast.NewHub(logger)
//	_ = hub.OnConnect(conn)                     // joins AllUsers
//	_ = hub.JoinGroup(conn.ID(), broadcast.CameraGroup("cam-1"))
//	n := hub.Send(broadcast.CameraGroup("cam-1"), broadcast.EventDetectionResult, batch)
//	hub.OnDisconnect(conn.ID())
package broadcast
