// Package statusboard publishes the bridge's status snapshot to Redis so
// that dashboards and other tools can read it without polling the bridge's
// HTTP server.
//
// # Redis Schema
//
// All keys and Pub/Sub channels are namespaced by instance name so several
// bridges can share one Redis server.
//
//	cuebridge:{instance}:status         string, latest snapshot JSON
//	cuebridge:{instance}:status_events  channel, every published snapshot
//
// Only the latest snapshot is kept. Pub/Sub delivery is at-most-once.
//
// # Usage Example
//
//	opts, err := redis.ParseURL("redis://localhost:6379")
//	if err != nil {
//		return err
//	}
//	client, err := statusboard.NewClient(opts, "default")
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	if err := client.Publish(ctx, st.Snapshot()); err != nil {
//		return err
//	}
//
//	snap, err := client.GetStatus(ctx)
//	if statusboard.IsNotFound(err) {
//		// no bridge has published for this instance yet
//	}
package statusboard
