package statusboard

import "fmt"

// Key pattern: cuebridge:{instance_name}:{entity}
// Channel pattern: cuebridge:{instance_name}:{event_type}_events

// StatusKey returns the Redis key holding the latest snapshot.
// Pattern: cuebridge:{instance_name}:status
func StatusKey(instanceName string) string {
	return fmt.Sprintf("cuebridge:%s:status", instanceName)
}

// StatusEventsChannel returns the Pub/Sub channel snapshots are published on.
// Pattern: cuebridge:{instance_name}:status_events
func StatusEventsChannel(instanceName string) string {
	return fmt.Sprintf("cuebridge:%s:status_events", instanceName)
}
