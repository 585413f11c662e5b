// Package mqtt publishes execution events to an MQTT broker.
//
// runward is a publish-only MQTT citizen: each spawn attempt and each
// terminal run outcome becomes a JSON event under the runward/ topic tree,
// for dashboards or automations to consume. Nothing is ever subscribed to.
//
// Topic layout:
//
//	runward/executions/{command}/attempt   per-attempt events
//	runward/executions/{command}/result    terminal run outcome
//
// The EventPublisher satisfies the executor's Recorder interface. Broker
// failures are logged at warn level and otherwise ignored: events are an
// observation of the run, never a dependency of it.
package mqtt
