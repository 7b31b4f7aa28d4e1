// Package mqtt provides the MQTT client behind Lumen's remote-control bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS, including retained state and status
//   - Subscriptions with wildcard support, restored on reconnect
//   - Last Will and Testament (LWT) so subscribers see Lumen go offline
//
// # Topics
//
// All topics live under a configurable prefix (default "lumen"):
//
//	lumen/state                 retained runtime state (JSON)
//	lumen/status                retained online/offline status, LWT
//	lumen/command/update        partial state update (JSON)
//	lumen/command/look/{id}     look level 0..1
//	lumen/command/blackout      true|false|on|off|1|0
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := client.Topics()
//	err = client.Subscribe(topics.AllCommands(), 1, handle)
package mqtt
