// Package remote exposes the Lumen console over MQTT.
//
// The bridge lets building controllers, show-control software and scripts
// drive the rig without a browser:
//
//	┌─────────────────┐          ┌─────────────────┐
//	│  Lumen console  │◄────────►│  remote bridge  │◄────────► MQTT broker
//	└─────────────────┘          └─────────────────┘
//
// # Topics
//
// With the default prefix "lumen":
//
//	lumen/state                 retained RuntimeState JSON, on every change
//	lumen/status                retained online/offline (client LWT)
//	lumen/command/update        partial update JSON, same shape as the
//	                            WebSocket "update" data
//	lumen/command/look/{id}     look level as text, 0 to 1
//	lumen/command/blackout      true|false|on|off|1|0
//
// # Permissions
//
// Commands run with the role configured in mqtt.role and pass the same edit
// check as WebSocket updates. A viewer role makes the bridge read-only.
package remote
