package mqtt

import (
	"strings"
)

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "lumen"

// Topics builds Lumen MQTT topics under one prefix.
//
//	topics := mqtt.NewTopics("lumen")
//	topics.CommandLook("warm") // "lumen/command/look/warm"
type Topics struct {
	Prefix string
}

// NewTopics returns builders for prefix, falling back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{Prefix: prefix}
}

// State is the retained runtime state topic.
func (t Topics) State() string {
	return t.Prefix + "/state"
}

// Status is the retained online/offline topic, also used for the LWT.
func (t Topics) Status() string {
	return t.Prefix + "/status"
}

// CommandUpdate receives partial state updates as JSON.
func (t Topics) CommandUpdate() string {
	return t.Prefix + "/command/update"
}

// CommandLook receives a level for one look.
func (t Topics) CommandLook(lookID string) string {
	return t.Prefix + "/command/look/" + lookID
}

// CommandBlackout receives the blackout flag.
func (t Topics) CommandBlackout() string {
	return t.Prefix + "/command/blackout"
}

// AllCommands matches every command topic.
func (t Topics) AllCommands() string {
	return t.Prefix + "/command/#"
}

// LookID extracts the look id from a CommandLook topic.
func (t Topics) LookID(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, t.Prefix+"/command/look/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
