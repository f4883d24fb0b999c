package events

import (
	"encoding/json"

	"gatekeeper/contexts/identity-access/access-control/ports"
)

func marshalEnvelope(event ports.PolicyChangedEvent) ([]byte, error) {
	return json.Marshal(event)
}
