package persist

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Codec encodes a Snapshot into the single string value kept in storage and
// decodes it back.
type Codec interface {
	Marshal(snapshot Snapshot) ([]byte, error)
	Unmarshal(data []byte) (Snapshot, error)
}

// JSONCodec returns the default snapshot codec: one JSON object whose
// top-level fields are cell identifiers.
func JSONCodec() Codec {
	return jsonCodec{}
}

type jsonCodec struct{}

func (jsonCodec) Marshal(snapshot Snapshot) ([]byte, error) {
	return json.Marshal(snapshot)
}

func (jsonCodec) Unmarshal(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// YAMLCodec returns a codec for snapshots meant to be inspected or edited by
// hand. The layout is unchanged: top-level keys are cell identifiers.
func YAMLCodec() Codec {
	return yamlCodec{}
}

type yamlCodec struct{}

func (yamlCodec) Marshal(snapshot Snapshot) ([]byte, error) {
	return yaml.Marshal(map[string]any(snapshot))
}

func (yamlCodec) Unmarshal(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}
