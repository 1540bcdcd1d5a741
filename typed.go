package persist

import "github.com/goliatone/go-persist/internal/hydrate"

// TypedDeserializer builds a DeserializeFunc that decodes persisted entries
// into T. Entries round-trip through encoding/json, so T's fields follow
// JSON conventions.
func TypedDeserializer[T any]() DeserializeFunc {
	decoder := hydrate.NewDecoder[T]()
	return func(stored any) (any, error) {
		return decoder.Decode(hydrate.Context{}, stored)
	}
}

// TypedDeserializerStrict is like TypedDeserializer but rejects entries
// carrying fields T does not declare.
func TypedDeserializerStrict[T any]() DeserializeFunc {
	decoder := hydrate.NewDecoder(hydrate.WithDisallowUnknownFields[T]())
	return func(stored any) (any, error) {
		return decoder.Decode(hydrate.Context{}, stored)
	}
}
