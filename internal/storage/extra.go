package storage

import "encoding/json"

// marshalWithExtra serializes a typed metadata value and folds the preserved
// unknown keys back into the document. Typed fields win on key collisions.
func marshalWithExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	known, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return known, nil
	}
	doc := map[string]json.RawMessage{}
	for k, raw := range extra {
		doc[k] = raw
	}
	var typed map[string]json.RawMessage
	if err := json.Unmarshal(known, &typed); err != nil {
		return nil, err
	}
	for k, raw := range typed {
		doc[k] = raw
	}
	return json.Marshal(doc)
}

// extraKeys returns the keys of data not claimed by the typed struct.
func extraKeys(data []byte, knownKeys ...string) (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	for _, k := range knownKeys {
		delete(doc, k)
	}
	if len(doc) == 0 {
		return nil, nil
	}
	return doc, nil
}
