package domain

import "encoding/json"

// Record is a free-form JSON object, used as the element type of pages whose
// items are arbitrary documents.
type Record map[string]any

func (rec Record) MarshalJSON() ([]byte, error) {
	if rec == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(rec))
}

func (rec *Record) UnmarshalJSON(data []byte) error {
	var entries map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		entries = nil
	}
	*rec = entries
	return nil
}
