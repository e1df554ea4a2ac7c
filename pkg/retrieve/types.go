package retrieve

import (
	"bytes"
	"encoding/json"
)

// ItemMap maps Pocket item ids to their raw item records. Item detail
// schemas are defined by Pocket and passed through opaque. Pocket encodes
// an empty list as a JSON array instead of an object; UnmarshalJSON
// tolerates both.
type ItemMap map[string]json.RawMessage

// UnmarshalJSON implements lenient decoding of the list field.
func (m *ItemMap) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		*m = ItemMap{}
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	*m = ItemMap(raw)
	return nil
}

// ListResponse mirrors the Pocket /v3/get response envelope. A nil List
// means the response carried no list field, which Pocket uses to signal
// end-of-data.
type ListResponse struct {
	Status   int     `json:"status"`
	Complete int     `json:"complete"`
	List     ItemMap `json:"list"`
}

// Options narrow a fetch. The zero value fetches everything.
type Options struct {
	// Since restricts the fetch to items updated at or after this Unix
	// timestamp, typically the Timestamp of the previous fetch's Result.
	// Zero fetches the full list.
	Since int64

	// Tag restricts the fetch to items carrying this tag.
	Tag string
}

// Result is the outcome of a full fetch: the merged item collection plus
// the sync watermark the caller should persist and pass as Options.Since on
// the next incremental fetch.
type Result struct {
	// Timestamp is the wall-clock time in whole seconds captured before
	// the first page request was issued.
	Timestamp int64 `json:"timestamp"`

	// Response holds the merged item collection. Status and Complete are
	// carried over from the last merged page, not aggregated.
	Response ListResponse `json:"response"`
}
