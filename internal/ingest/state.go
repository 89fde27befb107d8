package ingest

import "fmt"

// State is the listener's connection state.
type State int32

const (
	Disconnected State = iota
	Connected
	Streaming
	// Suspended means the provider asked for a back-off; the connection is
	// kept and forwarding resumes afterwards.
	Suspended
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Streaming:
		return "streaming"
	case Suspended:
		return "suspended"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// ParseState is the inverse of String.
func ParseState(s string) (State, error) {
	for st := Disconnected; st <= Failed; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return Disconnected, fmt.Errorf("unknown listener state %q", s)
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	st, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Stats counts what happened to received payloads.
type Stats struct {
	Received      int64 `json:"received"`
	Accepted      int64 `json:"accepted"`
	DecodeFailed  int64 `json:"decode_failed"`
	StorageFailed int64 `json:"storage_failed"`
	Unmatched     int64 `json:"unmatched"`
	RateLimited   int64 `json:"rate_limited"`
}
