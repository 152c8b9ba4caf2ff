package record

import "time"

// Kind identifies the reserved record kinds a drivelog stream can start with.
// Ordinary data records are opaque producer bytes and carry no kind byte;
// only the init block is framed so external readers can tell it apart.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInit
)

const (
	// InitVersion is the current init-block header version.
	InitVersion uint8 = 1

	// HeaderSize is kind (1) + version (1) + body length (4).
	HeaderSize = 6

	// MaxInitBodySize bounds the JSON body of an init block.
	MaxInitBodySize uint32 = 1 << 20
)

// Init is the environment snapshot captured when a segment is opened.
type Init struct {
	Route     string            `json:"route"`
	CreatedAt time.Time         `json:"created_at"`
	Hostname  string            `json:"hostname"`
	OS        string            `json:"os"`
	Arch      string            `json:"arch"`
	GoVersion string            `json:"go_version"`
	Params    map[string]string `json:"params,omitempty"`
}
