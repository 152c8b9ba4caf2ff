package record

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"
)

// Helpers

func need(data []byte, at, want int, field string) error {
	if at < 0 {
		at = 0
	}
	have := len(data) - at
	if have >= want {
		return nil
	}
	return &CodecError{
		Kind:  CodecTruncated,
		Field: field,
		At:    at,
		Want:  want,
		Have:  have,
		Err:   ErrCodecTruncated,
	}
}

func u32le(data []byte, at int, field string) (uint32, error) {
	if err := need(data, at, 4, field); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data[at : at+4]), nil
}

// Snapshot captures the environment for a new segment's init block.
func Snapshot(route string, params map[string]string) Init {
	host, _ := os.Hostname() //nolint:errcheck
	return Init{
		Route:     route,
		CreatedAt: time.Now().UTC(),
		Hostname:  host,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		GoVersion: runtime.Version(),
		Params:    params,
	}
}

// BuildInit encodes an init block.
// Format: [kind (1)][version (1)][body_len (4)][json body]
func BuildInit(init Init) ([]byte, error) {
	body, err := json.Marshal(init)
	if err != nil {
		return nil, &CodecError{
			Kind:  CodecInvalid,
			Field: "body",
			Err:   fmt.Errorf("%w: %v", ErrCodecInvalid, err),
		}
	}
	if uint32(len(body)) > MaxInitBodySize { //nolint:gosec
		return nil, &CodecError{
			Kind:  CodecInvalid,
			Field: "body_len",
			Want:  int(MaxInitBodySize),
			Have:  len(body),
			Err:   ErrCodecInvalid,
		}
	}

	data := make([]byte, HeaderSize+len(body))
	data[0] = byte(KindInit)
	data[1] = InitVersion
	binary.LittleEndian.PutUint32(data[2:HeaderSize], uint32(len(body))) //nolint:gosec
	copy(data[HeaderSize:], body)
	return data, nil
}

// DecodeInit decodes an init block previously produced by BuildInit.
// Format: [kind (1)][version (1)][body_len (4)][json body]
func DecodeInit(data []byte) (*Init, error) {
	if err := need(data, 0, HeaderSize, "header"); err != nil {
		return nil, err
	}
	if Kind(data[0]) != KindInit {
		return nil, &CodecError{
			Kind:  CodecInvalid,
			Field: "kind",
			Want:  int(KindInit),
			Have:  int(data[0]),
			Err:   ErrCodecInvalid,
		}
	}
	if data[1] != InitVersion {
		return nil, &CodecError{
			Kind:  CodecInvalid,
			Field: "version",
			Want:  int(InitVersion),
			Have:  int(data[1]),
			Err:   ErrCodecInvalid,
		}
	}

	bodyLen, err := u32le(data, 2, "body_len")
	if err != nil {
		return nil, err
	}
	if bodyLen > MaxInitBodySize {
		return nil, &CodecError{
			Kind:  CodecInvalid,
			Field: "body_len",
			At:    2,
			Want:  int(MaxInitBodySize),
			Have:  int(bodyLen),
			Err:   ErrCodecInvalid,
		}
	}
	if err := need(data, HeaderSize, int(bodyLen), "body"); err != nil {
		return nil, err
	}
	if len(data) != HeaderSize+int(bodyLen) {
		return nil, &CodecError{
			Kind:  CodecCorrupt,
			Field: "body_len",
			At:    HeaderSize + int(bodyLen),
			Want:  HeaderSize + int(bodyLen),
			Have:  len(data),
			Err:   fmt.Errorf("%w: trailing bytes", ErrCodecCorrupt),
		}
	}

	var init Init
	if err := json.Unmarshal(data[HeaderSize:], &init); err != nil {
		return nil, &CodecError{
			Kind:  CodecCorrupt,
			Field: "body",
			At:    HeaderSize,
			Err:   fmt.Errorf("%w: %v", ErrCodecCorrupt, err),
		}
	}
	return &init, nil
}

// IsInit reports whether data starts with the reserved init-block kind byte.
func IsInit(data []byte) bool {
	return len(data) > 0 && Kind(data[0]) == KindInit
}
